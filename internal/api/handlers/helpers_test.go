package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ativushq/ativus-backend/internal/document"
	"github.com/ativushq/ativus-backend/internal/gotrue"
	"github.com/ativushq/ativus-backend/internal/models"
	"github.com/ativushq/ativus-backend/internal/user"
)

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestWriteServiceErrorEmailRegistered(t *testing.T) {
	rec := httptest.NewRecorder()
	writeServiceError(rec, user.ErrEmailRegistered)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "E-mail já cadastrado.", decodeErrorBody(t, rec).Error)
}

func TestWriteServiceErrorMappings(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", models.ErrNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("get asset: %w", models.ErrNotFound), http.StatusNotFound},
		{"category in use", document.ErrCategoryInUse, http.StatusConflict},
		{"forbidden", models.ErrForbidden, http.StatusForbidden},
		{"invalid", fmt.Errorf("%w: campo obrigatório", models.ErrInvalid), http.StatusBadRequest},
		{"provider down", fmt.Errorf("%w: connection refused", gotrue.ErrUnreachable), http.StatusServiceUnavailable},
		{"provider rejection", &gotrue.Error{Status: http.StatusUnprocessableEntity, Message: "weak password"}, http.StatusUnprocessableEntity},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, tt.err)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestUserMessageStripsSentinelPrefix(t *testing.T) {
	err := fmt.Errorf("%w: categoria é obrigatória", models.ErrInvalid)
	assert.Equal(t, "categoria é obrigatória", userMessage(err))
	assert.Equal(t, "categoria em uso por documentos", userMessage(document.ErrCategoryInUse))
}
