package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileURLRecorder(t *testing.T, h *FieldUpdateHandler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/field-updates/file-url",
		strings.NewReader(`{"path":"`+path+`"}`))
	req = req.WithContext(tenantCtx(uuid.New(), uuid.New()))
	rec := httptest.NewRecorder()
	h.FileURL(rec, req)
	return rec
}

func TestFileURLSignsStoredPath(t *testing.T) {
	store := &fakeStore{}
	h := NewFieldUpdateHandler(nil, store, "documents", nil)

	rec := fileURLRecorder(t, h, "documents/field-updates/t1/u1/foto.jpg")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "https://signed.example/documents/field-updates/t1/u1/foto.jpg", body["url"])
}

func TestFileURLPassesThroughAbsoluteURL(t *testing.T) {
	store := &fakeStore{}
	h := NewFieldUpdateHandler(nil, store, "documents", nil)

	rec := fileURLRecorder(t, h, "https://example.com/ext.pdf")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "https://example.com/ext.pdf", body["url"])
	assert.Empty(t, store.signed, "external links never hit the signer")
}

func TestFileURLMissingPath(t *testing.T) {
	h := NewFieldUpdateHandler(nil, &fakeStore{}, "documents", nil)
	rec := fileURLRecorder(t, h, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
