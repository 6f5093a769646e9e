// Package handlers contains the HTTP layer: request decoding, tenant
// scoping and error mapping around the domain services.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ativushq/ativus-backend/internal/gotrue"
	"github.com/ativushq/ativus-backend/internal/models"
	"github.com/ativushq/ativus-backend/internal/tenant"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// errorBody is the envelope every failed request gets. details carries
// upstream provider messages, detail carries validation context.
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// writeServiceError maps domain and provider errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var gerr *gotrue.Error
	switch {
	case errors.Is(err, models.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "não encontrado", Detail: err.Error()})
	case errors.Is(err, models.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody{Error: userMessage(err)})
	case errors.Is(err, models.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorBody{Error: "acesso negado", Detail: err.Error()})
	case errors.Is(err, models.ErrInvalid):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: userMessage(err)})
	case errors.Is(err, gotrue.ErrUnreachable):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "serviço de autenticação indisponível", Details: err.Error()})
	case errors.As(err, &gerr):
		writeJSON(w, gerr.Status, errorBody{Error: gerr.Message})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "erro interno", Details: err.Error()})
	}
}

// userMessage strips the sentinel prefix wrapped by fmt.Errorf("%w: ...").
func userMessage(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{models.ErrConflict, models.ErrInvalid, models.ErrForbidden, models.ErrNotFound} {
		prefix := sentinel.Error() + ": "
		if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
			return msg[len(prefix):]
		}
	}
	return msg
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "corpo da requisição inválido")
		return false
	}
	return true
}

// pathID parses a uuid URL parameter, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "identificador inválido")
		return uuid.Nil, false
	}
	return id, true
}

// requireTenant resolves the caller's tenant scope. Service-role callers may
// select a tenant via the X-Tenant-ID header; end users are pinned to the
// tenant in their token.
func requireTenant(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id := tenant.IdentityFromContext(r.Context())
	if id == nil {
		writeError(w, http.StatusUnauthorized, "não autenticado")
		return uuid.Nil, false
	}
	if id.ServiceRole() {
		tid, err := uuid.Parse(r.Header.Get("X-Tenant-ID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "X-Tenant-ID obrigatório para chamadas de serviço")
			return uuid.Nil, false
		}
		return tid, true
	}
	if id.TenantID == uuid.Nil {
		writeError(w, http.StatusForbidden, "usuário sem tenant")
		return uuid.Nil, false
	}
	return id.TenantID, true
}

// actorID returns the caller's user id, or nil for service-role callers.
func actorID(r *http.Request) *uuid.UUID {
	id := tenant.IdentityFromContext(r.Context())
	if id == nil || id.ServiceRole() || id.UserID == uuid.Nil {
		return nil
	}
	uid := id.UserID
	return &uid
}
