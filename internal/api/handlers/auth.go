package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ativushq/ativus-backend/internal/gotrue"
	"github.com/ativushq/ativus-backend/internal/tenant"
	"github.com/ativushq/ativus-backend/internal/user"
)

type AuthHandler struct {
	auth  *gotrue.Client
	users *user.Service
}

func NewAuthHandler(auth *gotrue.Client, users *user.Service) *AuthHandler {
	return &AuthHandler{auth: auth, users: users}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email e senha são obrigatórios")
		return
	}

	session, err := h.auth.SignInWithPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		writeLoginError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// writeLoginError reshapes provider rejections: a banned account is 403, any
// other 4xx rejection is invalid credentials. Transport failures keep the
// 503 mapping of writeServiceError.
func writeLoginError(w http.ResponseWriter, err error) {
	var gerr *gotrue.Error
	if errors.As(err, &gerr) && gerr.Status < http.StatusInternalServerError {
		msg := strings.ToLower(gerr.Message)
		if strings.Contains(msg, "banned") || strings.Contains(msg, "blocked") {
			writeJSON(w, http.StatusForbidden, errorBody{Error: "usuário bloqueado", Details: gerr.Message})
			return
		}
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "credenciais inválidas", Details: gerr.Message})
		return
	}
	writeServiceError(w, err)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token é obrigatório")
		return
	}

	session, err := h.auth.RefreshSession(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// Me returns the caller's auth record alongside their profile row.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id := tenant.IdentityFromContext(r.Context())
	if id == nil || id.ServiceRole() {
		writeError(w, http.StatusUnauthorized, "não autenticado")
		return
	}

	u, err := h.auth.GetUser(r.Context(), id.Token)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	profile, err := h.users.GetProfile(r.Context(), id.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": u, "profile": profile})
}

type passwordRequest struct {
	Password string `json:"password"`
}

// UpdatePassword changes the caller's own password using their bearer token.
func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	id := tenant.IdentityFromContext(r.Context())
	if id == nil || id.Token == "" {
		writeError(w, http.StatusUnauthorized, "não autenticado")
		return
	}

	var req passwordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Password) < 6 {
		writeError(w, http.StatusBadRequest, "senha deve ter ao menos 6 caracteres")
		return
	}

	if err := h.auth.UpdatePassword(r.Context(), id.Token, req.Password); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
