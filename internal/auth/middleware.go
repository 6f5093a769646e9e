// Package auth verifies bearer tokens issued by the hosted auth provider.
//
// Claims are only trusted after signature verification; nothing is read out
// of an unverified token payload.
package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ativushq/ativus-backend/internal/tenant"
)

// Claims mirrors the provider's access-token payload. Tenant and role live
// under app_metadata.
type Claims struct {
	Email       string `json:"email"`
	Role        string `json:"role"`
	AppMetadata struct {
		TenantID string `json:"tenant_id"`
		Role     string `json:"role"`
	} `json:"app_metadata"`
	jwt.RegisteredClaims
}

type Middleware struct {
	secret     []byte
	serviceKey string
}

func NewMiddleware(jwtSecret, serviceKey string) *Middleware {
	return &Middleware{secret: []byte(jwtSecret), serviceKey: serviceKey}
}

// Authenticate extracts the bearer token, verifies it and attaches the
// caller's identity to the request context. The service key is accepted in
// place of a user token for privileged callers.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := extractBearerToken(r)
		if tokenStr == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		if m.serviceKey != "" && tokenStr == m.serviceKey {
			ctx := tenant.WithIdentity(r.Context(), &tenant.Identity{Role: "service_role", Token: tokenStr})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return m.secret, nil
		})
		if err != nil || !token.Valid {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		if claims.ExpiresAt != nil && claims.ExpiresAt.Time.Before(time.Now()) {
			writeError(w, http.StatusUnauthorized, "token expired")
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid user ID in token")
			return
		}

		identity := &tenant.Identity{
			UserID: userID,
			Email:  claims.Email,
			Role:   claims.Role,
			Token:  tokenStr,
		}
		if claims.AppMetadata.Role != "" {
			identity.Role = claims.AppMetadata.Role
		}
		if tid, err := uuid.Parse(claims.AppMetadata.TenantID); err == nil {
			identity.TenantID = tid
		}

		next.ServeHTTP(w, r.WithContext(tenant.WithIdentity(r.Context(), identity)))
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
