package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ativushq/ativus-backend/internal/tenant"
)

const testSecret = "test-jwt-secret"

func signToken(t *testing.T, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func runRequest(t *testing.T, authz string) (*httptest.ResponseRecorder, *tenant.Identity) {
	t.Helper()
	m := NewMiddleware(testSecret, "service-key")

	var got *tenant.Identity
	h := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = tenant.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/assets", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, got
}

func TestAuthenticateValidToken(t *testing.T) {
	userID := uuid.New()
	tenantID := uuid.New()

	claims := Claims{
		Email: "tech@acme.com",
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	claims.AppMetadata.TenantID = tenantID.String()
	claims.AppMetadata.Role = "admin"

	rec, identity := runRequest(t, "Bearer "+signToken(t, claims))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, identity)
	assert.Equal(t, userID, identity.UserID)
	assert.Equal(t, tenantID, identity.TenantID)
	assert.Equal(t, "admin", identity.Role)
	assert.False(t, identity.ServiceRole())
}

func TestAuthenticateMissingToken(t *testing.T) {
	rec, _ := runRequest(t, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateBadSignature(t *testing.T) {
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   uuid.New().String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("wrong-secret"))
	require.NoError(t, err)

	rec, _ := runRequest(t, "Bearer "+signed)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateExpiredToken(t *testing.T) {
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   uuid.New().String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}}
	rec, _ := runRequest(t, "Bearer "+signToken(t, claims))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateServiceKey(t *testing.T) {
	rec, identity := runRequest(t, "Bearer service-key")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, identity)
	assert.True(t, identity.ServiceRole())
	assert.Equal(t, uuid.Nil, identity.TenantID)
}
