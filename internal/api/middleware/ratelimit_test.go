package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ativushq/ativus-backend/internal/tenant"
)

func TestRateLimiterBurstThenRefill(t *testing.T) {
	rl := NewRateLimiter(1, 3, ClientIP)
	now := time.Now()

	for i := 0; i < 3; i++ {
		assert.True(t, rl.allow("a", now), "request %d within burst", i)
	}
	assert.False(t, rl.allow("a", now), "burst exhausted")

	// one token per second at rps=1
	assert.True(t, rl.allow("a", now.Add(time.Second)))
	assert.False(t, rl.allow("a", now.Add(time.Second)))
}

func TestRateLimiterKeysAreIsolated(t *testing.T) {
	rl := NewRateLimiter(1, 1, ClientIP)
	now := time.Now()

	assert.True(t, rl.allow("a", now))
	assert.False(t, rl.allow("a", now))
	assert.True(t, rl.allow("b", now), "a's exhaustion must not spill over")
}

func TestRateLimiterSweepsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(1, 1, ClientIP)
	now := time.Now()

	rl.allow("idle", now)
	rl.allow("fresh", now.Add(bucketIdleTTL))
	rl.allow("fresh", now.Add(bucketIdleTTL+sweepInterval+time.Second))

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.buckets, "idle")
	assert.Contains(t, rl.buckets, "fresh")
}

func TestClientIPStripsPort(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.1.2.3:54321"
	assert.Equal(t, "10.1.2.3", ClientIP(r))
}

func TestAuthenticatedKey(t *testing.T) {
	userID := uuid.New()

	anon := httptest.NewRequest(http.MethodGet, "/", nil)
	anon.RemoteAddr = "10.1.2.3:54321"
	assert.Equal(t, "10.1.2.3", AuthenticatedKey(anon))

	svc := httptest.NewRequest(http.MethodGet, "/", nil)
	svc = svc.WithContext(tenant.WithIdentity(svc.Context(), &tenant.Identity{Role: "service_role"}))
	assert.Equal(t, "service", AuthenticatedKey(svc))

	usr := httptest.NewRequest(http.MethodGet, "/", nil)
	usr = usr.WithContext(tenant.WithIdentity(usr.Context(), &tenant.Identity{UserID: userID, Role: "authenticated"}))
	assert.Equal(t, "user:"+userID.String(), AuthenticatedKey(usr))
}

func TestLimitRejectsWith429(t *testing.T) {
	rl := NewRateLimiter(0.001, 1, ClientIP)
	handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1000"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"limite de requisições excedido"}`, rec.Body.String())
}
