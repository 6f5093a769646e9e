package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ativushq/ativus-backend/internal/tenant"
)

// KeyFunc derives the bucket key for a request.
type KeyFunc func(*http.Request) string

// ClientIP keys on the remote host, ignoring the ephemeral port so a client
// is not handed a fresh bucket per connection.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// AuthenticatedKey keys on the verified caller: one bucket per user, one
// shared bucket for service-key traffic. Unauthenticated requests fall back
// to the client IP.
func AuthenticatedKey(r *http.Request) string {
	id := tenant.IdentityFromContext(r.Context())
	switch {
	case id == nil:
		return ClientIP(r)
	case id.ServiceRole():
		return "service"
	default:
		return "user:" + id.UserID.String()
	}
}

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

const (
	bucketIdleTTL = 3 * time.Minute
	sweepInterval = time.Minute
)

// RateLimiter is a token bucket per key. Refill is computed lazily from the
// elapsed time at each request, and idle buckets are swept inline once per
// sweepInterval rather than on a background timer.
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	rate      float64 // tokens per second
	burst     float64
	key       KeyFunc
	nextSweep time.Time
}

func NewRateLimiter(rps float64, burst int, key KeyFunc) *RateLimiter {
	return &RateLimiter{
		buckets:   make(map[string]*bucket),
		rate:      rps,
		burst:     float64(burst),
		key:       key,
		nextSweep: time.Now().Add(sweepInterval),
	}
}

func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(rl.key(r), time.Now()) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{"error": "limite de requisições excedido"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(key string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.After(rl.nextSweep) {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) > bucketIdleTTL {
				delete(rl.buckets, k)
			}
		}
		rl.nextSweep = now.Add(sweepInterval)
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: rl.burst, lastSeen: now}
		rl.buckets[key] = b
	}

	b.tokens += now.Sub(b.lastSeen).Seconds() * rl.rate
	if b.tokens > rl.burst {
		b.tokens = rl.burst
	}
	b.lastSeen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}
