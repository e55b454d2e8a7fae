package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apiMiddleware "github.com/phrazzld/pantognostis-api/internal/api/middleware"
)

// countingLimiter allows the first limit hits of each key.
type countingLimiter struct {
	mu   sync.Mutex
	hits map[string]int
	err  error
}

func (l *countingLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, 0, l.err
	}
	l.hits[key]++
	return l.hits[key] <= limit, 42 * time.Second, nil
}

func TestRouterRateLimit(t *testing.T) {
	t.Parallel()
	limiter := &countingLimiter{hits: map[string]int{}}
	ts := newTestServer(t, withLimiter(limiter, 2))
	login := LoginRequest{Email: "nobody@example.com", Password: testPassword}

	for i := 0; i < 2; i++ {
		rec := ts.do(t, http.MethodPost, "/api/auth/login", "", login)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := ts.do(t, http.MethodPost, "/api/auth/login", "", login)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "42", rec.Header().Get("Retry-After"))
	body := decode[errorBody](t, rec)
	assert.Equal(t, "Too many requests", body.Error)
	assert.NotEmpty(t, body.TraceID)

	// Catalog reads are not limited
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/courses", "", nil).Code)
	}

	// A broken limiter lets requests through
	limiter.mu.Lock()
	limiter.err = errors.New("redis: connection refused")
	limiter.mu.Unlock()
	rec = ts.do(t, http.MethodPost, "/api/auth/login", "", login)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouterBasics(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(apiMiddleware.TraceHeader))

	rec = ts.do(t, http.MethodGet, "/api/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, rec.Header().Get(apiMiddleware.TraceHeader), body.TraceID)

	rec = ts.do(t, http.MethodGet, "/api/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// A bad token on a public route is rejected rather than ignored
	rec = ts.do(t, http.MethodGet, "/api/courses", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/nowhere", "", nil).Code)
}
