package api_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/daniel-p-green/skillvault/pkg/api"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestGlobalRateLimiter_AllowsWithinBurst(t *testing.T) {
	limiter := api.NewGlobalRateLimiter(1, 3)
	handler := limiter.Middleware(okHandler())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/gate", nil)
		req.RemoteAddr = "203.0.113.5:12345"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "request %d within burst should be allowed", i)
	}
}

func TestGlobalRateLimiter_RejectsOverBurst(t *testing.T) {
	limiter := api.NewGlobalRateLimiter(1, 1)
	handler := limiter.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/gate", nil)
	req.RemoteAddr = "203.0.113.9:12345"

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, req)
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, req)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestGlobalRateLimiter_TracksVisitorsIndependently(t *testing.T) {
	limiter := api.NewGlobalRateLimiter(1, 1)
	handler := limiter.Middleware(okHandler())

	for _, addr := range []string{"203.0.113.1:1", "203.0.113.2:1"} {
		req := httptest.NewRequest(http.MethodPost, "/v1/gate", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
