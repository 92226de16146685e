package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimit_AllowsWithinBurst(t *testing.T) {
	handler, _ := okHandler()
	middleware := RateLimit(1, 3)(handler)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/api/v1/jobs/abc", nil)
		req.RemoteAddr = "10.0.0.1:54321"
		rec := httptest.NewRecorder()

		middleware.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, "request %d should pass", i+1)
	}
}

func TestRateLimit_RejectsBeyondBurst(t *testing.T) {
	handler, _ := okHandler()
	middleware := RateLimit(1, 1)(handler)

	first := httptest.NewRequest("GET", "/api/v1/jobs/abc", nil)
	first.RemoteAddr = "10.0.0.2:54321"
	rec := httptest.NewRecorder()
	middleware.ServeHTTP(rec, first)
	require.Equal(t, http.StatusOK, rec.Code)

	second := httptest.NewRequest("GET", "/api/v1/jobs/abc", nil)
	second.RemoteAddr = "10.0.0.2:54321"
	rec = httptest.NewRecorder()
	middleware.ServeHTTP(rec, second)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "RATE_LIMITED", response.Error.Code)
}

func TestRateLimit_KeysClientsIndependently(t *testing.T) {
	handler, _ := okHandler()
	middleware := RateLimit(1, 1)(handler)

	// Exhaust the first client's burst.
	req := httptest.NewRequest("GET", "/api/v1/jobs/abc", nil)
	req.Header.Set("Authorization", "Bearer token-a")
	rec := httptest.NewRecorder()
	middleware.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest("GET", "/api/v1/jobs/abc", nil)
	req.Header.Set("Authorization", "Bearer token-a")
	rec = httptest.NewRecorder()
	middleware.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	// A different token is a different client.
	req = httptest.NewRequest("GET", "/api/v1/jobs/abc", nil)
	req.Header.Set("Authorization", "Bearer token-b")
	rec = httptest.NewRecorder()
	middleware.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "192.168.1.5:9999"
	assert.Equal(t, "addr:192.168.1.5", clientKey(req))

	req.Header.Set("Authorization", "Bearer abc123")
	assert.Equal(t, "token:abc123", clientKey(req))
}
