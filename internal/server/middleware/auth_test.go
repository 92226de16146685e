package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() (http.Handler, *bool) {
	called := false
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}), &called
}

func TestBearerAuth_ValidToken(t *testing.T) {
	handler, called := okHandler()
	middleware := BearerAuth(func(ctx context.Context, token string) (bool, error) {
		assert.Equal(t, "secret-token", token)
		return true, nil
	})(handler)

	req := httptest.NewRequest("GET", "/api/v1/jobs/abc", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	rec := httptest.NewRecorder()

	middleware.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, *called)
}

func TestBearerAuth_MissingHeader(t *testing.T) {
	handler, called := okHandler()
	middleware := BearerAuth(func(ctx context.Context, token string) (bool, error) {
		t.Fatal("validator should not run without a token")
		return false, nil
	})(handler)

	req := httptest.NewRequest("GET", "/api/v1/jobs/abc", nil)
	rec := httptest.NewRecorder()

	middleware.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, *called)

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "UNAUTHORIZED", response.Error.Code)
}

func TestBearerAuth_MalformedHeader(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
		{"no token", "Bearer "},
		{"bare token", "secret-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, called := okHandler()
			middleware := BearerAuth(func(ctx context.Context, token string) (bool, error) {
				return true, nil
			})(handler)

			req := httptest.NewRequest("GET", "/api/v1/jobs/abc", nil)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()

			middleware.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.False(t, *called)
		})
	}
}

func TestBearerAuth_InvalidToken(t *testing.T) {
	handler, called := okHandler()
	middleware := BearerAuth(func(ctx context.Context, token string) (bool, error) {
		return false, nil
	})(handler)

	req := httptest.NewRequest("GET", "/api/v1/jobs/abc", nil)
	req.Header.Set("Authorization", "Bearer stale-token")
	rec := httptest.NewRecorder()

	middleware.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, *called)

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "UNAUTHORIZED", response.Error.Code)
	assert.Equal(t, "invalid or expired token", response.Error.Message)
}

func TestBearerAuth_ValidatorError(t *testing.T) {
	handler, called := okHandler()
	middleware := BearerAuth(func(ctx context.Context, token string) (bool, error) {
		return false, assert.AnError
	})(handler)

	req := httptest.NewRequest("GET", "/api/v1/jobs/abc", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	rec := httptest.NewRecorder()

	middleware.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, *called)

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "INTERNAL_ERROR", response.Error.Code)
}
