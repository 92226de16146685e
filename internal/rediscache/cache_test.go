package rediscache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The cache must behave as a plain miss when Redis is unreachable. These
// tests point the client at a port nothing listens on.
func newUnreachableCache(t *testing.T) *Cache {
	t.Helper()
	cache := New(Config{Host: "127.0.0.1", Port: 1, TTL: time.Minute}, nil)
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestPingUnreachable(t *testing.T) {
	cache := newUnreachableCache(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.Error(t, cache.Ping(ctx))
}

func TestTokenOpsDegradeToMiss(t *testing.T) {
	cache := newUnreachableCache(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	assert.NotPanics(t, func() {
		cache.RememberToken(ctx, "tok")
		assert.False(t, cache.TokenSeen(ctx, "tok"))
		cache.ForgetToken(ctx, "tok")
	})
}

func TestJobPayloadOpsDegradeToMiss(t *testing.T) {
	cache := newUnreachableCache(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	assert.NotPanics(t, func() {
		cache.StoreJobPayload(ctx, "job-1", []byte(`{"success":true}`))
		_, ok := cache.JobPayload(ctx, "job-1")
		assert.False(t, ok)
		cache.InvalidateJob(ctx, "job-1")
	})
}

func TestTokenKeyHashesToken(t *testing.T) {
	key := tokenKey("super-secret")
	assert.NotContains(t, key, "super-secret")
	assert.Contains(t, key, "gobiome:token:")
	assert.Equal(t, key, tokenKey("super-secret"))
	assert.NotEqual(t, key, tokenKey("other-secret"))
}
