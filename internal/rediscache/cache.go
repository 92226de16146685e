// Package rediscache provides the optional Redis layer in front of the
// metadata store: recently validated bearer tokens and rendered job-status
// payloads. Every operation degrades to a cache miss when Redis is down,
// so the cache is never a correctness dependency.
package rediscache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultTTL bounds how long cached entries are served without a store
// round trip.
const DefaultTTL = 5 * time.Minute

// Config carries the connection settings for the cache.
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

// Cache wraps a Redis client. The zero value is not usable; build one
// with New.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// New builds a cache for the given connection settings. The connection is
// established lazily; call Ping to verify reachability.
func New(cfg Config, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	client := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Cache{client: client, ttl: ttl, logger: logger}
}

// Ping checks that Redis is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the client's connections.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Tokens are stored hashed so raw credentials never reach Redis.
func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "gobiome:token:" + hex.EncodeToString(sum[:])
}

func jobKey(jobID string) string {
	return "gobiome:job:" + jobID
}

// TokenSeen reports whether token was validated within the cache TTL.
func (c *Cache) TokenSeen(ctx context.Context, token string) bool {
	err := c.client.Get(ctx, tokenKey(token)).Err()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug("redis token lookup failed", zap.Error(err))
		}
		return false
	}
	return true
}

// RememberToken marks token as validated for the cache TTL. Only positive
// validations are cached; rejected tokens always hit the store.
func (c *Cache) RememberToken(ctx context.Context, token string) {
	if err := c.client.Set(ctx, tokenKey(token), "1", c.ttl).Err(); err != nil {
		c.logger.Debug("redis token store failed", zap.Error(err))
	}
}

// ForgetToken drops a cached token validation.
func (c *Cache) ForgetToken(ctx context.Context, token string) {
	if err := c.client.Del(ctx, tokenKey(token)).Err(); err != nil {
		c.logger.Debug("redis token delete failed", zap.Error(err))
	}
}

// JobPayload returns the cached status response for jobID, if present.
func (c *Cache) JobPayload(ctx context.Context, jobID string) ([]byte, bool) {
	payload, err := c.client.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug("redis job lookup failed", zap.Error(err))
		}
		return nil, false
	}
	return payload, true
}

// StoreJobPayload caches the rendered status response for jobID.
func (c *Cache) StoreJobPayload(ctx context.Context, jobID string, payload []byte) {
	if err := c.client.Set(ctx, jobKey(jobID), payload, c.ttl).Err(); err != nil {
		c.logger.Debug("redis job store failed", zap.Error(err))
	}
}

// InvalidateJob drops the cached status response for jobID. Called after
// every job mutation.
func (c *Cache) InvalidateJob(ctx context.Context, jobID string) {
	if err := c.client.Del(ctx, jobKey(jobID)).Err(); err != nil {
		c.logger.Debug("redis job invalidate failed", zap.Error(err))
	}
}
