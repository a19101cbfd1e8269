// Package redis holds the rate-limit marker store backing the OTP cooldown.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xlink-api/internal/config"
)

// MarkerStore records short-TTL "recently requested" markers. While a marker
// is present, new OTP issuance for that identity is rejected. Markers expire
// on their own; nothing ever deletes them explicitly.
type MarkerStore struct {
	client *redis.Client
}

func NewClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func NewMarkerStore(client *redis.Client) *MarkerStore {
	return &MarkerStore{client: client}
}

// Acquire sets the marker if absent, in one atomic round trip (SET NX EX).
// Returns true when the marker was set, false when one is already present.
func (s *MarkerStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, "otp:cooldown:"+key, "1", ttl).Result()
}
