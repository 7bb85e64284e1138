// Package cache holds the Redis read-through cache for carts. The cache is
// strictly best-effort: a miss or failure falls back to the document store.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/deshikart/deshikart/internal/domain/cart"
)

var _ cart.Cache = (*CartCache)(nil)

// CartCache caches carts in Redis keyed by user.
type CartCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

// NewCartCache creates a cache with a 15 minute base TTL. A random jitter of
// up to 5 minutes is added per entry so a burst of writes does not expire as
// one thundering herd.
func NewCartCache(client *redis.Client) *CartCache {
	return &CartCache{
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

// The cart's version is excluded from its JSON form, but a cached cart must
// carry it or a later save would look like a fresh insert.
type envelope struct {
	Cart    *cart.Cart `json:"cart"`
	Version int64      `json:"version"`
}

// Get returns the cached cart for a user, or cart.ErrCacheMiss.
func (c *CartCache) Get(ctx context.Context, userID string) (*cart.Cart, error) {
	data, err := c.client.Get(ctx, cacheKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, cart.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshaling cached cart: %w", err)
	}
	env.Cart.Version = env.Version
	return env.Cart, nil
}

// Set stores the cart under the user's key.
func (c *CartCache) Set(ctx context.Context, crt *cart.Cart) error {
	data, err := json.Marshal(envelope{Cart: crt, Version: crt.Version})
	if err != nil {
		return fmt.Errorf("marshaling cart: %w", err)
	}

	jitter := time.Duration(rand.Intn(5)) * time.Minute
	if err := c.client.Set(ctx, cacheKey(crt.UserID), data, c.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate drops the user's cached cart.
func (c *CartCache) Invalidate(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

func cacheKey(userID string) string {
	return "cart:" + userID
}
