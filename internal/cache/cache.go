package cache

import (
	"context"
	"time"
)

// Cache backs two concerns: short-TTL job detail caching and the
// logout token denylist.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error

	// Deny marks a token id revoked until its natural expiry.
	Deny(ctx context.Context, tokenID string, ttl time.Duration) error
	IsDenied(ctx context.Context, tokenID string) (bool, error)
}
