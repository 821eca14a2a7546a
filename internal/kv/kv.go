// Package kv is the thin key-value layer shared by the conversation history
// and reminder stores. It models the subset of Redis semantics those stores
// need: plain string values with optional expiry and a score-ordered set.
package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotConfigured is returned by Open when a backend is requested but the
// settings it needs are missing.
var ErrNotConfigured = errors.New("kv: backend not configured")

// Store is the key-value contract. Implementations must be safe for
// concurrent use by independent keys.
type Store interface {
	// Get returns the value for key. found is false when the key is absent
	// or expired.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set writes value under key. A ttl of zero stores the value without
	// expiry; a positive ttl replaces any previous expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Del removes the given keys regardless of type. Missing keys are ignored.
	Del(ctx context.Context, keys ...string) error

	// ZAdd inserts member into the sorted set at key, or updates its score.
	ZAdd(ctx context.Context, key string, score float64, member string) error

	// ZRangeByScore returns members with min <= score <= max in ascending
	// score order.
	ZRangeByScore(ctx context.Context, key string, min, max float64) ([]string, error)

	// ZRem removes members from the sorted set at key. Missing members are ignored.
	ZRem(ctx context.Context, key string, members ...string) error

	// Ping checks connectivity with the backend.
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	// Backend is "redis", "sqlite" or empty. Empty picks redis when RedisURL
	// is set and otherwise leaves the store unconfigured.
	Backend  string
	RedisURL string
	DataDir  string
}

// Open builds the store described by opts. It returns (nil, nil) when no
// backend is configured; callers treat a nil Store as "feature disabled".
func Open(opts Options) (Store, error) {
	backend := strings.ToLower(strings.TrimSpace(opts.Backend))
	if backend == "" && opts.RedisURL != "" {
		backend = "redis"
	}

	switch backend {
	case "":
		return nil, nil
	case "redis":
		if opts.RedisURL == "" {
			return nil, fmt.Errorf("%w: redis backend requires REDIS_URL", ErrNotConfigured)
		}
		r, err := NewRedis(opts.RedisURL)
		if err != nil {
			return nil, err
		}
		return r, nil
	case "sqlite":
		if opts.DataDir == "" {
			return nil, fmt.Errorf("%w: sqlite backend requires a data directory", ErrNotConfigured)
		}
		s, err := OpenSQLite(opts.DataDir)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown kv backend %q", opts.Backend)
	}
}
