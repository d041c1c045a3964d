// Package metadata stores small device-level facts (drain counters, the last
// drain time, the signed-in user) in the metadata key/value table.
package metadata

import (
	"context"
	"time"
)

type Repository interface {
	// Get returns (nil, nil) when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)

	// Incr adds delta to the integer stored at key (absent means 0) and
	// returns the new value.
	Incr(ctx context.Context, key string, delta int64) (int64, error)
	GetInt(ctx context.Context, key string) (int64, error)

	SetTime(ctx context.Context, key string, t time.Time) error
	// GetTime returns the zero time when the key is absent.
	GetTime(ctx context.Context, key string) (time.Time, error)
}

// Well-known keys.
const (
	KeySyncExhausted = "sync.exhausted"
	KeyLastDrain     = "sync.last_drain"
	KeyCurrentUser   = "session.user_id"
)
