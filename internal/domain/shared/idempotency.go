package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers the response produced for a caller-supplied
// idempotency key so that a replayed request gets the same answer.
type IdempotencyStore interface {
	// Reserve claims key for the duration of ttl.
	// Returns false if the key was already claimed.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Complete stores the response payload for a reserved key
	Complete(ctx context.Context, key string, payload []byte, ttl time.Duration) error

	// Lookup returns the stored payload. found is false when the key is unknown;
	// payload is nil while the first request is still in flight.
	Lookup(ctx context.Context, key string) (payload []byte, found bool, err error)

	// Release drops a reservation whose request failed so it can be retried
	Release(ctx context.Context, key string) error

	Close() error
}
