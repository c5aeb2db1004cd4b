package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrLockNotObtained is returned when another instance holds the order lock
// for longer than the configured wait.
var ErrLockNotObtained = errors.New("transition lock not obtained")

// RedisTransitionLocker takes a per-order Redis lock around a transition
type RedisTransitionLocker struct {
	locker *redislock.Client
	ttl    time.Duration
	wait   time.Duration
	logger *zap.Logger
}

// NewRedisTransitionLocker creates a locker. ttl bounds how long a crashed
// holder blocks others; wait bounds how long Acquire retries.
func NewRedisTransitionLocker(client *redis.Client, ttl, wait time.Duration, logger *zap.Logger) *RedisTransitionLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisTransitionLocker{
		locker: redislock.New(client),
		ttl:    ttl,
		wait:   wait,
		logger: logger,
	}
}

func lockKey(orderID uuid.UUID) string {
	return keyPrefix + "lock:purchase-order:" + orderID.String()
}

// Acquire obtains the lock for orderID, retrying until wait elapses
func (l *RedisTransitionLocker) Acquire(ctx context.Context, orderID uuid.UUID) (func(), error) {
	obtainCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	key := lockKey(orderID)
	lock, err := l.locker.Obtain(obtainCtx, key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(25 * time.Millisecond),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", ErrLockNotObtained, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain transition lock: %w", err)
	}

	return func() {
		// the request context may already be cancelled here
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.logger.Warn("failed to release transition lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}
