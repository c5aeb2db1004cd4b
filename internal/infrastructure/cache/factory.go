package cache

import (
	"context"
	"fmt"
	"time"

	apppurchasing "github.com/erp/procurement/internal/application/purchasing"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/erp/procurement/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Stores bundles the request-state stores used by the purchasing services
type Stores struct {
	Drafts      apppurchasing.DraftStore
	Idempotency shared.IdempotencyStore
	// Locker is nil when Redis is not in use
	Locker apppurchasing.TransitionLocker

	client *redis.Client
}

// Close releases the idempotency store and the Redis client, if any
func (s *Stores) Close() error {
	if err := s.Idempotency.Close(); err != nil {
		return err
	}
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// UsesRedis reports whether the stores are Redis-backed
func (s *Stores) UsesRedis() bool {
	return s.client != nil
}

// StoreFactoryOption is a functional option for NewStores
type StoreFactoryOption func(*storeFactory)

type storeFactory struct {
	logger                *zap.Logger
	allowInMemoryFallback bool
	lockWait              time.Duration
}

// WithLogger sets the logger used by the factory and the locker
func WithLogger(logger *zap.Logger) StoreFactoryOption {
	return func(f *storeFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to
// in-memory stores. Default is true.
func WithInMemoryFallback(allow bool) StoreFactoryOption {
	return func(f *storeFactory) {
		f.allowInMemoryFallback = allow
	}
}

// WithLockWait sets how long a transition waits for the order lock
func WithLockWait(wait time.Duration) StoreFactoryOption {
	return func(f *storeFactory) {
		f.lockWait = wait
	}
}

// NewStores builds Redis-backed stores when cfg.Enabled, otherwise in-memory
// ones. In-memory stores do not share state across instances.
func NewStores(ctx context.Context, cfg config.RedisConfig, opts ...StoreFactoryOption) (*Stores, error) {
	f := &storeFactory{
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
		lockWait:              5 * time.Second,
	}
	for _, opt := range opts {
		opt(f)
	}

	if !cfg.Enabled {
		f.logger.Info("Redis disabled, using in-memory draft and idempotency stores")
		return inMemoryStores(cfg), nil
	}

	client, err := NewRedisClient(ctx, cfg)
	if err != nil {
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("redis required but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory stores. "+
			"Drafts and idempotency keys will not be shared between instances.",
			zap.Error(err),
		)
		return inMemoryStores(cfg), nil
	}

	f.logger.Info("Using Redis draft, idempotency and lock stores", zap.String("addr", cfg.Addr))
	return &Stores{
		Drafts:      NewRedisDraftStore(client, cfg.DraftTTL),
		Idempotency: NewRedisIdempotencyStore(client),
		Locker:      NewRedisTransitionLocker(client, cfg.LockTTL, f.lockWait, f.logger),
		client:      client,
	}, nil
}

func inMemoryStores(cfg config.RedisConfig) *Stores {
	return &Stores{
		Drafts:      NewInMemoryDraftStore(cfg.DraftTTL),
		Idempotency: NewInMemoryIdempotencyStore(),
	}
}
