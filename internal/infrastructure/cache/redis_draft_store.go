package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/erp/procurement/internal/domain/purchasing"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisDraftStore keeps drafts as JSON under procurement:draft:<id>. Every
// save refreshes the TTL.
type RedisDraftStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDraftStore creates a draft store on an existing client
func NewRedisDraftStore(client *redis.Client, ttl time.Duration) *RedisDraftStore {
	return &RedisDraftStore{client: client, ttl: ttl}
}

func draftKey(id uuid.UUID) string {
	return keyPrefix + "draft:" + id.String()
}

// Get loads a draft
func (s *RedisDraftStore) Get(ctx context.Context, id uuid.UUID) (*purchasing.Draft, error) {
	data, err := s.client.Get(ctx, draftKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, shared.NewNotFoundError("draft", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load draft %s: %w", id, err)
	}

	var draft purchasing.Draft
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, fmt.Errorf("failed to decode draft %s: %w", id, err)
	}
	return &draft, nil
}

// Save writes draft when the stored revision matches expectedRevision. The
// key is watched so a concurrent writer aborts the transaction.
func (s *RedisDraftStore) Save(ctx context.Context, draft purchasing.Draft, expectedRevision int) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to encode draft %s: %w", draft.ID, err)
	}
	key := draftKey(draft.ID)

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := storedRevision(ctx, tx, key)
		if err != nil {
			return err
		}
		if current != expectedRevision {
			return shared.ErrConcurrencyConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return shared.ErrConcurrencyConflict
	case shared.KindOf(err) == shared.KindConflict:
		return err
	default:
		return fmt.Errorf("failed to save draft %s: %w", draft.ID, err)
	}
}

// Delete removes a draft
func (s *RedisDraftStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.client.Del(ctx, draftKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete draft %s: %w", id, err)
	}
	return nil
}

func storedRevision(ctx context.Context, tx *redis.Tx, key string) (int, error) {
	data, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var head struct {
		Revision int `json:"revision"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return 0, err
	}
	return head.Revision, nil
}
