package cache

import (
	"context"
	"testing"
	"time"

	"github.com/erp/procurement/internal/domain/purchasing"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDraft(t *testing.T) purchasing.Draft {
	t.Helper()
	d, err := purchasing.NewDraft(uuid.New(), "REF-1", decimal.NewFromInt(8))
	require.NoError(t, err)
	return d
}

func TestInMemoryDraftStore_SaveAndGet(t *testing.T) {
	store := NewInMemoryDraftStore(time.Hour)
	ctx := context.Background()
	draft := newTestDraft(t)

	require.NoError(t, store.Save(ctx, draft, 0))

	got, err := store.Get(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, draft.ID, got.ID)
	assert.Equal(t, 1, got.Revision)
	assert.Equal(t, "REF-1", got.ExternalReference)
	assert.Equal(t, 1, store.Len())
}

func TestInMemoryDraftStore_GetMissing(t *testing.T) {
	store := NewInMemoryDraftStore(time.Hour)

	_, err := store.Get(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, shared.KindNotFound, shared.KindOf(err))
}

func TestInMemoryDraftStore_CompareAndSet(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name             string
		seed             bool
		expectedRevision int
		wantConflict     bool
	}{
		{name: "create when absent", seed: false, expectedRevision: 0},
		{name: "create over existing", seed: true, expectedRevision: 0, wantConflict: true},
		{name: "update with current revision", seed: true, expectedRevision: 1},
		{name: "update with stale revision", seed: true, expectedRevision: 2, wantConflict: true},
		{name: "update when absent", seed: false, expectedRevision: 1, wantConflict: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewInMemoryDraftStore(time.Hour)
			draft := newTestDraft(t)
			if tt.seed {
				require.NoError(t, store.Save(ctx, draft, 0))
			}

			next := draft
			next.Revision = tt.expectedRevision + 1
			err := store.Save(ctx, next, tt.expectedRevision)
			if tt.wantConflict {
				require.Error(t, err)
				assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestInMemoryDraftStore_StoresCopies(t *testing.T) {
	store := NewInMemoryDraftStore(time.Hour)
	ctx := context.Background()
	draft := newTestDraft(t)
	draft.Lines = []purchasing.DraftLine{{VariantID: uuid.New(), SKU: "SKU-1", Quantity: 2}}
	require.NoError(t, store.Save(ctx, draft, 0))

	draft.Lines[0].Quantity = 99

	got, err := store.Get(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Lines[0].Quantity)

	got.Lines[0].Quantity = 50
	again, err := store.Get(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Lines[0].Quantity)
}

func TestInMemoryDraftStore_Expiry(t *testing.T) {
	store := NewInMemoryDraftStore(time.Minute)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()
	draft := newTestDraft(t)
	require.NoError(t, store.Save(ctx, draft, 0))

	now = now.Add(59 * time.Second)
	_, err := store.Get(ctx, draft.ID)
	require.NoError(t, err)

	now = now.Add(time.Second)
	_, err = store.Get(ctx, draft.ID)
	assert.Equal(t, shared.KindNotFound, shared.KindOf(err))

	// an expired draft no longer blocks a fresh create
	require.NoError(t, store.Save(ctx, draft, 0))
}

func TestInMemoryDraftStore_Delete(t *testing.T) {
	store := NewInMemoryDraftStore(0)
	ctx := context.Background()
	draft := newTestDraft(t)
	require.NoError(t, store.Save(ctx, draft, 0))

	require.NoError(t, store.Delete(ctx, draft.ID))
	require.NoError(t, store.Delete(ctx, draft.ID))
	assert.Equal(t, 0, store.Len())
}
