package purchasing

import (
	"context"

	"github.com/erp/procurement/internal/domain/purchasing"
	"github.com/google/uuid"
)

// TransactionScope runs fn inside one atomic unit of work. The repositories
// handed to fn share the transaction; an error from fn rolls everything back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes the repositories bound to a transaction
type TransactionalRepositories interface {
	Orders() purchasing.PurchaseOrderRepository
	Variants() purchasing.VariantRepository
	Movements() purchasing.StockMovementRepository
}

// DraftStore keeps drafts between requests. Save is a compare-and-set on
// the draft revision: it fails with CONCURRENT_MODIFICATION when the stored
// revision is not expectedRevision. expectedRevision 0 means "must not exist".
type DraftStore interface {
	Get(ctx context.Context, id uuid.UUID) (*purchasing.Draft, error)
	Save(ctx context.Context, draft purchasing.Draft, expectedRevision int) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// TransitionLocker serialises transition requests for one order across
// processes. It is advisory; the database guard decides correctness.
type TransitionLocker interface {
	Acquire(ctx context.Context, orderID uuid.UUID) (release func(), err error)
}

type noopLocker struct{}

func (noopLocker) Acquire(context.Context, uuid.UUID) (func(), error) {
	return func() {}, nil
}

// TransitionMetrics receives transition outcomes and reconciled stock units
type TransitionMetrics interface {
	RecordTransition(ctx context.Context, outcome, from, to string)
	RecordStockReceived(ctx context.Context, units int64)
	RecordIdempotentReplay(ctx context.Context, served bool)
}

type noopMetrics struct{}

func (noopMetrics) RecordTransition(context.Context, string, string, string) {}
func (noopMetrics) RecordStockReceived(context.Context, int64)               {}
func (noopMetrics) RecordIdempotentReplay(context.Context, bool)             {}
