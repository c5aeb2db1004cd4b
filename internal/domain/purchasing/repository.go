package purchasing

import (
	"context"
	"time"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
)

// OrderFilter narrows a purchase order listing. Zero values mean "any".
type OrderFilter struct {
	shared.Filter
	SupplierID *uuid.UUID
	Status     *Status
	DateFrom   *time.Time
	DateTo     *time.Time
}

// PurchaseOrderRepository persists purchase orders. Orders are never deleted.
type PurchaseOrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)

	// FindByIDForUpdate loads the order holding a row lock until the
	// surrounding transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)

	// FindAll returns a page of orders matching filter plus the total match count
	FindAll(ctx context.Context, filter OrderFilter) ([]PurchaseOrder, int64, error)

	Create(ctx context.Context, order *PurchaseOrder) error

	// SaveTransition writes status, received_at and version for order, guarded
	// on expectedVersion. When claimReceipt is set the write additionally
	// requires received_at to still be NULL. Returns false if the guard failed.
	SaveTransition(ctx context.Context, order *PurchaseOrder, expectedVersion int, claimReceipt bool) (bool, error)
}

// SupplierReader looks up suppliers owned by the partner subsystem
type SupplierReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Supplier, error)
}

// VariantRepository reads variants and mutates their stock
type VariantRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ProductVariant, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]ProductVariant, error)

	// IncrementStock atomically adds amount to the variant's stock and
	// returns the resulting balance
	IncrementStock(ctx context.Context, id uuid.UUID, amount int) (int, error)
}

// StockMovementRepository records the stock ledger
type StockMovementRepository interface {
	Create(ctx context.Context, movement *StockMovement) error
	FindBySource(ctx context.Context, sourceType string, sourceID uuid.UUID) ([]StockMovement, error)
}
