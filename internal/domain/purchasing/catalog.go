package purchasing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SupplierStatus represents whether a supplier may receive new orders
type SupplierStatus string

const (
	SupplierStatusActive   SupplierStatus = "ACTIVE"
	SupplierStatusInactive SupplierStatus = "INACTIVE"
)

// Supplier is read from the partner subsystem; the order engine never mutates it
type Supplier struct {
	ID           uuid.UUID
	LegalName    string
	TaxID        string
	ContactName  string
	ContactEmail string
	ContactPhone string
	Status       SupplierStatus
}

// IsActive returns true if the supplier accepts new orders
func (s *Supplier) IsActive() bool {
	return s.Status == SupplierStatusActive
}

// ProductVariant is owned by the catalog. The order engine reads its prices as
// defaults and increments its stock on receipt.
type ProductVariant struct {
	ID            uuid.UUID
	ProductID     uuid.UUID
	SKU           string
	Color         string
	Size          string
	StockQuantity int
	CostPrice     decimal.Decimal
	SalePrice     decimal.Decimal
}

// StockSourcePurchaseReceipt tags movements produced by receiving a purchase order
const StockSourcePurchaseReceipt = "PURCHASE_RECEIPT"

// StockMovement is a ledger row describing one stock change
type StockMovement struct {
	ID            uuid.UUID
	VariantID     uuid.UUID
	SourceType    string
	SourceID      uuid.UUID
	Quantity      int
	BalanceBefore int
	BalanceAfter  int
	CreatedAt     time.Time
}

// NewReceiptMovement records an increment of quantity applied for order orderID
func NewReceiptMovement(orderID, variantID uuid.UUID, quantity, balanceAfter int, at time.Time) StockMovement {
	return StockMovement{
		ID:            uuid.New(),
		VariantID:     variantID,
		SourceType:    StockSourcePurchaseReceipt,
		SourceID:      orderID,
		Quantity:      quantity,
		BalanceBefore: balanceAfter - quantity,
		BalanceAfter:  balanceAfter,
		CreatedAt:     at,
	}
}
