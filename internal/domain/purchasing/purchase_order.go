package purchasing

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultOrderNumberPrefix is used when no prefix is configured
const DefaultOrderNumberPrefix = "PO"

// LineItem is one variant/quantity/price/discount entry of a purchase order
type LineItem struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	VariantID      uuid.UUID
	SKU            string
	Position       int
	Quantity       int
	UnitPrice      decimal.Decimal
	Discount       Discount
	DiscountAmount decimal.Decimal
	LineTotal      decimal.Decimal
}

// Subtotal returns quantity x unit price
func (l LineItem) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// PurchaseOrder is the aggregate root for a supplier purchase
type PurchaseOrder struct {
	shared.BaseAggregateRoot
	OrderNumber          string
	SupplierID           uuid.UUID
	ExternalReference    string
	OrderDate            time.Time
	ExpectedDeliveryDate *time.Time
	Notes                string
	TaxRate              decimal.Decimal
	Status               Status
	ReceivedAt           *time.Time
	Subtotal             decimal.Decimal
	DiscountTotal        decimal.Decimal
	TaxAmount            decimal.Decimal
	GrandTotal           decimal.Decimal
	Lines                []LineItem
}

// OrderLine is the submission input for one line
type OrderLine struct {
	VariantID uuid.UUID
	SKU       string
	Quantity  int
	UnitPrice decimal.Decimal
	Discount  Discount
}

// OrderParams carries everything needed to submit a purchase order
type OrderParams struct {
	SupplierID           uuid.UUID
	ExternalReference    string
	OrderDate            time.Time
	ExpectedDeliveryDate *time.Time
	Notes                string
	TaxRate              decimal.Decimal
	Lines                []OrderLine
	NumberPrefix         string
}

// NewPurchaseOrder validates params and creates a PENDING order with computed totals
func NewPurchaseOrder(params OrderParams) (*PurchaseOrder, error) {
	if len(params.Lines) == 0 {
		return nil, shared.NewValidationError(shared.CodeEmptyOrder, "Purchase order must have at least one line item")
	}
	if params.SupplierID == uuid.Nil {
		return nil, shared.NewValidationError(shared.CodeMissingSupplier, "Supplier is required")
	}

	seen := make(map[uuid.UUID]struct{}, len(params.Lines))
	priced := make([]PricedLine, 0, len(params.Lines))
	for _, l := range params.Lines {
		if _, dup := seen[l.VariantID]; dup {
			return nil, shared.NewValidationError(shared.CodeDuplicateVariant,
				fmt.Sprintf("variant %s appears more than once", l.VariantID))
		}
		seen[l.VariantID] = struct{}{}
		priced = append(priced, PricedLine{Quantity: l.Quantity, UnitPrice: l.UnitPrice, Discount: l.Discount})
	}

	totals, err := Calculate(priced, params.TaxRate)
	if err != nil {
		return nil, err
	}

	orderDate := params.OrderDate
	if orderDate.IsZero() {
		orderDate = time.Now()
	}
	prefix := params.NumberPrefix
	if prefix == "" {
		prefix = DefaultOrderNumberPrefix
	}

	order := &PurchaseOrder{
		BaseAggregateRoot:    shared.NewBaseAggregateRoot(),
		SupplierID:           params.SupplierID,
		ExternalReference:    strings.TrimSpace(params.ExternalReference),
		OrderDate:            orderDate,
		ExpectedDeliveryDate: params.ExpectedDeliveryDate,
		Notes:                params.Notes,
		TaxRate:              params.TaxRate,
		Status:               StatusPending,
	}
	order.OrderNumber = FormatOrderNumber(prefix, orderDate, order.ID)

	order.Lines = make([]LineItem, len(params.Lines))
	for i, l := range params.Lines {
		discount := l.Discount
		if discount.Kind == "" {
			discount = NoDiscount()
		}
		order.Lines[i] = LineItem{
			ID:             uuid.New(),
			OrderID:        order.ID,
			VariantID:      l.VariantID,
			SKU:            l.SKU,
			Position:       i + 1,
			Quantity:       l.Quantity,
			UnitPrice:      l.UnitPrice,
			Discount:       discount,
			DiscountAmount: totals.Lines[i].DiscountAmount,
			LineTotal:      totals.Lines[i].LineTotal,
		}
	}
	order.applyTotals(totals)

	order.AddDomainEvent(NewPurchaseOrderSubmittedEvent(order))
	return order, nil
}

// FormatOrderNumber renders <prefix>-<yyyymmdd>-<first 6 hex chars of id>
func FormatOrderNumber(prefix string, orderDate time.Time, id uuid.UUID) string {
	hex := strings.ReplaceAll(id.String(), "-", "")
	return fmt.Sprintf("%s-%s-%s", prefix, orderDate.Format("20060102"), strings.ToUpper(hex[:6]))
}

func (o *PurchaseOrder) applyTotals(t Totals) {
	o.Subtotal = t.Subtotal
	o.DiscountTotal = t.DiscountTotal
	o.TaxAmount = t.TaxAmount
	o.GrandTotal = t.GrandTotal
}

// Recalculate recomputes every derived amount from the lines
func (o *PurchaseOrder) Recalculate() error {
	priced := make([]PricedLine, len(o.Lines))
	for i, l := range o.Lines {
		priced[i] = PricedLine{Quantity: l.Quantity, UnitPrice: l.UnitPrice, Discount: l.Discount}
	}
	totals, err := Calculate(priced, o.TaxRate)
	if err != nil {
		return err
	}
	for i := range o.Lines {
		o.Lines[i].DiscountAmount = totals.Lines[i].DiscountAmount
		o.Lines[i].LineTotal = totals.Lines[i].LineTotal
	}
	o.applyTotals(totals)
	return nil
}

// TaxableBase returns subtotal minus discount total
func (o *PurchaseOrder) TaxableBase() decimal.Decimal {
	return o.Subtotal.Sub(o.DiscountTotal)
}

// IsReceived reports whether the receipt has been reconciled into stock.
// This, not Status, is the authority on whether stock was incremented.
func (o *PurchaseOrder) IsReceived() bool {
	return o.ReceivedAt != nil
}

// IsTerminal returns true if the order can no longer change
func (o *PurchaseOrder) IsTerminal() bool {
	return o.Status.IsTerminal()
}

// ItemCount returns the number of lines
func (o *PurchaseOrder) ItemCount() int {
	return len(o.Lines)
}

// GetLineByVariant returns the line for variantID, or nil
func (o *PurchaseOrder) GetLineByVariant(variantID uuid.UUID) *LineItem {
	for i := range o.Lines {
		if o.Lines[i].VariantID == variantID {
			return &o.Lines[i]
		}
	}
	return nil
}

// ApplyTransition moves the order to target according to plan. When the plan
// reconciles, ReceivedAt is stamped with now and a received event is raised.
// The caller is responsible for applying the stock effect in the same unit of work.
func (o *PurchaseOrder) ApplyTransition(plan TransitionPlan, now time.Time) error {
	if plan.Outcome != OutcomeApplied {
		return nil
	}
	if plan.From != o.Status {
		return shared.ErrConcurrencyConflict
	}
	if plan.Reconcile {
		if o.IsReceived() {
			return shared.NewConflictError(shared.CodeInvalidTransition,
				fmt.Sprintf("purchase order %s has already been received", o.OrderNumber))
		}
		receivedAt := now
		o.ReceivedAt = &receivedAt
	}

	o.Status = plan.To
	o.UpdatedAt = now
	o.IncrementVersion()

	o.AddDomainEvent(NewPurchaseOrderStatusChangedEvent(o, plan.From, plan.To))
	if plan.Reconcile {
		o.AddDomainEvent(NewPurchaseOrderReceivedEvent(o))
	}
	return nil
}
