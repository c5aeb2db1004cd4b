package purchasing

import (
	"time"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypePurchaseOrder is the aggregate type name carried on events
const AggregateTypePurchaseOrder = "PurchaseOrder"

// Event types
const (
	EventTypePurchaseOrderSubmitted     = "purchase_order.submitted"
	EventTypePurchaseOrderStatusChanged = "purchase_order.status_changed"
	EventTypePurchaseOrderReceived      = "purchase_order.received"
)

// PurchaseOrderSubmittedEvent is raised when an order is created from a draft
type PurchaseOrderSubmittedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string          `json:"order_number"`
	SupplierID  uuid.UUID       `json:"supplier_id"`
	GrandTotal  decimal.Decimal `json:"grand_total"`
	LineCount   int             `json:"line_count"`
}

// NewPurchaseOrderSubmittedEvent creates a PurchaseOrderSubmittedEvent
func NewPurchaseOrderSubmittedEvent(o *PurchaseOrder) *PurchaseOrderSubmittedEvent {
	return &PurchaseOrderSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseOrderSubmitted, AggregateTypePurchaseOrder, o.ID),
		OrderNumber:     o.OrderNumber,
		SupplierID:      o.SupplierID,
		GrandTotal:      o.GrandTotal,
		LineCount:       len(o.Lines),
	}
}

// PurchaseOrderStatusChangedEvent is raised on every applied transition
type PurchaseOrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string `json:"order_number"`
	FromStatus  Status `json:"from_status"`
	ToStatus    Status `json:"to_status"`
}

// NewPurchaseOrderStatusChangedEvent creates a PurchaseOrderStatusChangedEvent
func NewPurchaseOrderStatusChangedEvent(o *PurchaseOrder, from, to Status) *PurchaseOrderStatusChangedEvent {
	return &PurchaseOrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseOrderStatusChanged, AggregateTypePurchaseOrder, o.ID),
		OrderNumber:     o.OrderNumber,
		FromStatus:      from,
		ToStatus:        to,
	}
}

// ReceivedLine is one stock increment carried on PurchaseOrderReceivedEvent
type ReceivedLine struct {
	VariantID uuid.UUID `json:"variant_id"`
	Quantity  int       `json:"quantity"`
}

// PurchaseOrderReceivedEvent is raised once, when the receipt is reconciled
type PurchaseOrderReceivedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string         `json:"order_number"`
	SupplierID  uuid.UUID      `json:"supplier_id"`
	ReceivedAt  time.Time      `json:"received_at"`
	Lines       []ReceivedLine `json:"lines"`
}

// NewPurchaseOrderReceivedEvent creates a PurchaseOrderReceivedEvent
func NewPurchaseOrderReceivedEvent(o *PurchaseOrder) *PurchaseOrderReceivedEvent {
	lines := make([]ReceivedLine, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = ReceivedLine{VariantID: l.VariantID, Quantity: l.Quantity}
	}
	var receivedAt time.Time
	if o.ReceivedAt != nil {
		receivedAt = *o.ReceivedAt
	}
	return &PurchaseOrderReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseOrderReceived, AggregateTypePurchaseOrder, o.ID),
		OrderNumber:     o.OrderNumber,
		SupplierID:      o.SupplierID,
		ReceivedAt:      receivedAt,
		Lines:           lines,
	}
}
