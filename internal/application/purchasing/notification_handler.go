package purchasing

import (
	"context"

	"github.com/erp/procurement/internal/domain/purchasing"
	"github.com/erp/procurement/internal/domain/shared"
	"go.uber.org/zap"
)

// OrderNotificationHandler turns purchase order events into notification log
// entries for the staff-facing notification layer
type OrderNotificationHandler struct {
	logger *zap.Logger
}

// NewOrderNotificationHandler creates a new OrderNotificationHandler
func NewOrderNotificationHandler(logger *zap.Logger) *OrderNotificationHandler {
	return &OrderNotificationHandler{logger: logger.Named("notifications")}
}

// EventTypes returns the event types this handler is interested in
func (h *OrderNotificationHandler) EventTypes() []string {
	return []string{
		purchasing.EventTypePurchaseOrderSubmitted,
		purchasing.EventTypePurchaseOrderStatusChanged,
		purchasing.EventTypePurchaseOrderReceived,
	}
}

// Handle processes a purchase order event
func (h *OrderNotificationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *purchasing.PurchaseOrderSubmittedEvent:
		h.logger.Info("purchase order submitted",
			zap.String("order_number", e.OrderNumber),
			zap.String("supplier_id", e.SupplierID.String()),
			zap.String("grand_total", e.GrandTotal.String()),
		)
	case *purchasing.PurchaseOrderStatusChangedEvent:
		h.logger.Info("purchase order status changed",
			zap.String("order_number", e.OrderNumber),
			zap.String("from", e.FromStatus.String()),
			zap.String("to", e.ToStatus.String()),
		)
	case *purchasing.PurchaseOrderReceivedEvent:
		total := 0
		for _, l := range e.Lines {
			total += l.Quantity
		}
		h.logger.Info("purchase order received into stock",
			zap.String("order_number", e.OrderNumber),
			zap.Int("lines", len(e.Lines)),
			zap.Int("units", total),
		)
	default:
		h.logger.Debug("ignoring event", zap.String("event_type", event.EventType()))
	}
	return nil
}
