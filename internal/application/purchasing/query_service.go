package purchasing

import (
	"context"
	"strings"
	"time"

	"github.com/erp/procurement/internal/domain/purchasing"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// QueryConfig bounds listing page sizes
type QueryConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

// OrderQueryService is the read path for persisted purchase orders
type OrderQueryService struct {
	orders    purchasing.PurchaseOrderRepository
	movements purchasing.StockMovementRepository
	config    QueryConfig
}

// NewOrderQueryService creates a new OrderQueryService
func NewOrderQueryService(orders purchasing.PurchaseOrderRepository, movements purchasing.StockMovementRepository, config QueryConfig) *OrderQueryService {
	if config.DefaultPageSize <= 0 {
		config.DefaultPageSize = 20
	}
	if config.MaxPageSize < config.DefaultPageSize {
		config.MaxPageSize = 100
	}
	return &OrderQueryService{orders: orders, movements: movements, config: config}
}

// ListOrders returns orders matching filter, newest order date first unless
// ascending order is requested. No match yields an empty page, not an error.
func (s *OrderQueryService) ListOrders(ctx context.Context, filter ListOrdersFilter) (*shared.Paginated[PurchaseOrderListItemResponse], error) {
	ctx, span := tracer.Start(ctx, "purchasing.ListOrders")
	defer span.End()

	domainFilter, err := s.toDomainFilter(filter)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("query.page", domainFilter.Page),
		attribute.Int("query.page_size", domainFilter.PageSize),
	)

	orders, total, err := s.orders.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int64("query.total", total))

	page := shared.NewPaginated(ToPurchaseOrderListItemResponses(orders), total, domainFilter.Page, domainFilter.PageSize)
	return &page, nil
}

// GetOrder returns one order with its lines
func (s *OrderQueryService) GetOrder(ctx context.Context, orderID uuid.UUID) (*PurchaseOrderResponse, error) {
	ctx, span := tracer.Start(ctx, "purchasing.GetOrder", trace.WithAttributes(attribute.String("order.id", orderID.String())))
	defer span.End()

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	resp := ToPurchaseOrderResponse(order)
	return &resp, nil
}

// ListStockMovements returns the stock ledger rows written when the order was received
func (s *OrderQueryService) ListStockMovements(ctx context.Context, orderID uuid.UUID) ([]StockMovementResponse, error) {
	if _, err := s.orders.FindByID(ctx, orderID); err != nil {
		return nil, err
	}
	movements, err := s.movements.FindBySource(ctx, purchasing.StockSourcePurchaseReceipt, orderID)
	if err != nil {
		return nil, err
	}
	return ToStockMovementResponses(movements), nil
}

func (s *OrderQueryService) toDomainFilter(filter ListOrdersFilter) (purchasing.OrderFilter, error) {
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = s.config.DefaultPageSize
	}
	if pageSize > s.config.MaxPageSize {
		pageSize = s.config.MaxPageSize
	}
	orderDir := strings.ToLower(filter.SortOrder)
	if orderDir != "asc" {
		orderDir = "desc"
	}

	out := purchasing.OrderFilter{
		Filter: shared.Filter{
			Page:     page,
			PageSize: pageSize,
			OrderBy:  "order_date",
			OrderDir: orderDir,
			Search:   strings.TrimSpace(filter.Search),
		},
		DateFrom: filter.DateFrom,
	}
	if filter.SupplierID != "" {
		supplierID, err := uuid.Parse(filter.SupplierID)
		if err != nil {
			return out, shared.NewValidationError(shared.CodeValidation, "supplier_id must be a valid UUID")
		}
		out.SupplierID = &supplierID
	}
	if filter.Status != "" {
		status, err := purchasing.ParseStatus(filter.Status)
		if err != nil {
			return out, err
		}
		out.Status = &status
	}
	if filter.DateTo != nil {
		// inclusive upper bound: a bare date covers the whole day
		to := *filter.DateTo
		if isStartOfDay(to) {
			to = to.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		out.DateTo = &to
	}
	if out.DateFrom != nil && out.DateTo != nil && out.DateTo.Before(*out.DateFrom) {
		return out, shared.NewValidationError(shared.CodeValidation, "date_to must not be before date_from")
	}
	return out, nil
}

// isStartOfDay reports whether t is midnight in its own location
func isStartOfDay(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}
