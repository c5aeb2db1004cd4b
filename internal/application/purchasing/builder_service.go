package purchasing

import (
	"context"
	"fmt"

	"github.com/erp/procurement/internal/domain/purchasing"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/erp/procurement/internal/application/purchasing")

// BuilderConfig holds order builder settings
type BuilderConfig struct {
	NumberPrefix   string
	DefaultTaxRate decimal.Decimal
}

// OrderBuilderService assembles drafts and submits them as purchase orders
type OrderBuilderService struct {
	drafts         DraftStore
	orders         purchasing.PurchaseOrderRepository
	suppliers      purchasing.SupplierReader
	variants       purchasing.VariantRepository
	eventPublisher shared.EventPublisher
	config         BuilderConfig
	logger         *zap.Logger
}

// NewOrderBuilderService creates a new OrderBuilderService
func NewOrderBuilderService(
	drafts DraftStore,
	orders purchasing.PurchaseOrderRepository,
	suppliers purchasing.SupplierReader,
	variants purchasing.VariantRepository,
	config BuilderConfig,
	logger *zap.Logger,
) *OrderBuilderService {
	if config.NumberPrefix == "" {
		config.NumberPrefix = purchasing.DefaultOrderNumberPrefix
	}
	return &OrderBuilderService{
		drafts:    drafts,
		orders:    orders,
		suppliers: suppliers,
		variants:  variants,
		config:    config,
		logger:    logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *OrderBuilderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// CreateDraft starts a new draft order
func (s *OrderBuilderService) CreateDraft(ctx context.Context, req CreateDraftRequest) (*DraftResponse, error) {
	supplierID := uuid.Nil
	if req.SupplierID != nil {
		supplierID = *req.SupplierID
	}
	taxRate := s.config.DefaultTaxRate
	if req.TaxRate != nil {
		taxRate = *req.TaxRate
	}

	draft, err := purchasing.NewDraft(supplierID, req.ExternalReference, taxRate)
	if err != nil {
		return nil, err
	}
	if err := s.drafts.Save(ctx, draft, 0); err != nil {
		return nil, err
	}
	return draftResponse(draft)
}

// GetDraft returns a draft with its current totals
func (s *OrderBuilderService) GetDraft(ctx context.Context, draftID uuid.UUID) (*DraftResponse, error) {
	draft, err := s.drafts.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	return draftResponse(*draft)
}

// UpdateDraftHeader replaces the draft header fields
func (s *OrderBuilderService) UpdateDraftHeader(ctx context.Context, draftID uuid.UUID, req UpdateDraftHeaderRequest) (*DraftResponse, error) {
	return s.mutate(ctx, draftID, func(d purchasing.Draft) (purchasing.Draft, error) {
		header := purchasing.DraftHeader{
			SupplierID:           d.SupplierID,
			ExternalReference:    req.ExternalReference,
			OrderDate:            req.OrderDate,
			ExpectedDeliveryDate: req.ExpectedDeliveryDate,
			Notes:                req.Notes,
			TaxRate:              d.TaxRate,
		}
		if req.SupplierID != nil {
			header.SupplierID = *req.SupplierID
		}
		if req.TaxRate != nil {
			header.TaxRate = *req.TaxRate
		}
		return d.WithHeader(header)
	})
}

// AddLine adds a variant to the draft, defaulting its price from the catalog
func (s *OrderBuilderService) AddLine(ctx context.Context, draftID uuid.UUID, req AddLineRequest) (*DraftResponse, error) {
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	variant, err := s.variants.FindByID(ctx, req.VariantID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, draftID, func(d purchasing.Draft) (purchasing.Draft, error) {
		return d.AddLineItem(*variant, quantity)
	})
}

// UpdateQuantity sets the quantity of a draft line
func (s *OrderBuilderService) UpdateQuantity(ctx context.Context, draftID, variantID uuid.UUID, req UpdateQuantityRequest) (*DraftResponse, error) {
	return s.mutate(ctx, draftID, func(d purchasing.Draft) (purchasing.Draft, error) {
		return d.UpdateQuantity(variantID, req.Quantity)
	})
}

// UpdateDiscount sets the discount of a draft line
func (s *OrderBuilderService) UpdateDiscount(ctx context.Context, draftID, variantID uuid.UUID, req UpdateDiscountRequest) (*DraftResponse, error) {
	return s.mutate(ctx, draftID, func(d purchasing.Draft) (purchasing.Draft, error) {
		return d.UpdateDiscount(variantID, req.Kind, req.Value)
	})
}

// UpdateUnitPrice overrides the unit price of a draft line
func (s *OrderBuilderService) UpdateUnitPrice(ctx context.Context, draftID, variantID uuid.UUID, req UpdateUnitPriceRequest) (*DraftResponse, error) {
	return s.mutate(ctx, draftID, func(d purchasing.Draft) (purchasing.Draft, error) {
		return d.UpdateUnitPrice(variantID, req.UnitPrice)
	})
}

// RemoveLine removes a draft line
func (s *OrderBuilderService) RemoveLine(ctx context.Context, draftID, variantID uuid.UUID) (*DraftResponse, error) {
	return s.mutate(ctx, draftID, func(d purchasing.Draft) (purchasing.Draft, error) {
		return d.RemoveLine(variantID)
	})
}

// DiscardDraft deletes a draft without submitting it
func (s *OrderBuilderService) DiscardDraft(ctx context.Context, draftID uuid.UUID) error {
	if _, err := s.drafts.Get(ctx, draftID); err != nil {
		return err
	}
	return s.drafts.Delete(ctx, draftID)
}

// SubmitDraft persists the draft as a PENDING purchase order and discards the draft
func (s *OrderBuilderService) SubmitDraft(ctx context.Context, draftID uuid.UUID, req SubmitDraftRequest) (*PurchaseOrderResponse, error) {
	draft, err := s.drafts.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}

	params := draft.OrderParams(s.config.NumberPrefix)
	if req.SupplierID != nil {
		params.SupplierID = *req.SupplierID
	}
	if req.ExternalReference != nil {
		params.ExternalReference = *req.ExternalReference
	}
	if req.OrderDate != nil {
		params.OrderDate = *req.OrderDate
	}
	if req.ExpectedDeliveryDate != nil {
		params.ExpectedDeliveryDate = req.ExpectedDeliveryDate
	}
	if req.Notes != nil {
		params.Notes = *req.Notes
	}
	if req.TaxRate != nil {
		params.TaxRate = *req.TaxRate
	}

	resp, err := s.submit(ctx, params)
	if err != nil {
		return nil, err
	}

	if err := s.drafts.Delete(ctx, draftID); err != nil {
		s.logger.Warn("failed to discard submitted draft",
			zap.String("draft_id", draftID.String()),
			zap.Error(err),
		)
	}
	return resp, nil
}

// SubmitOrder builds and submits an order from inline lines in one call.
// Lines go through the same builder operations as an interactive draft.
func (s *OrderBuilderService) SubmitOrder(ctx context.Context, req CreatePurchaseOrderRequest) (*PurchaseOrderResponse, error) {
	if len(req.Lines) == 0 {
		return nil, shared.NewValidationError(shared.CodeEmptyOrder, "Purchase order must have at least one line item")
	}
	if req.SupplierID == uuid.Nil {
		return nil, shared.NewValidationError(shared.CodeMissingSupplier, "Supplier is required")
	}
	taxRate := s.config.DefaultTaxRate
	if req.TaxRate != nil {
		taxRate = *req.TaxRate
	}
	draft, err := purchasing.NewDraft(req.SupplierID, req.ExternalReference, taxRate)
	if err != nil {
		return nil, err
	}
	draft, err = draft.WithHeader(purchasing.DraftHeader{
		SupplierID:           req.SupplierID,
		ExternalReference:    req.ExternalReference,
		OrderDate:            req.OrderDate,
		ExpectedDeliveryDate: req.ExpectedDeliveryDate,
		Notes:                req.Notes,
		TaxRate:              taxRate,
	})
	if err != nil {
		return nil, err
	}

	for _, line := range req.Lines {
		if draft.HasVariant(line.VariantID) {
			return nil, shared.NewValidationError(shared.CodeDuplicateVariant,
				fmt.Sprintf("variant %s is already on the order", line.VariantID))
		}
		variant, err := s.variants.FindByID(ctx, line.VariantID)
		if err != nil {
			return nil, err
		}
		if draft, err = draft.AddLineItem(*variant, line.Quantity); err != nil {
			return nil, err
		}
		if line.UnitPrice != nil {
			if draft, err = draft.UpdateUnitPrice(line.VariantID, *line.UnitPrice); err != nil {
				return nil, err
			}
		}
		if draft, err = draft.UpdateDiscount(line.VariantID, line.DiscountKind, line.DiscountValue); err != nil {
			return nil, err
		}
	}

	return s.submit(ctx, draft.OrderParams(s.config.NumberPrefix))
}

func (s *OrderBuilderService) submit(ctx context.Context, params purchasing.OrderParams) (*PurchaseOrderResponse, error) {
	ctx, span := tracer.Start(ctx, "purchasing.Submit",
		trace.WithAttributes(attribute.Int("order.line_count", len(params.Lines))))
	defer span.End()

	// Structural checks first so EMPTY_ORDER and MISSING_SUPPLIER win over lookups
	order, err := purchasing.NewPurchaseOrder(params)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	supplier, err := s.suppliers.FindByID(ctx, order.SupplierID)
	if err != nil {
		return nil, err
	}
	if !supplier.IsActive() {
		return nil, shared.NewValidationError(shared.CodeInactiveSupplier,
			fmt.Sprintf("supplier %s is not active", supplier.LegalName))
	}

	ids := make([]uuid.UUID, len(order.Lines))
	for i, l := range order.Lines {
		ids[i] = l.VariantID
	}
	variants, err := s.variants.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	known := make(map[uuid.UUID]struct{}, len(variants))
	for _, v := range variants {
		known[v.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			return nil, shared.NewNotFoundError("product variant", id)
		}
	}

	if err := s.orders.Create(ctx, order); err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("order.id", order.ID.String()))

	s.logger.Info("purchase order submitted",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("supplier_id", order.SupplierID.String()),
		zap.String("grand_total", order.GrandTotal.String()),
		zap.Int("line_count", len(order.Lines)),
	)

	publishEvents(ctx, s.eventPublisher, s.logger, order)

	resp := ToPurchaseOrderResponse(order)
	return &resp, nil
}

func (s *OrderBuilderService) mutate(ctx context.Context, draftID uuid.UUID, op func(purchasing.Draft) (purchasing.Draft, error)) (*DraftResponse, error) {
	draft, err := s.drafts.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	next, err := op(*draft)
	if err != nil {
		return nil, err
	}
	if err := s.drafts.Save(ctx, next, draft.Revision); err != nil {
		return nil, err
	}
	return draftResponse(next)
}

func draftResponse(d purchasing.Draft) (*DraftResponse, error) {
	resp, err := ToDraftResponse(d)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// publishEvents dispatches and clears the aggregate's pending events. A
// failure is logged; the state change it describes is already committed.
func publishEvents(ctx context.Context, publisher shared.EventPublisher, logger *zap.Logger, order *purchasing.PurchaseOrder) {
	events := order.GetDomainEvents()
	order.ClearDomainEvents()
	if publisher == nil || len(events) == 0 {
		return
	}
	if err := publisher.Publish(ctx, events...); err != nil {
		logger.Error("failed to publish purchase order events",
			zap.String("order_id", order.ID.String()),
			zap.Int("event_count", len(events)),
			zap.Error(err),
		)
	}
}
