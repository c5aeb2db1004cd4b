package purchasing

import (
	"time"

	"github.com/erp/procurement/internal/domain/purchasing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateDraftRequest represents a request to start a draft order
type CreateDraftRequest struct {
	SupplierID        *uuid.UUID       `json:"supplier_id"`
	ExternalReference string           `json:"external_reference" binding:"max=100"`
	TaxRate           *decimal.Decimal `json:"tax_rate" binding:"omitempty,decimal_gte0"`
}

// UpdateDraftHeaderRequest replaces the header fields of a draft
type UpdateDraftHeaderRequest struct {
	SupplierID           *uuid.UUID       `json:"supplier_id"`
	ExternalReference    string           `json:"external_reference" binding:"max=100"`
	OrderDate            *time.Time       `json:"order_date"`
	ExpectedDeliveryDate *time.Time       `json:"expected_delivery_date"`
	Notes                string           `json:"notes" binding:"max=2000"`
	TaxRate              *decimal.Decimal `json:"tax_rate"`
}

// AddLineRequest adds a variant to a draft. Quantity defaults to 1.
type AddLineRequest struct {
	VariantID uuid.UUID `json:"variant_id" binding:"required"`
	Quantity  *int      `json:"quantity"`
}

// UpdateQuantityRequest sets a line quantity
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateDiscountRequest sets a line discount
type UpdateDiscountRequest struct {
	Kind  purchasing.DiscountKind `json:"kind" binding:"required"`
	Value decimal.Decimal         `json:"value" binding:"decimal_gte0"`
}

// UpdateUnitPriceRequest overrides a line unit price
type UpdateUnitPriceRequest struct {
	UnitPrice decimal.Decimal `json:"unit_price" binding:"decimal_gte0"`
}

// SubmitDraftRequest optionally overrides header fields at submission time
type SubmitDraftRequest struct {
	SupplierID           *uuid.UUID       `json:"supplier_id"`
	ExternalReference    *string          `json:"external_reference"`
	OrderDate            *time.Time       `json:"order_date"`
	ExpectedDeliveryDate *time.Time       `json:"expected_delivery_date"`
	Notes                *string          `json:"notes"`
	TaxRate              *decimal.Decimal `json:"tax_rate"`
}

// CreatePurchaseOrderLineInput is one inline line of a direct submission
type CreatePurchaseOrderLineInput struct {
	VariantID     uuid.UUID               `json:"variant_id" binding:"required"`
	Quantity      int                     `json:"quantity"`
	UnitPrice     *decimal.Decimal        `json:"unit_price"`
	DiscountKind  purchasing.DiscountKind `json:"discount_kind"`
	DiscountValue decimal.Decimal         `json:"discount_value"`
}

// CreatePurchaseOrderRequest submits an order in one call
type CreatePurchaseOrderRequest struct {
	SupplierID           uuid.UUID                      `json:"supplier_id"`
	ExternalReference    string                         `json:"external_reference" binding:"max=100"`
	OrderDate            *time.Time                     `json:"order_date"`
	ExpectedDeliveryDate *time.Time                     `json:"expected_delivery_date"`
	Notes                string                         `json:"notes" binding:"max=2000"`
	TaxRate              *decimal.Decimal               `json:"tax_rate"`
	Lines                []CreatePurchaseOrderLineInput `json:"lines" binding:"dive"`
}

// TransitionRequest asks for a status change
type TransitionRequest struct {
	TargetStatus string `json:"target_status" binding:"required,order_status"`
}

// ListOrdersFilter represents filter options for listing purchase orders
type ListOrdersFilter struct {
	SupplierID string     `form:"supplier_id" binding:"omitempty,uuid"`
	Status     string     `form:"status"`
	DateFrom   *time.Time `form:"date_from" time_format:"2006-01-02"`
	DateTo     *time.Time `form:"date_to" time_format:"2006-01-02"`
	Search     string     `form:"search"`
	SortOrder  string     `form:"sort_order" binding:"omitempty,oneof=asc desc"`
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1"`
}

// LineResponse represents a line of a draft or order in API responses
type LineResponse struct {
	ID             *uuid.UUID              `json:"id,omitempty"`
	VariantID      uuid.UUID               `json:"variant_id"`
	SKU            string                  `json:"sku"`
	Quantity       int                     `json:"quantity"`
	UnitPrice      decimal.Decimal         `json:"unit_price"`
	DiscountKind   purchasing.DiscountKind `json:"discount_kind"`
	DiscountValue  decimal.Decimal         `json:"discount_value"`
	Subtotal       decimal.Decimal         `json:"subtotal"`
	DiscountAmount decimal.Decimal         `json:"discount_amount"`
	LineTotal      decimal.Decimal         `json:"line_total"`
}

// TotalsResponse represents computed totals
type TotalsResponse struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	TaxableBase   decimal.Decimal `json:"taxable_base"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
}

// DraftResponse represents a draft with its current totals
type DraftResponse struct {
	ID                   uuid.UUID       `json:"id"`
	Revision             int             `json:"revision"`
	SupplierID           *uuid.UUID      `json:"supplier_id,omitempty"`
	ExternalReference    string          `json:"external_reference"`
	OrderDate            *time.Time      `json:"order_date,omitempty"`
	ExpectedDeliveryDate *time.Time      `json:"expected_delivery_date,omitempty"`
	Notes                string          `json:"notes"`
	TaxRate              decimal.Decimal `json:"tax_rate"`
	Lines                []LineResponse  `json:"lines"`
	Totals               TotalsResponse  `json:"totals"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// PurchaseOrderResponse represents a purchase order in API responses
type PurchaseOrderResponse struct {
	ID                   uuid.UUID       `json:"id"`
	OrderNumber          string          `json:"order_number"`
	SupplierID           uuid.UUID       `json:"supplier_id"`
	ExternalReference    string          `json:"external_reference"`
	OrderDate            time.Time       `json:"order_date"`
	ExpectedDeliveryDate *time.Time      `json:"expected_delivery_date,omitempty"`
	Notes                string          `json:"notes"`
	TaxRate              decimal.Decimal `json:"tax_rate"`
	Status               string          `json:"status"`
	ReceivedAt           *time.Time      `json:"received_at,omitempty"`
	Lines                []LineResponse  `json:"lines"`
	Totals               TotalsResponse  `json:"totals"`
	Version              int             `json:"version"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// PurchaseOrderListItemResponse represents a purchase order row in a listing
type PurchaseOrderListItemResponse struct {
	ID                uuid.UUID       `json:"id"`
	OrderNumber       string          `json:"order_number"`
	SupplierID        uuid.UUID       `json:"supplier_id"`
	ExternalReference string          `json:"external_reference"`
	OrderDate         time.Time       `json:"order_date"`
	Status            string          `json:"status"`
	ItemCount         int             `json:"item_count"`
	GrandTotal        decimal.Decimal `json:"grand_total"`
	ReceivedAt        *time.Time      `json:"received_at,omitempty"`
}

// StockMovementResponse represents a stock ledger row
type StockMovementResponse struct {
	ID            uuid.UUID `json:"id"`
	VariantID     uuid.UUID `json:"variant_id"`
	SourceType    string    `json:"source_type"`
	SourceID      uuid.UUID `json:"source_id"`
	Quantity      int       `json:"quantity"`
	BalanceBefore int       `json:"balance_before"`
	BalanceAfter  int       `json:"balance_after"`
	CreatedAt     time.Time `json:"created_at"`
}

// TransitionResponse reports the result of a transition request
type TransitionResponse struct {
	Outcome        purchasing.TransitionOutcome `json:"outcome"`
	FromStatus     string                       `json:"from_status"`
	ToStatus       string                       `json:"to_status"`
	Order          PurchaseOrderResponse        `json:"order"`
	StockMovements []StockMovementResponse      `json:"stock_movements"`
}

// ToTotalsResponse converts domain totals
func ToTotalsResponse(t purchasing.Totals) TotalsResponse {
	return TotalsResponse{
		Subtotal:      t.Subtotal,
		DiscountTotal: t.DiscountTotal,
		TaxableBase:   t.TaxableBase,
		TaxAmount:     t.TaxAmount,
		GrandTotal:    t.GrandTotal,
	}
}

// ToDraftResponse converts a draft, pricing it on the way
func ToDraftResponse(d purchasing.Draft) (DraftResponse, error) {
	totals, err := d.Totals()
	if err != nil {
		return DraftResponse{}, err
	}
	lines := make([]LineResponse, len(d.Lines))
	for i, l := range d.Lines {
		amounts := totals.Lines[i]
		lines[i] = LineResponse{
			VariantID:      l.VariantID,
			SKU:            l.SKU,
			Quantity:       l.Quantity,
			UnitPrice:      l.UnitPrice,
			DiscountKind:   l.Discount.Kind,
			DiscountValue:  l.Discount.Value,
			Subtotal:       amounts.RawSubtotal,
			DiscountAmount: amounts.DiscountAmount,
			LineTotal:      amounts.LineTotal,
		}
	}
	resp := DraftResponse{
		ID:                   d.ID,
		Revision:             d.Revision,
		ExternalReference:    d.ExternalReference,
		OrderDate:            d.OrderDate,
		ExpectedDeliveryDate: d.ExpectedDeliveryDate,
		Notes:                d.Notes,
		TaxRate:              d.TaxRate,
		Lines:                lines,
		Totals:               ToTotalsResponse(totals),
		UpdatedAt:            d.UpdatedAt,
	}
	if d.SupplierID != uuid.Nil {
		id := d.SupplierID
		resp.SupplierID = &id
	}
	return resp, nil
}

// ToPurchaseOrderResponse converts a domain PurchaseOrder to PurchaseOrderResponse
func ToPurchaseOrderResponse(o *purchasing.PurchaseOrder) PurchaseOrderResponse {
	lines := make([]LineResponse, len(o.Lines))
	for i, l := range o.Lines {
		id := l.ID
		lines[i] = LineResponse{
			ID:             &id,
			VariantID:      l.VariantID,
			SKU:            l.SKU,
			Quantity:       l.Quantity,
			UnitPrice:      l.UnitPrice,
			DiscountKind:   l.Discount.Kind,
			DiscountValue:  l.Discount.Value,
			Subtotal:       l.Subtotal(),
			DiscountAmount: l.DiscountAmount,
			LineTotal:      l.LineTotal,
		}
	}
	return PurchaseOrderResponse{
		ID:                   o.ID,
		OrderNumber:          o.OrderNumber,
		SupplierID:           o.SupplierID,
		ExternalReference:    o.ExternalReference,
		OrderDate:            o.OrderDate,
		ExpectedDeliveryDate: o.ExpectedDeliveryDate,
		Notes:                o.Notes,
		TaxRate:              o.TaxRate,
		Status:               o.Status.String(),
		ReceivedAt:           o.ReceivedAt,
		Lines:                lines,
		Totals: TotalsResponse{
			Subtotal:      o.Subtotal,
			DiscountTotal: o.DiscountTotal,
			TaxableBase:   o.TaxableBase(),
			TaxAmount:     o.TaxAmount,
			GrandTotal:    o.GrandTotal,
		},
		Version:   o.Version,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

// ToPurchaseOrderListItemResponses converts a page of orders
func ToPurchaseOrderListItemResponses(orders []purchasing.PurchaseOrder) []PurchaseOrderListItemResponse {
	out := make([]PurchaseOrderListItemResponse, len(orders))
	for i := range orders {
		o := &orders[i]
		out[i] = PurchaseOrderListItemResponse{
			ID:                o.ID,
			OrderNumber:       o.OrderNumber,
			SupplierID:        o.SupplierID,
			ExternalReference: o.ExternalReference,
			OrderDate:         o.OrderDate,
			Status:            o.Status.String(),
			ItemCount:         o.ItemCount(),
			GrandTotal:        o.GrandTotal,
			ReceivedAt:        o.ReceivedAt,
		}
	}
	return out
}

// ToStockMovementResponses converts ledger rows
func ToStockMovementResponses(movements []purchasing.StockMovement) []StockMovementResponse {
	out := make([]StockMovementResponse, len(movements))
	for i, m := range movements {
		out[i] = StockMovementResponse{
			ID:            m.ID,
			VariantID:     m.VariantID,
			SourceType:    m.SourceType,
			SourceID:      m.SourceID,
			Quantity:      m.Quantity,
			BalanceBefore: m.BalanceBefore,
			BalanceAfter:  m.BalanceAfter,
			CreatedAt:     m.CreatedAt,
		}
	}
	return out
}
