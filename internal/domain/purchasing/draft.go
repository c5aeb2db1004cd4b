package purchasing

import (
	"fmt"
	"time"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DraftLine is a line of a draft order
type DraftLine struct {
	VariantID uuid.UUID       `json:"variant_id"`
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  Discount        `json:"discount"`
}

// Draft is an order being assembled before submission. Drafts are values:
// every operation returns a new Draft with Revision incremented and leaves
// the receiver untouched.
type Draft struct {
	ID                   uuid.UUID       `json:"id"`
	Revision             int             `json:"revision"`
	SupplierID           uuid.UUID       `json:"supplier_id"`
	ExternalReference    string          `json:"external_reference"`
	OrderDate            *time.Time      `json:"order_date,omitempty"`
	ExpectedDeliveryDate *time.Time      `json:"expected_delivery_date,omitempty"`
	Notes                string          `json:"notes"`
	TaxRate              decimal.Decimal `json:"tax_rate"`
	Lines                []DraftLine     `json:"lines"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// DraftHeader holds the header fields editable on a draft
type DraftHeader struct {
	SupplierID           uuid.UUID
	ExternalReference    string
	OrderDate            *time.Time
	ExpectedDeliveryDate *time.Time
	Notes                string
	TaxRate              decimal.Decimal
}

// NewDraft starts an empty draft. supplierID may be uuid.Nil and set later.
func NewDraft(supplierID uuid.UUID, externalReference string, taxRate decimal.Decimal) (Draft, error) {
	if err := ValidateTaxRate(taxRate); err != nil {
		return Draft{}, err
	}
	now := time.Now()
	return Draft{
		ID:                uuid.New(),
		Revision:          1,
		SupplierID:        supplierID,
		ExternalReference: externalReference,
		TaxRate:           taxRate,
		Lines:             []DraftLine{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

func (d Draft) next() Draft {
	lines := make([]DraftLine, len(d.Lines))
	copy(lines, d.Lines)
	d.Lines = lines
	d.Revision++
	d.UpdatedAt = time.Now()
	return d
}

func (d Draft) lineIndex(variantID uuid.UUID) int {
	for i, l := range d.Lines {
		if l.VariantID == variantID {
			return i
		}
	}
	return -1
}

func (d Draft) requireLine(variantID uuid.UUID) (int, error) {
	idx := d.lineIndex(variantID)
	if idx < 0 {
		return -1, shared.NewNotFoundError("draft line for variant", variantID)
	}
	return idx, nil
}

// HasVariant reports whether variantID already has a line
func (d Draft) HasVariant(variantID uuid.UUID) bool {
	return d.lineIndex(variantID) >= 0
}

// AddLineItem appends a line for variant with the catalog cost as unit price
// and no discount. A variant may appear only once.
func (d Draft) AddLineItem(variant ProductVariant, quantity int) (Draft, error) {
	if d.HasVariant(variant.ID) {
		return d, shared.NewValidationError(shared.CodeDuplicateVariant,
			fmt.Sprintf("variant %s is already on the draft", variant.ID))
	}
	if err := ValidateQuantity(quantity); err != nil {
		return d, err
	}
	if err := ValidateUnitPrice(variant.CostPrice); err != nil {
		return d, err
	}

	out := d.next()
	out.Lines = append(out.Lines, DraftLine{
		VariantID: variant.ID,
		SKU:       variant.SKU,
		Quantity:  quantity,
		UnitPrice: variant.CostPrice,
		Discount:  NoDiscount(),
	})
	return out, nil
}

// UpdateQuantity sets the quantity of the line for variantID
func (d Draft) UpdateQuantity(variantID uuid.UUID, quantity int) (Draft, error) {
	if err := ValidateQuantity(quantity); err != nil {
		return d, err
	}
	idx, err := d.requireLine(variantID)
	if err != nil {
		return d, err
	}
	out := d.next()
	out.Lines[idx].Quantity = quantity
	return out, nil
}

// UpdateDiscount replaces the discount of the line for variantID. Amounts
// above the line subtotal are accepted and capped when priced.
func (d Draft) UpdateDiscount(variantID uuid.UUID, kind DiscountKind, value decimal.Decimal) (Draft, error) {
	discount, err := NewDiscount(kind, value)
	if err != nil {
		return d, err
	}
	idx, err := d.requireLine(variantID)
	if err != nil {
		return d, err
	}
	out := d.next()
	out.Lines[idx].Discount = discount
	return out, nil
}

// UpdateUnitPrice overrides the catalog default for the line for variantID
func (d Draft) UpdateUnitPrice(variantID uuid.UUID, price decimal.Decimal) (Draft, error) {
	if err := ValidateUnitPrice(price); err != nil {
		return d, err
	}
	idx, err := d.requireLine(variantID)
	if err != nil {
		return d, err
	}
	out := d.next()
	out.Lines[idx].UnitPrice = price
	return out, nil
}

// RemoveLine drops the line for variantID
func (d Draft) RemoveLine(variantID uuid.UUID) (Draft, error) {
	idx, err := d.requireLine(variantID)
	if err != nil {
		return d, err
	}
	out := d.next()
	out.Lines = append(out.Lines[:idx], out.Lines[idx+1:]...)
	return out, nil
}

// WithHeader replaces the header fields
func (d Draft) WithHeader(h DraftHeader) (Draft, error) {
	if err := ValidateTaxRate(h.TaxRate); err != nil {
		return d, err
	}
	out := d.next()
	out.SupplierID = h.SupplierID
	out.ExternalReference = h.ExternalReference
	out.OrderDate = h.OrderDate
	out.ExpectedDeliveryDate = h.ExpectedDeliveryDate
	out.Notes = h.Notes
	out.TaxRate = h.TaxRate
	return out, nil
}

// Totals prices the draft as it stands
func (d Draft) Totals() (Totals, error) {
	priced := make([]PricedLine, len(d.Lines))
	for i, l := range d.Lines {
		priced[i] = PricedLine{Quantity: l.Quantity, UnitPrice: l.UnitPrice, Discount: l.Discount}
	}
	return Calculate(priced, d.TaxRate)
}

// OrderParams converts the draft into submission input
func (d Draft) OrderParams(numberPrefix string) OrderParams {
	lines := make([]OrderLine, len(d.Lines))
	for i, l := range d.Lines {
		lines[i] = OrderLine{
			VariantID: l.VariantID,
			SKU:       l.SKU,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Discount:  l.Discount,
		}
	}
	var orderDate time.Time
	if d.OrderDate != nil {
		orderDate = *d.OrderDate
	}
	return OrderParams{
		SupplierID:           d.SupplierID,
		ExternalReference:    d.ExternalReference,
		OrderDate:            orderDate,
		ExpectedDeliveryDate: d.ExpectedDeliveryDate,
		Notes:                d.Notes,
		TaxRate:              d.TaxRate,
		Lines:                lines,
		NumberPrefix:         numberPrefix,
	}
}

// Submit turns the draft into a PENDING purchase order
func (d Draft) Submit(numberPrefix string) (*PurchaseOrder, error) {
	return NewPurchaseOrder(d.OrderParams(numberPrefix))
}
