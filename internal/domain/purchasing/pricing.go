package purchasing

import (
	"errors"
	"fmt"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// DiscountKind tags how a Discount value is interpreted
type DiscountKind string

const (
	DiscountNone        DiscountKind = "none"
	DiscountPercentage  DiscountKind = "percentage"
	DiscountFixedAmount DiscountKind = "fixed_amount"
)

// IsValid checks if the kind is a known DiscountKind
func (k DiscountKind) IsValid() bool {
	switch k {
	case DiscountNone, DiscountPercentage, DiscountFixedAmount:
		return true
	}
	return false
}

// Discount is a per-line discount: a percentage of the line subtotal or a
// fixed amount off it. The zero value is "no discount".
type Discount struct {
	Kind  DiscountKind    `json:"kind"`
	Value decimal.Decimal `json:"value"`
}

// NoDiscount returns the empty discount
func NoDiscount() Discount {
	return Discount{Kind: DiscountNone, Value: decimal.Zero}
}

// NewDiscount builds a validated discount
func NewDiscount(kind DiscountKind, value decimal.Decimal) (Discount, error) {
	if kind == "" {
		kind = DiscountNone
	}
	if !kind.IsValid() {
		return Discount{}, shared.NewValidationError(shared.CodeInvalidDiscount,
			fmt.Sprintf("unknown discount kind %q", kind))
	}
	if value.IsNegative() {
		return Discount{}, shared.NewValidationError(shared.CodeInvalidDiscount, "Discount value cannot be negative")
	}
	if kind == DiscountNone {
		return NoDiscount(), nil
	}
	return Discount{Kind: kind, Value: value}, nil
}

// Validate re-checks a discount that did not come through NewDiscount
func (d Discount) Validate() error {
	_, err := NewDiscount(d.Kind, d.Value)
	return err
}

// IsZero reports whether the discount can never reduce a line
func (d Discount) IsZero() bool {
	return d.Kind == "" || d.Kind == DiscountNone || d.Value.IsZero()
}

// Resolve returns the amount taken off rawSubtotal, clamped to [0, rawSubtotal]
func (d Discount) Resolve(rawSubtotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch d.Kind {
	case DiscountPercentage:
		amount = rawSubtotal.Mul(d.Value).Div(hundred)
	case DiscountFixedAmount:
		amount = d.Value
	default:
		return decimal.Zero
	}
	if amount.IsNegative() {
		return decimal.Zero
	}
	if amount.GreaterThan(rawSubtotal) {
		return rawSubtotal
	}
	return amount
}

// PricedLine is the pricing input for one order line
type PricedLine struct {
	Quantity  int
	UnitPrice decimal.Decimal
	Discount  Discount
}

// LineAmounts holds the unrounded derived amounts of one line
type LineAmounts struct {
	RawSubtotal    decimal.Decimal
	DiscountAmount decimal.Decimal
	LineTotal      decimal.Decimal
}

// Totals is the result of pricing a set of lines. All aggregate amounts are
// whole currency units and GrandTotal == Subtotal - DiscountTotal + TaxAmount.
type Totals struct {
	Subtotal      decimal.Decimal
	DiscountTotal decimal.Decimal
	TaxableBase   decimal.Decimal
	TaxAmount     decimal.Decimal
	GrandTotal    decimal.Decimal
	Lines         []LineAmounts
}

// ValidateQuantity rejects quantities below one
func ValidateQuantity(quantity int) error {
	if quantity < 1 {
		return shared.NewValidationError(shared.CodeInvalidQuantity, "Quantity must be at least 1")
	}
	return nil
}

// ValidateUnitPrice rejects negative prices
func ValidateUnitPrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return shared.NewValidationError(shared.CodeInvalidPrice, "Unit price cannot be negative")
	}
	return nil
}

// ValidateTaxRate accepts percentages in [0, 100]
func ValidateTaxRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(hundred) {
		return shared.NewValidationError(shared.CodeInvalidTaxRate, "Tax rate must be between 0 and 100")
	}
	return nil
}

// PriceLine computes the derived amounts of a single line
func PriceLine(line PricedLine) (LineAmounts, error) {
	if err := ValidateQuantity(line.Quantity); err != nil {
		return LineAmounts{}, err
	}
	if err := ValidateUnitPrice(line.UnitPrice); err != nil {
		return LineAmounts{}, err
	}
	if err := line.Discount.Validate(); err != nil {
		return LineAmounts{}, err
	}

	raw := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
	discount := line.Discount.Resolve(raw)
	return LineAmounts{
		RawSubtotal:    raw,
		DiscountAmount: discount,
		LineTotal:      raw.Sub(discount),
	}, nil
}

// Calculate prices lines and applies taxRate (a percentage) to the taxable base.
// Per-line amounts stay unrounded; rounding to whole units happens once, on
// the aggregates.
func Calculate(lines []PricedLine, taxRate decimal.Decimal) (Totals, error) {
	if err := ValidateTaxRate(taxRate); err != nil {
		return Totals{}, err
	}

	totals := Totals{Lines: make([]LineAmounts, 0, len(lines))}
	rawSum := decimal.Zero
	discountSum := decimal.Zero
	for i, line := range lines {
		amounts, err := PriceLine(line)
		if err != nil {
			var de *shared.DomainError
			if errors.As(err, &de) {
				return Totals{}, shared.NewValidationError(de.Code, fmt.Sprintf("line %d: %s", i+1, de.Message))
			}
			return Totals{}, err
		}
		rawSum = rawSum.Add(amounts.RawSubtotal)
		discountSum = discountSum.Add(amounts.DiscountAmount)
		totals.Lines = append(totals.Lines, amounts)
	}

	totals.Subtotal = rawSum.Round(0)
	totals.DiscountTotal = discountSum.Round(0)
	totals.TaxableBase = totals.Subtotal.Sub(totals.DiscountTotal)
	totals.TaxAmount = totals.TaxableBase.Mul(taxRate).Div(hundred).Round(0)
	totals.GrandTotal = totals.TaxableBase.Add(totals.TaxAmount)
	return totals, nil
}
