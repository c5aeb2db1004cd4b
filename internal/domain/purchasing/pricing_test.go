package purchasing

import (
	"errors"
	"testing"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculate_MixedDiscountsWithTax(t *testing.T) {
	lines := []PricedLine{
		{Quantity: 2, UnitPrice: d("1000"), Discount: Discount{Kind: DiscountPercentage, Value: d("10")}},
		{Quantity: 1, UnitPrice: d("500"), Discount: NoDiscount()},
	}

	totals, err := Calculate(lines, d("19"))
	require.NoError(t, err)

	assert.True(t, totals.Subtotal.Equal(d("2500")), "subtotal %s", totals.Subtotal)
	assert.True(t, totals.DiscountTotal.Equal(d("200")), "discount %s", totals.DiscountTotal)
	assert.True(t, totals.TaxableBase.Equal(d("2300")), "taxable %s", totals.TaxableBase)
	assert.True(t, totals.TaxAmount.Equal(d("437")), "tax %s", totals.TaxAmount)
	assert.True(t, totals.GrandTotal.Equal(d("2737")), "grand %s", totals.GrandTotal)
}

func TestCalculate_FixedDiscountCappedAtLineSubtotal(t *testing.T) {
	lines := []PricedLine{
		{Quantity: 2, UnitPrice: d("1000"), Discount: Discount{Kind: DiscountFixedAmount, Value: d("5000")}},
	}

	totals, err := Calculate(lines, decimal.Zero)
	require.NoError(t, err)

	require.Len(t, totals.Lines, 1)
	assert.True(t, totals.Lines[0].DiscountAmount.Equal(d("2000")))
	assert.True(t, totals.Lines[0].LineTotal.IsZero())
	assert.True(t, totals.GrandTotal.IsZero())
}

func TestCalculate_RoundsOnlyAggregates(t *testing.T) {
	// Three lines of 0.4 each: per-line rounding would give 0, aggregate gives 1
	lines := []PricedLine{
		{Quantity: 1, UnitPrice: d("0.4")},
		{Quantity: 1, UnitPrice: d("0.4")},
		{Quantity: 1, UnitPrice: d("0.4")},
	}

	totals, err := Calculate(lines, d("0"))
	require.NoError(t, err)
	assert.True(t, totals.Subtotal.Equal(d("1")), "subtotal %s", totals.Subtotal)
	assert.True(t, totals.Lines[0].RawSubtotal.Equal(d("0.4")))
}

func TestCalculate_TotalsIdentityHolds(t *testing.T) {
	tests := []struct {
		name    string
		lines   []PricedLine
		taxRate string
	}{
		{
			name: "fractional tax",
			lines: []PricedLine{
				{Quantity: 3, UnitPrice: d("333.33"), Discount: Discount{Kind: DiscountPercentage, Value: d("7.5")}},
			},
			taxRate: "11",
		},
		{
			name: "discount over 100 percent",
			lines: []PricedLine{
				{Quantity: 1, UnitPrice: d("99.99"), Discount: Discount{Kind: DiscountPercentage, Value: d("150")}},
				{Quantity: 4, UnitPrice: d("12.5"), Discount: Discount{Kind: DiscountFixedAmount, Value: d("0.75")}},
			},
			taxRate: "19",
		},
		{
			name:    "zero priced line",
			lines:   []PricedLine{{Quantity: 10, UnitPrice: decimal.Zero}},
			taxRate: "100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals, err := Calculate(tt.lines, d(tt.taxRate))
			require.NoError(t, err)

			for i, l := range totals.Lines {
				assert.False(t, l.DiscountAmount.IsNegative(), "line %d", i)
				assert.True(t, l.DiscountAmount.LessThanOrEqual(l.RawSubtotal), "line %d", i)
			}
			expected := totals.Subtotal.Sub(totals.DiscountTotal).Add(totals.TaxAmount)
			assert.True(t, totals.GrandTotal.Equal(expected))
			assert.True(t, totals.GrandTotal.Equal(totals.GrandTotal.Round(0)))
		})
	}
}

func TestCalculate_RejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		lines   []PricedLine
		taxRate string
		code    string
	}{
		{"zero quantity", []PricedLine{{Quantity: 0, UnitPrice: d("1")}}, "0", shared.CodeInvalidQuantity},
		{"negative quantity", []PricedLine{{Quantity: -2, UnitPrice: d("1")}}, "0", shared.CodeInvalidQuantity},
		{"negative price", []PricedLine{{Quantity: 1, UnitPrice: d("-1")}}, "0", shared.CodeInvalidPrice},
		{"negative discount", []PricedLine{{Quantity: 1, UnitPrice: d("1"), Discount: Discount{Kind: DiscountFixedAmount, Value: d("-1")}}}, "0", shared.CodeInvalidDiscount},
		{"unknown discount kind", []PricedLine{{Quantity: 1, UnitPrice: d("1"), Discount: Discount{Kind: "bogus", Value: d("1")}}}, "0", shared.CodeInvalidDiscount},
		{"tax above 100", []PricedLine{{Quantity: 1, UnitPrice: d("1")}}, "100.01", shared.CodeInvalidTaxRate},
		{"negative tax", []PricedLine{{Quantity: 1, UnitPrice: d("1")}}, "-1", shared.CodeInvalidTaxRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Calculate(tt.lines, d(tt.taxRate))
			require.Error(t, err)
			var de *shared.DomainError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.code, de.Code)
			assert.Equal(t, shared.KindValidation, de.Kind)
		})
	}
}

func TestDiscount_Resolve(t *testing.T) {
	raw := d("2000")
	assert.True(t, NoDiscount().Resolve(raw).IsZero())
	assert.True(t, Discount{}.Resolve(raw).IsZero())
	assert.True(t, Discount{Kind: DiscountPercentage, Value: d("25")}.Resolve(raw).Equal(d("500")))
	assert.True(t, Discount{Kind: DiscountFixedAmount, Value: d("150")}.Resolve(raw).Equal(d("150")))
	assert.True(t, Discount{Kind: DiscountFixedAmount, Value: d("2500")}.Resolve(raw).Equal(raw))
}

func TestNewDiscount(t *testing.T) {
	disc, err := NewDiscount("", d("10"))
	require.NoError(t, err)
	assert.Equal(t, DiscountNone, disc.Kind)
	assert.True(t, disc.IsZero())

	disc, err = NewDiscount(DiscountPercentage, d("10"))
	require.NoError(t, err)
	assert.False(t, disc.IsZero())

	_, err = NewDiscount(DiscountPercentage, d("-0.01"))
	assert.True(t, errors.Is(err, shared.NewDomainError(shared.CodeInvalidDiscount, "")))
}
