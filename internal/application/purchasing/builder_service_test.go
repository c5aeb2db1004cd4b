package purchasing

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/procurement/internal/domain/purchasing"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type builderFixture struct {
	service   *OrderBuilderService
	drafts    *fakeDraftStore
	orders    *MockPurchaseOrderRepository
	suppliers *MockSupplierReader
	variants  *MockVariantRepository
	publisher *MockEventPublisher
}

func newBuilderFixture() *builderFixture {
	f := &builderFixture{
		drafts:    newFakeDraftStore(),
		orders:    new(MockPurchaseOrderRepository),
		suppliers: new(MockSupplierReader),
		variants:  new(MockVariantRepository),
		publisher: new(MockEventPublisher),
	}
	f.service = NewOrderBuilderService(f.drafts, f.orders, f.suppliers, f.variants,
		BuilderConfig{NumberPrefix: "PO", DefaultTaxRate: decimal.NewFromInt(19)}, zap.NewNop())
	f.service.SetEventPublisher(f.publisher)
	return f
}

func testVariant(cost int64) *purchasing.ProductVariant {
	return &purchasing.ProductVariant{
		ID:        uuid.New(),
		ProductID: uuid.New(),
		SKU:       "SKU",
		CostPrice: decimal.NewFromInt(cost),
		SalePrice: decimal.NewFromInt(cost * 2),
	}
}

func activeSupplier() *purchasing.Supplier {
	return &purchasing.Supplier{ID: uuid.New(), LegalName: "Acme Textiles", Status: purchasing.SupplierStatusActive}
}

func TestOrderBuilderService_DraftFlow(t *testing.T) {
	ctx := context.Background()
	f := newBuilderFixture()
	supplier := activeSupplier()
	a := testVariant(1000)
	b := testVariant(500)
	f.variants.On("FindByID", mock.Anything, a.ID).Return(a, nil)
	f.variants.On("FindByID", mock.Anything, b.ID).Return(b, nil)

	draft, err := f.service.CreateDraft(ctx, CreateDraftRequest{SupplierID: &supplier.ID})
	require.NoError(t, err)
	assert.True(t, draft.TaxRate.Equal(decimal.NewFromInt(19)))
	assert.Empty(t, draft.Lines)

	two := 2
	draft, err = f.service.AddLine(ctx, draft.ID, AddLineRequest{VariantID: a.ID, Quantity: &two})
	require.NoError(t, err)
	draft, err = f.service.AddLine(ctx, draft.ID, AddLineRequest{VariantID: b.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, draft.Lines[1].Quantity, "quantity defaults to 1")

	draft, err = f.service.UpdateDiscount(ctx, draft.ID, a.ID, UpdateDiscountRequest{
		Kind: purchasing.DiscountPercentage, Value: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	assert.True(t, draft.Totals.GrandTotal.Equal(decimal.NewFromInt(2737)))

	t.Run("duplicate variant", func(t *testing.T) {
		_, err := f.service.AddLine(ctx, draft.ID, AddLineRequest{VariantID: a.ID})
		assert.True(t, errors.Is(err, shared.NewDomainError(shared.CodeDuplicateVariant, "")))

		current, err := f.service.GetDraft(ctx, draft.ID)
		require.NoError(t, err)
		assert.Equal(t, draft.Revision, current.Revision)
	})

	t.Run("invalid quantity", func(t *testing.T) {
		_, err := f.service.UpdateQuantity(ctx, draft.ID, b.ID, UpdateQuantityRequest{Quantity: 0})
		assert.True(t, errors.Is(err, shared.NewDomainError(shared.CodeInvalidQuantity, "")))
	})

	t.Run("submit", func(t *testing.T) {
		f.suppliers.On("FindByID", mock.Anything, supplier.ID).Return(supplier, nil)
		f.variants.On("FindByIDs", mock.Anything, mock.Anything).Return([]purchasing.ProductVariant{*a, *b}, nil)
		f.orders.On("Create", mock.Anything, mock.MatchedBy(func(o *purchasing.PurchaseOrder) bool {
			return o.Status == purchasing.StatusPending &&
				o.GrandTotal.Equal(decimal.NewFromInt(2737)) &&
				len(o.Lines) == 2
		})).Return(nil)
		f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

		order, err := f.service.SubmitDraft(ctx, draft.ID, SubmitDraftRequest{})
		require.NoError(t, err)
		assert.Equal(t, string(purchasing.StatusPending), order.Status)
		assert.True(t, order.Totals.TaxAmount.Equal(decimal.NewFromInt(437)))

		_, err = f.service.GetDraft(ctx, draft.ID)
		assert.True(t, errors.Is(err, shared.ErrNotFound), "submitted draft is discarded")
		f.publisher.AssertNumberOfCalls(t, "Publish", 1)
	})
}

func TestOrderBuilderService_SubmitValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("empty draft", func(t *testing.T) {
		f := newBuilderFixture()
		supplierID := uuid.New()
		draft, err := f.service.CreateDraft(ctx, CreateDraftRequest{SupplierID: &supplierID})
		require.NoError(t, err)

		_, err = f.service.SubmitDraft(ctx, draft.ID, SubmitDraftRequest{})
		assert.True(t, errors.Is(err, shared.NewDomainError(shared.CodeEmptyOrder, "")))
		f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("missing supplier", func(t *testing.T) {
		f := newBuilderFixture()
		v := testVariant(10)
		f.variants.On("FindByID", mock.Anything, v.ID).Return(v, nil)
		draft, err := f.service.CreateDraft(ctx, CreateDraftRequest{})
		require.NoError(t, err)
		_, err = f.service.AddLine(ctx, draft.ID, AddLineRequest{VariantID: v.ID})
		require.NoError(t, err)

		_, err = f.service.SubmitDraft(ctx, draft.ID, SubmitDraftRequest{})
		assert.True(t, errors.Is(err, shared.NewDomainError(shared.CodeMissingSupplier, "")))
	})

	t.Run("inactive supplier", func(t *testing.T) {
		f := newBuilderFixture()
		supplier := activeSupplier()
		supplier.Status = purchasing.SupplierStatusInactive
		v := testVariant(10)
		f.variants.On("FindByID", mock.Anything, v.ID).Return(v, nil)
		f.suppliers.On("FindByID", mock.Anything, supplier.ID).Return(supplier, nil)

		_, err := f.service.SubmitOrder(ctx, CreatePurchaseOrderRequest{
			SupplierID: supplier.ID,
			Lines:      []CreatePurchaseOrderLineInput{{VariantID: v.ID, Quantity: 1}},
		})
		assert.True(t, errors.Is(err, shared.NewDomainError(shared.CodeInactiveSupplier, "")))
	})

	t.Run("unknown supplier", func(t *testing.T) {
		f := newBuilderFixture()
		supplierID := uuid.New()
		v := testVariant(10)
		f.variants.On("FindByID", mock.Anything, v.ID).Return(v, nil)
		f.suppliers.On("FindByID", mock.Anything, supplierID).Return(nil, shared.NewNotFoundError("supplier", supplierID))

		_, err := f.service.SubmitOrder(ctx, CreatePurchaseOrderRequest{
			SupplierID: supplierID,
			Lines:      []CreatePurchaseOrderLineInput{{VariantID: v.ID, Quantity: 1}},
		})
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})
}

func TestOrderBuilderService_SubmitOrder(t *testing.T) {
	ctx := context.Background()
	f := newBuilderFixture()
	supplier := activeSupplier()
	v := testVariant(1000)
	f.variants.On("FindByID", mock.Anything, v.ID).Return(v, nil)
	f.variants.On("FindByIDs", mock.Anything, []uuid.UUID{v.ID}).Return([]purchasing.ProductVariant{*v}, nil)
	f.suppliers.On("FindByID", mock.Anything, supplier.ID).Return(supplier, nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	price := decimal.NewFromInt(1000)
	zero := decimal.Zero
	order, err := f.service.SubmitOrder(ctx, CreatePurchaseOrderRequest{
		SupplierID: supplier.ID,
		TaxRate:    &zero,
		Lines: []CreatePurchaseOrderLineInput{{
			VariantID:     v.ID,
			Quantity:      2,
			UnitPrice:     &price,
			DiscountKind:  purchasing.DiscountFixedAmount,
			DiscountValue: decimal.NewFromInt(5000),
		}},
	})
	require.NoError(t, err)

	require.Len(t, order.Lines, 1)
	assert.True(t, order.Lines[0].DiscountAmount.Equal(decimal.NewFromInt(2000)))
	assert.True(t, order.Lines[0].LineTotal.IsZero())
	assert.True(t, order.Totals.GrandTotal.IsZero())

	t.Run("duplicate inline variant", func(t *testing.T) {
		_, err := f.service.SubmitOrder(ctx, CreatePurchaseOrderRequest{
			SupplierID: supplier.ID,
			Lines: []CreatePurchaseOrderLineInput{
				{VariantID: v.ID, Quantity: 1},
				{VariantID: v.ID, Quantity: 2},
			},
		})
		assert.True(t, errors.Is(err, shared.NewDomainError(shared.CodeDuplicateVariant, "")))
	})

	t.Run("inline discount goes through the same checks as a draft", func(t *testing.T) {
		for _, line := range []CreatePurchaseOrderLineInput{
			{VariantID: v.ID, Quantity: 1, DiscountValue: decimal.NewFromInt(-5)},
			{VariantID: v.ID, Quantity: 1, DiscountKind: purchasing.DiscountNone, DiscountValue: decimal.NewFromInt(-1)},
			{VariantID: v.ID, Quantity: 1, DiscountKind: "BOGUS", DiscountValue: decimal.NewFromInt(1)},
		} {
			_, err := f.service.SubmitOrder(ctx, CreatePurchaseOrderRequest{
				SupplierID: supplier.ID,
				Lines:      []CreatePurchaseOrderLineInput{line},
			})
			assert.True(t, errors.Is(err, shared.NewDomainError(shared.CodeInvalidDiscount, "")), "kind %q value %s", line.DiscountKind, line.DiscountValue)
		}
	})

	t.Run("no lines", func(t *testing.T) {
		_, err := f.service.SubmitOrder(ctx, CreatePurchaseOrderRequest{SupplierID: supplier.ID})
		assert.True(t, errors.Is(err, shared.NewDomainError(shared.CodeEmptyOrder, "")))
	})
}
