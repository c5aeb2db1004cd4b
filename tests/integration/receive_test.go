package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	purchasingapp "github.com/erp/procurement/internal/application/purchasing"
	"github.com/erp/procurement/internal/domain/purchasing"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/erp/procurement/internal/infrastructure/cache"
	"github.com/erp/procurement/internal/infrastructure/event"
	"github.com/erp/procurement/internal/infrastructure/persistence"
	"github.com/erp/procurement/tests/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type procurementFixture struct {
	db          *gorm.DB
	builder     *purchasingapp.OrderBuilderService
	transitions *purchasingapp.TransitionService
	queries     *purchasingapp.OrderQueryService
	received    *testutil.RecordingEventHandler
}

func newProcurementFixture(t *testing.T, db *gorm.DB) *procurementFixture {
	t.Helper()
	log := zaptest.NewLogger(t)

	orders := persistence.NewGormPurchaseOrderRepository(db)
	movements := persistence.NewGormStockMovementRepository(db)

	bus := event.NewInMemoryEventBus(log)
	received := testutil.NewRecordingEventHandler(purchasing.EventTypePurchaseOrderReceived)
	bus.Subscribe(received)

	builder := purchasingapp.NewOrderBuilderService(
		cache.NewInMemoryDraftStore(time.Hour),
		orders,
		persistence.NewGormSupplierRepository(db),
		persistence.NewGormVariantRepository(db),
		purchasingapp.BuilderConfig{NumberPrefix: "PO"},
		log,
	)
	builder.SetEventPublisher(bus)

	transitions := purchasingapp.NewTransitionService(persistence.NewGormTransactionScope(db), log)
	transitions.SetEventPublisher(bus)

	return &procurementFixture{
		db:          db,
		builder:     builder,
		transitions: transitions,
		queries:     purchasingapp.NewOrderQueryService(orders, movements, purchasingapp.QueryConfig{}),
		received:    received,
	}
}

// submitOrder places a two-line order: 3 x first at 12.50 and 2 x second at list price
func (f *procurementFixture) submitOrder(t *testing.T, supplierID, first, second uuid.UUID) *purchasingapp.PurchaseOrderResponse {
	t.Helper()

	price := decimal.RequireFromString("12.50")
	tax := decimal.NewFromInt(10)
	order, err := f.builder.SubmitOrder(context.Background(), purchasingapp.CreatePurchaseOrderRequest{
		SupplierID: supplierID,
		TaxRate:    &tax,
		Lines: []purchasingapp.CreatePurchaseOrderLineInput{
			{VariantID: first, Quantity: 3, UnitPrice: &price},
			{VariantID: second, Quantity: 2},
		},
	})
	require.NoError(t, err)
	require.Equal(t, purchasing.StatusPending.String(), order.Status)
	return order
}

func runConcurrentReceive(t *testing.T, db *gorm.DB) {
	f := newProcurementFixture(t, db)
	supplier := testutil.SeedSupplier(t, db, purchasing.SupplierStatusActive)
	tee := testutil.SeedVariant(t, db, "TEE-NAVY-M-"+uuid.NewString()[:6], 4, "10.00")
	hoodie := testutil.SeedVariant(t, db, "HOODIE-GREY-L-"+uuid.NewString()[:6], 0, "40.00")
	order := f.submitOrder(t, supplier.ID, tee.ID, hoodie.ID)

	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes = map[purchasing.TransitionOutcome]int{}
		errs     []error
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			result, err := f.transitions.RequestTransition(context.Background(), order.ID, purchasing.StatusReceived)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			outcomes[result.Outcome()]++
		}()
	}
	close(start)
	wg.Wait()

	require.Empty(t, errs)
	assert.Equal(t, 1, outcomes[purchasing.OutcomeApplied])
	assert.Equal(t, workers-1, outcomes[purchasing.OutcomeAlreadyReceived])

	assert.Equal(t, 7, testutil.StockOf(t, db, tee.ID))
	assert.Equal(t, 2, testutil.StockOf(t, db, hoodie.ID))

	ledger, err := f.queries.ListStockMovements(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, ledger, 2)
	for _, m := range ledger {
		assert.Equal(t, m.BalanceBefore+m.Quantity, m.BalanceAfter)
		assert.Equal(t, purchasing.StockSourcePurchaseReceipt, m.SourceType)
	}

	assert.Len(t, f.received.Handled(), 1)

	stored, err := f.queries.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, purchasing.StatusReceived.String(), stored.Status)
	assert.NotNil(t, stored.ReceivedAt)
}

func runLifecycle(t *testing.T, db *gorm.DB) {
	f := newProcurementFixture(t, db)
	ctx := context.Background()
	supplier := testutil.SeedSupplier(t, db, purchasing.SupplierStatusActive)
	tee := testutil.SeedVariant(t, db, "TEE-RED-S-"+uuid.NewString()[:6], 10, "10.00")
	hoodie := testutil.SeedVariant(t, db, "HOODIE-RED-S-"+uuid.NewString()[:6], 1, "40.00")

	order := f.submitOrder(t, supplier.ID, tee.ID, hoodie.ID)
	// 3 x 12.50 + 2 x 40.00 = 117.50 rounds to 118; tax 10% of 118 rounds to 12
	assert.True(t, decimal.NewFromInt(118).Equal(order.Totals.Subtotal), "subtotal %s", order.Totals.Subtotal)
	assert.True(t, decimal.NewFromInt(12).Equal(order.Totals.TaxAmount), "tax %s", order.Totals.TaxAmount)
	assert.True(t, decimal.NewFromInt(130).Equal(order.Totals.GrandTotal), "grand total %s", order.Totals.GrandTotal)

	steps := []struct {
		target  purchasing.Status
		outcome purchasing.TransitionOutcome
	}{
		{purchasing.StatusPendingPayment, purchasing.OutcomeApplied},
		{purchasing.StatusPendingPayment, purchasing.OutcomeUnchanged},
		{purchasing.StatusPartiallyReceived, purchasing.OutcomeApplied},
		{purchasing.StatusCompleted, purchasing.OutcomeApplied},
	}
	for _, step := range steps {
		result, err := f.transitions.RequestTransition(ctx, order.ID, step.target)
		require.NoError(t, err, "transition to %s", step.target)
		assert.Equal(t, step.outcome, result.Outcome(), "transition to %s", step.target)
	}

	// completing from PARTIALLY_RECEIVED receives the goods
	assert.Equal(t, 13, testutil.StockOf(t, db, tee.ID))
	assert.Equal(t, 3, testutil.StockOf(t, db, hoodie.ID))

	_, err := f.transitions.RequestTransition(ctx, order.ID, purchasing.StatusCancelled)
	assert.ErrorIs(t, err, shared.ErrInvalidTransition)

	page, err := f.queries.ListOrders(ctx, purchasingapp.ListOrdersFilter{
		SupplierID: supplier.ID.String(),
		Status:     "completed",
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, order.OrderNumber, page.Items[0].OrderNumber)
}

func TestConcurrentReceive_SQLite(t *testing.T) {
	runConcurrentReceive(t, testutil.NewSQLiteDB(t))
}

func TestConcurrentReceive_Postgres(t *testing.T) {
	runConcurrentReceive(t, NewTestDB(t).DB)
}

func TestOrderLifecycle_SQLite(t *testing.T) {
	runLifecycle(t, testutil.NewSQLiteDB(t))
}

func TestOrderLifecycle_Postgres(t *testing.T) {
	runLifecycle(t, NewTestDB(t).DB)
}
