package persistence

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	apppurchasing "github.com/erp/procurement/internal/application/purchasing"
	"github.com/erp/procurement/internal/domain/purchasing"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/erp/procurement/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormVariantRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	repo := NewGormVariantRepository(db)
	tee := testutil.SeedVariant(t, db, "TEE-RED-S", 5, "12.50")
	hoodie := testutil.SeedVariant(t, db, "HOODIE-GRY-L", 0, "40")

	t.Run("FindByID", func(t *testing.T) {
		found, err := repo.FindByID(ctx, tee.ID)
		require.NoError(t, err)
		assert.Equal(t, "TEE-RED-S", found.SKU)
		assert.Equal(t, 5, found.StockQuantity)
		assert.Equal(t, "12.5", found.CostPrice.String())

		_, err = repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("FindByIDs skips unknown ids", func(t *testing.T) {
		found, err := repo.FindByIDs(ctx, []uuid.UUID{tee.ID, uuid.New(), hoodie.ID})
		require.NoError(t, err)
		assert.Len(t, found, 2)

		empty, err := repo.FindByIDs(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("IncrementStock returns the new balance", func(t *testing.T) {
		balance, err := repo.IncrementStock(ctx, tee.ID, 10)
		require.NoError(t, err)
		assert.Equal(t, 15, balance)

		balance, err = repo.IncrementStock(ctx, tee.ID, 3)
		require.NoError(t, err)
		assert.Equal(t, 18, balance)
		assert.Equal(t, 18, testutil.StockOf(t, db, tee.ID))
	})

	t.Run("IncrementStock rejects unknown variants and non-positive amounts", func(t *testing.T) {
		_, err := repo.IncrementStock(ctx, uuid.New(), 1)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		_, err = repo.IncrementStock(ctx, hoodie.ID, 0)
		var domainErr *shared.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, shared.CodeInvalidQuantity, domainErr.Code)
		assert.Equal(t, 0, testutil.StockOf(t, db, hoodie.ID))
	})
}

func TestGormVariantRepository_IncrementStockSQL(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := NewGormVariantRepository(mockDB.DB)
	variantID := uuid.New()

	mockDB.Mock.ExpectExec(regexp.QuoteMeta(`UPDATE "product_variants" SET "stock_quantity"=stock_quantity + $1,"updated_at"=$2 WHERE id = $3`)).
		WithArgs(7, sqlmock.AnyArg(), variantID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.Mock.ExpectQuery(regexp.QuoteMeta(`SELECT "stock_quantity" FROM "product_variants" WHERE id = $1`)).
		WithArgs(variantID).
		WillReturnRows(sqlmock.NewRows([]string{"stock_quantity"}).AddRow(19))

	balance, err := repo.IncrementStock(context.Background(), variantID, 7)
	require.NoError(t, err)
	assert.Equal(t, 19, balance)
	mockDB.ExpectationsWereMet(t)
}

func TestGormStockMovementRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	repo := NewGormStockMovementRepository(db)
	orderID := uuid.New()
	variantA, variantB := uuid.New(), uuid.New()
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	first := purchasing.NewReceiptMovement(orderID, variantA, 10, 15, at)
	second := purchasing.NewReceiptMovement(orderID, variantB, 2, 2, at.Add(time.Second))
	require.NoError(t, repo.Create(ctx, &first))
	require.NoError(t, repo.Create(ctx, &second))

	t.Run("lists movements of the source in order", func(t *testing.T) {
		movements, err := repo.FindBySource(ctx, purchasing.StockSourcePurchaseReceipt, orderID)
		require.NoError(t, err)
		require.Len(t, movements, 2)
		assert.Equal(t, variantA, movements[0].VariantID)
		assert.Equal(t, 5, movements[0].BalanceBefore)
		assert.Equal(t, 15, movements[0].BalanceAfter)
		assert.Equal(t, variantB, movements[1].VariantID)
	})

	t.Run("unknown source yields empty list", func(t *testing.T) {
		movements, err := repo.FindBySource(ctx, purchasing.StockSourcePurchaseReceipt, uuid.New())
		require.NoError(t, err)
		assert.Empty(t, movements)
	})

	t.Run("unique index rejects a second receipt of the same line", func(t *testing.T) {
		dup := purchasing.NewReceiptMovement(orderID, variantA, 10, 25, at)
		assert.Error(t, repo.Create(ctx, &dup))
	})
}

func TestGormTransactionScope(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	variant := testutil.SeedVariant(t, db, "SOCK-BLK", 4, "3")
	scope := NewGormTransactionScope(db)

	t.Run("commits all repositories together", func(t *testing.T) {
		orderID := uuid.New()
		err := scope.Execute(ctx, func(repos apppurchasing.TransactionalRepositories) error {
			balance, err := repos.Variants().IncrementStock(ctx, variant.ID, 6)
			if err != nil {
				return err
			}
			movement := purchasing.NewReceiptMovement(orderID, variant.ID, 6, balance, time.Now())
			return repos.Movements().Create(ctx, &movement)
		})
		require.NoError(t, err)
		assert.Equal(t, 10, testutil.StockOf(t, db, variant.ID))

		movements, err := NewGormStockMovementRepository(db).FindBySource(ctx, purchasing.StockSourcePurchaseReceipt, orderID)
		require.NoError(t, err)
		assert.Len(t, movements, 1)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		boom := errors.New("ledger unavailable")
		err := scope.Execute(ctx, func(repos apppurchasing.TransactionalRepositories) error {
			if _, err := repos.Variants().IncrementStock(ctx, variant.ID, 100); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 10, testutil.StockOf(t, db, variant.ID))
	})
}
