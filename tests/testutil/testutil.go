// Package testutil provides common test utilities for the procurement service:
// mock and in-memory databases, catalog fixtures and HTTP helpers.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/procurement/internal/domain/purchasing"
	"github.com/erp/procurement/internal/infrastructure/persistence/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockDB wraps a GORM database with sqlmock for testing.
type MockDB struct {
	DB    *gorm.DB
	Mock  sqlmock.Sqlmock
	SqlDB *sql.DB
}

// NewMockDB creates a sqlmock-backed GORM database speaking the postgres
// dialect. The connection is closed when the test ends.
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create sqlmock")
	t.Cleanup(func() { _ = mockDB.Close() })

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to open GORM connection")

	return &MockDB{
		DB:    gormDB,
		Mock:  mock,
		SqlDB: mockDB,
	}
}

// ExpectationsWereMet verifies that all expectations were met.
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	require.NoError(t, m.Mock.ExpectationsWereMet(), "Unmet database expectations")
}

// NewSQLiteDB opens a private in-memory SQLite database with the procurement
// schema. A single connection keeps every goroutine on the same database and
// serialises transactions the way a row lock would.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to open sqlite")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.ProcurementModels()...))
	return db
}

// SeedSupplier inserts a supplier with the given status
func SeedSupplier(t *testing.T, db *gorm.DB, status purchasing.SupplierStatus) *purchasing.Supplier {
	t.Helper()

	supplier := &purchasing.Supplier{
		ID:           uuid.New(),
		LegalName:    "Acme Textiles Ltd",
		TaxID:        "TX-" + uuid.NewString()[:8],
		ContactName:  "Dana Reyes",
		ContactEmail: "orders@acme.example",
		Status:       status,
	}
	model := &models.SupplierModel{}
	model.FromDomain(supplier)
	now := time.Now().UTC()
	model.CreatedAt, model.UpdatedAt = now, now
	require.NoError(t, db.Create(model).Error)
	return supplier
}

// SeedVariant inserts a product variant with the given stock and cost price
func SeedVariant(t *testing.T, db *gorm.DB, sku string, stock int, costPrice string) *purchasing.ProductVariant {
	t.Helper()

	variant := &purchasing.ProductVariant{
		ID:            uuid.New(),
		ProductID:     uuid.New(),
		SKU:           sku,
		Color:         "navy",
		Size:          "M",
		StockQuantity: stock,
		CostPrice:     decimal.RequireFromString(costPrice),
		SalePrice:     decimal.RequireFromString(costPrice).Mul(decimal.NewFromInt(2)),
	}
	model := &models.ProductVariantModel{}
	model.FromDomain(variant)
	now := time.Now().UTC()
	model.CreatedAt, model.UpdatedAt = now, now
	require.NoError(t, db.Create(model).Error)
	return variant
}

// StockOf reads the current stock of a variant directly from the table
func StockOf(t *testing.T, db *gorm.DB, variantID uuid.UUID) int {
	t.Helper()

	var model models.ProductVariantModel
	require.NoError(t, db.First(&model, "id = ?", variantID).Error)
	return model.StockQuantity
}

// NewTestUUID generates a deterministic UUID for testing.
func NewTestUUID(seed string) uuid.UUID {
	namespace := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	return uuid.NewSHA1(namespace, []byte(seed))
}

// ContextWithTimeout creates a context that is cancelled when the test ends.
func ContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// RequireEventually retries condition until it passes or the timeout expires.
func RequireEventually(t *testing.T, condition func() bool, timeout, interval time.Duration, msgAndArgs ...interface{}) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(interval)
	}
	t.Fatalf("Condition not met within %v: %v", timeout, msgAndArgs)
}
