package persistence

import (
	"context"

	apppurchasing "github.com/erp/procurement/internal/application/purchasing"
	"github.com/erp/procurement/internal/domain/purchasing"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// Repositories handed to the callback share one *gorm.DB transaction, so the
// order row lock, the stock increments and the ledger rows commit together.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction. An error from fn, or a
// panic, rolls the transaction back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos apppurchasing.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) Orders() purchasing.PurchaseOrderRepository {
	return NewGormPurchaseOrderRepository(r.tx)
}

func (r *gormTransactionalRepositories) Variants() purchasing.VariantRepository {
	return NewGormVariantRepository(r.tx)
}

func (r *gormTransactionalRepositories) Movements() purchasing.StockMovementRepository {
	return NewGormStockMovementRepository(r.tx)
}

var (
	_ apppurchasing.TransactionScope          = (*GormTransactionScope)(nil)
	_ apppurchasing.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
