package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/erp/procurement/internal/domain/purchasing"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/erp/procurement/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPurchaseOrderRepository implements PurchaseOrderRepository using GORM
type GormPurchaseOrderRepository struct {
	db *gorm.DB
}

// NewGormPurchaseOrderRepository creates a new GormPurchaseOrderRepository
func NewGormPurchaseOrderRepository(db *gorm.DB) *GormPurchaseOrderRepository {
	return &GormPurchaseOrderRepository{db: db}
}

func orderedLines(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// FindByID finds a purchase order and its lines
func (r *GormPurchaseOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*purchasing.PurchaseOrder, error) {
	var model models.PurchaseOrderModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", orderedLines).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("purchase order", id)
		}
		return nil, fmt.Errorf("find purchase order %s: %w", id, err)
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate loads the order with SELECT ... FOR UPDATE. It must run
// inside a transaction; the lock is held until commit or rollback.
// SQLite ignores the locking clause and relies on its database-level lock.
func (r *GormPurchaseOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*purchasing.PurchaseOrder, error) {
	var model models.PurchaseOrderModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("purchase order", id)
		}
		return nil, fmt.Errorf("lock purchase order %s: %w", id, err)
	}

	if err := r.db.WithContext(ctx).
		Where("order_id = ?", id).
		Order("position ASC").
		Find(&model.Lines).Error; err != nil {
		return nil, fmt.Errorf("load lines of purchase order %s: %w", id, err)
	}
	return model.ToDomain(), nil
}

// FindAll returns one page of orders matching filter and the total count
func (r *GormPurchaseOrderRepository) FindAll(ctx context.Context, filter purchasing.OrderFilter) ([]purchasing.PurchaseOrder, int64, error) {
	var total int64
	if err := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&models.PurchaseOrderModel{}), filter).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count purchase orders: %w", err)
	}
	if total == 0 {
		return []purchasing.PurchaseOrder{}, 0, nil
	}

	var rows []models.PurchaseOrderModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.PurchaseOrderModel{}), filter)
	if err := query.Preload("Lines", orderedLines).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list purchase orders: %w", err)
	}

	orders := make([]purchasing.PurchaseOrder, len(rows))
	for i := range rows {
		orders[i] = *rows[i].ToDomain()
	}
	return orders, total, nil
}

// Create inserts a new order together with its lines
func (r *GormPurchaseOrderRepository) Create(ctx context.Context, order *purchasing.PurchaseOrder) error {
	model := &models.PurchaseOrderModel{}
	model.FromDomain(order)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Lines").Create(model).Error; err != nil {
			return fmt.Errorf("insert purchase order %s: %w", order.OrderNumber, err)
		}
		if len(model.Lines) == 0 {
			return nil
		}
		if err := tx.Create(&model.Lines).Error; err != nil {
			return fmt.Errorf("insert lines of purchase order %s: %w", order.OrderNumber, err)
		}
		return nil
	})
}

// SaveTransition writes the transition fields guarded on the expected
// version. With claimReceipt the write also requires received_at IS NULL,
// so exactly one writer can stamp the receipt.
func (r *GormPurchaseOrderRepository) SaveTransition(ctx context.Context, order *purchasing.PurchaseOrder, expectedVersion int, claimReceipt bool) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&models.PurchaseOrderModel{}).
		Where("id = ? AND version = ?", order.ID, expectedVersion)
	if claimReceipt {
		query = query.Where("received_at IS NULL")
	}

	result := query.Updates(map[string]interface{}{
		"status":      string(order.Status),
		"received_at": order.ReceivedAt,
		"version":     order.Version,
		"updated_at":  order.UpdatedAt,
	})
	if result.Error != nil {
		return false, fmt.Errorf("save transition of purchase order %s: %w", order.ID, result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *GormPurchaseOrderRepository) applyFilter(query *gorm.DB, filter purchasing.OrderFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	sortField := ValidateSortField(filter.OrderBy, PurchaseOrderSortFields, "order_date")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	query = query.Order(sortField + " " + sortOrder).Order("created_at " + sortOrder).Order("id")

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	return query
}

func (r *GormPurchaseOrderRepository) applyFilterWithoutPagination(query *gorm.DB, filter purchasing.OrderFilter) *gorm.DB {
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("LOWER(order_number) LIKE ? OR LOWER(external_reference) LIKE ?", pattern, pattern)
	}
	if filter.SupplierID != nil {
		query = query.Where("supplier_id = ?", *filter.SupplierID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	if filter.DateFrom != nil {
		query = query.Where("order_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("order_date <= ?", *filter.DateTo)
	}
	return query
}

// Ensure GormPurchaseOrderRepository implements PurchaseOrderRepository
var _ purchasing.PurchaseOrderRepository = (*GormPurchaseOrderRepository)(nil)
