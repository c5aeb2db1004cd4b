package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/procurement/internal/domain/purchasing"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/erp/procurement/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormVariantRepository implements VariantRepository using GORM
type GormVariantRepository struct {
	db *gorm.DB
}

// NewGormVariantRepository creates a new GormVariantRepository
func NewGormVariantRepository(db *gorm.DB) *GormVariantRepository {
	return &GormVariantRepository{db: db}
}

// FindByID finds a product variant by its ID
func (r *GormVariantRepository) FindByID(ctx context.Context, id uuid.UUID) (*purchasing.ProductVariant, error) {
	var model models.ProductVariantModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("product variant", id)
		}
		return nil, fmt.Errorf("find product variant %s: %w", id, err)
	}
	return model.ToDomain(), nil
}

// FindByIDs returns the variants that exist among ids. Missing ids are
// simply absent from the result.
func (r *GormVariantRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]purchasing.ProductVariant, error) {
	if len(ids) == 0 {
		return []purchasing.ProductVariant{}, nil
	}

	var rows []models.ProductVariantModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find product variants: %w", err)
	}

	variants := make([]purchasing.ProductVariant, len(rows))
	for i := range rows {
		variants[i] = *rows[i].ToDomain()
	}
	return variants, nil
}

// IncrementStock adds amount to the variant's stock in a single UPDATE so
// concurrent increments never lose writes, then reads back the balance.
func (r *GormVariantRepository) IncrementStock(ctx context.Context, id uuid.UUID, amount int) (int, error) {
	if amount <= 0 {
		return 0, shared.NewValidationError(shared.CodeInvalidQuantity,
			fmt.Sprintf("stock increment must be positive, got %d", amount))
	}

	result := r.db.WithContext(ctx).
		Model(&models.ProductVariantModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"stock_quantity": gorm.Expr("stock_quantity + ?", amount),
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("increment stock of variant %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, shared.NewNotFoundError("product variant", id)
	}

	var balances []int
	if err := r.db.WithContext(ctx).
		Model(&models.ProductVariantModel{}).
		Where("id = ?", id).
		Pluck("stock_quantity", &balances).Error; err != nil {
		return 0, fmt.Errorf("read stock of variant %s: %w", id, err)
	}
	if len(balances) == 0 {
		return 0, shared.NewNotFoundError("product variant", id)
	}
	return balances[0], nil
}

var _ purchasing.VariantRepository = (*GormVariantRepository)(nil)
