package persistence

import (
	"context"
	"fmt"

	"github.com/erp/procurement/internal/domain/purchasing"
	"github.com/erp/procurement/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStockMovementRepository stores the stock ledger using GORM
type GormStockMovementRepository struct {
	db *gorm.DB
}

// NewGormStockMovementRepository creates a new GormStockMovementRepository
func NewGormStockMovementRepository(db *gorm.DB) *GormStockMovementRepository {
	return &GormStockMovementRepository{db: db}
}

// Create appends a ledger row. The unique (source_type, source_id, variant_id)
// index rejects a second receipt row for the same order line.
func (r *GormStockMovementRepository) Create(ctx context.Context, movement *purchasing.StockMovement) error {
	model := &models.StockMovementModel{}
	model.FromDomain(movement)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("record stock movement for variant %s: %w", movement.VariantID, err)
	}
	return nil
}

// FindBySource lists the ledger rows produced by one source document
func (r *GormStockMovementRepository) FindBySource(ctx context.Context, sourceType string, sourceID uuid.UUID) ([]purchasing.StockMovement, error) {
	var rows []models.StockMovementModel
	if err := r.db.WithContext(ctx).
		Where("source_type = ? AND source_id = ?", sourceType, sourceID).
		Order("created_at ASC").
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list stock movements of %s %s: %w", sourceType, sourceID, err)
	}

	movements := make([]purchasing.StockMovement, len(rows))
	for i := range rows {
		movements[i] = rows[i].ToDomain()
	}
	return movements, nil
}

var _ purchasing.StockMovementRepository = (*GormStockMovementRepository)(nil)
