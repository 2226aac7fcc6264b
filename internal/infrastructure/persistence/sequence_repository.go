package persistence

import (
	"context"
	"fmt"

	"github.com/transportops/backoffice/internal/domain/billing"
	"github.com/transportops/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSequenceRepository hands out document numbers from the document_sequences table.
// Reserve must run inside a transaction: the counter row stays locked until it ends.
type GormSequenceRepository struct {
	db *gorm.DB
}

// NewGormSequenceRepository creates a new GormSequenceRepository
func NewGormSequenceRepository(db *gorm.DB) *GormSequenceRepository {
	return &GormSequenceRepository{db: db}
}

// Reserve returns max(counter, floor)+1 for prefix and stores it as the counter
func (r *GormSequenceRepository) Reserve(ctx context.Context, prefix string, floor int64) (int64, error) {
	db := r.db.WithContext(ctx)

	seed := models.DocumentSequenceModel{Prefix: prefix, UpdatedAt: db.NowFunc()}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return 0, fmt.Errorf("seed sequence %s: %w", prefix, err)
	}

	var row models.DocumentSequenceModel
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&row, "prefix = ?", prefix).Error; err != nil {
		return 0, fmt.Errorf("lock sequence %s: %w", prefix, err)
	}

	next := max(row.LastValue, floor) + 1
	err := db.Model(&models.DocumentSequenceModel{}).
		Where("prefix = ?", prefix).
		Updates(map[string]any{"last_value": next, "updated_at": db.NowFunc()}).Error
	if err != nil {
		return 0, fmt.Errorf("advance sequence %s: %w", prefix, err)
	}
	return next, nil
}

// Current returns the stored counter for prefix, 0 when none was issued yet
func (r *GormSequenceRepository) Current(ctx context.Context, prefix string) (int64, error) {
	var row models.DocumentSequenceModel
	err := r.db.WithContext(ctx).Where("prefix = ?", prefix).Limit(1).Find(&row).Error
	if err != nil {
		return 0, fmt.Errorf("read sequence %s: %w", prefix, err)
	}
	return row.LastValue, nil
}

var _ billing.SequenceRepository = (*GormSequenceRepository)(nil)

