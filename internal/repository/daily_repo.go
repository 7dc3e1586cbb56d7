package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tgo/usagedash/internal/model"
)

type DailyUsageRepository struct {
	BaseRepository[model.DailyUsage]
}

func NewDailyUsageRepository(db *gorm.DB) *DailyUsageRepository {
	return &DailyUsageRepository{BaseRepository: BaseRepository[model.DailyUsage]{DB: db}}
}

func (r *DailyUsageRepository) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]model.DailyUsage, error) {
	var days []model.DailyUsage
	err := r.DB.WithContext(ctx).
		Where("profile_id = ? AND deleted_at IS NULL", profileID).
		Order("date ASC").
		Find(&days).Error
	return days, err
}

func (r *DailyUsageRepository) ListByProfileRange(ctx context.Context, profileID uuid.UUID, start, end time.Time) ([]model.DailyUsage, error) {
	var days []model.DailyUsage
	err := r.DB.WithContext(ctx).
		Where("profile_id = ? AND date >= ? AND date <= ? AND deleted_at IS NULL", profileID, start, end).
		Order("date ASC").
		Find(&days).Error
	return days, err
}
