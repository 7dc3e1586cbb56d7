package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tgo/usagedash/internal/model"
)

type UsageProfileRepository struct {
	BaseRepository[model.UsageProfile]
}

func NewUsageProfileRepository(db *gorm.DB) *UsageProfileRepository {
	return &UsageProfileRepository{BaseRepository: BaseRepository[model.UsageProfile]{DB: db}}
}

func (r *UsageProfileRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*model.UsageProfile, error) {
	var profile model.UsageProfile
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND deleted_at IS NULL", userID).
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
