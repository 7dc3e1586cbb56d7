package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/tgo/usagedash/internal/model"
)

type UserRepository struct {
	BaseRepository[model.User]
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{BaseRepository: BaseRepository[model.User]{DB: db}}
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).
		Where("username = ? AND is_active = true AND deleted_at IS NULL", username).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByAPIKey(ctx context.Context, apiKey string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).
		Where("api_key = ? AND is_active = true AND deleted_at IS NULL", apiKey).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}
