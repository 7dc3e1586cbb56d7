package db

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tgo/usagedash/internal/model"
)

func NewGormDB(databaseURL string) (*gorm.DB, error) {
	// TranslateError maps the Postgres unique_violation into
	// gorm.ErrDuplicatedKey, which the ingestion retry path relies on.
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.UsageProfile{},
		&model.DailyUsage{},
	)
}
