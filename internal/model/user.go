package model

import (
	"time"
)

type User struct {
	BaseModel
	Username     string     `gorm:"size:100;uniqueIndex;not null" json:"username"`
	Email        string     `gorm:"size:255;uniqueIndex" json:"email,omitempty"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	DisplayName  string     `gorm:"size:255" json:"display_name,omitempty"`
	Avatar       string     `gorm:"size:500" json:"avatar_url,omitempty"`
	APIKey       string     `gorm:"size:255;uniqueIndex" json:"api_key,omitempty"`
	IsActive     bool       `gorm:"default:true" json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

func (User) TableName() string {
	return "users"
}
