package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ModelUsage is the activity attributed to one model used by one client on
// one day. TotalTokens is derived: the sum of the five token categories.
type ModelUsage struct {
	InputTokens      int64           `json:"input_tokens"`
	OutputTokens     int64           `json:"output_tokens"`
	CacheReadTokens  int64           `json:"cache_read_tokens"`
	CacheWriteTokens int64           `json:"cache_write_tokens"`
	ReasoningTokens  int64           `json:"reasoning_tokens"`
	TotalTokens      int64           `json:"total_tokens"`
	Cost             decimal.Decimal `json:"cost"`
	MessageCount     int64           `json:"message_count"`
}

// ClientUsage is one client's activity for one day. Its numeric fields always
// equal the sum over its Models map.
type ClientUsage struct {
	InputTokens      int64                 `json:"input_tokens"`
	OutputTokens     int64                 `json:"output_tokens"`
	CacheReadTokens  int64                 `json:"cache_read_tokens"`
	CacheWriteTokens int64                 `json:"cache_write_tokens"`
	ReasoningTokens  int64                 `json:"reasoning_tokens"`
	TotalTokens      int64                 `json:"total_tokens"`
	Cost             decimal.Decimal       `json:"cost"`
	MessageCount     int64                 `json:"message_count"`
	Models           map[string]ModelUsage `json:"models,omitempty"`
}

// ClientBreakdown maps client name -> usage for one day, stored as jsonb.
type ClientBreakdown map[string]ClientUsage

func (b ClientBreakdown) Value() (driver.Value, error) {
	if b == nil {
		return nil, nil
	}
	return json.Marshal(b)
}

func (b *ClientBreakdown) Scan(value interface{}) error {
	if value == nil {
		*b = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, b)
}

// ModelTokenIndex maps model id -> token total across all clients for one
// day, stored as jsonb.
type ModelTokenIndex map[string]int64

func (m ModelTokenIndex) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *ModelTokenIndex) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, m)
}

// UsageProfile is the single durable aggregate for one user across all time.
// Every numeric field is recomputed from the user's DailyUsage rows after
// each submission, never mutated independently.
type UsageProfile struct {
	BaseModel
	UserID           uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	TotalTokens      int64           `gorm:"default:0" json:"total_tokens"`
	InputTokens      int64           `gorm:"default:0" json:"input_tokens"`
	OutputTokens     int64           `gorm:"default:0" json:"output_tokens"`
	CacheReadTokens  int64           `gorm:"default:0" json:"cache_read_tokens"`
	CacheWriteTokens int64           `gorm:"default:0" json:"cache_write_tokens"`
	ReasoningTokens  int64           `gorm:"default:0" json:"reasoning_tokens"`
	TotalCost        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_cost"`
	TotalMessages    int64           `gorm:"default:0" json:"total_messages"`
	DateStart        *time.Time      `gorm:"type:date" json:"date_start,omitempty"`
	DateEnd          *time.Time      `gorm:"type:date" json:"date_end,omitempty"`
	ActiveDays       int             `gorm:"default:0" json:"active_days"`
	SourcesUsed      StringList      `gorm:"type:jsonb" json:"sources_used,omitempty"`
	ModelsUsed       StringList      `gorm:"type:jsonb" json:"models_used,omitempty"`
	Fingerprint      string          `gorm:"size:64" json:"fingerprint,omitempty"`
	LastSubmissionAt *time.Time      `json:"last_submission_at,omitempty"`
}

func (UsageProfile) TableName() string {
	return "usage_profiles"
}

// DailyUsage is the aggregate for one user on one calendar date. Its totals
// are recomputed from the Clients breakdown after each merge.
type DailyUsage struct {
	BaseModel
	ProfileID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_daily_profile_date,priority:1" json:"profile_id"`
	Date             time.Time       `gorm:"type:date;not null;uniqueIndex:idx_daily_profile_date,priority:2" json:"date"`
	TotalTokens      int64           `gorm:"default:0" json:"total_tokens"`
	InputTokens      int64           `gorm:"default:0" json:"input_tokens"`
	OutputTokens     int64           `gorm:"default:0" json:"output_tokens"`
	CacheReadTokens  int64           `gorm:"default:0" json:"cache_read_tokens"`
	CacheWriteTokens int64           `gorm:"default:0" json:"cache_write_tokens"`
	ReasoningTokens  int64           `gorm:"default:0" json:"reasoning_tokens"`
	TotalCost        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_cost"`
	TotalMessages    int64           `gorm:"default:0" json:"total_messages"`
	Clients          ClientBreakdown `gorm:"type:jsonb" json:"clients,omitempty"`
	ModelTotals      ModelTokenIndex `gorm:"type:jsonb" json:"model_totals,omitempty"`
}

func (DailyUsage) TableName() string {
	return "daily_usage"
}
