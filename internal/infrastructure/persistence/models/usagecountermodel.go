package models

import "time"

// UsageCounterModel represents the database persistence model for monthly
// usage counters. One row per (account, month); the reservation path locks
// this row FOR UPDATE.
type UsageCounterModel struct {
	ID                   uint      `gorm:"primarykey"`
	AccountID            string    `gorm:"size:64;not null;uniqueIndex:idx_usage_account_month,priority:1"`
	MonthKey             string    `gorm:"size:7;not null;uniqueIndex:idx_usage_account_month,priority:2"`
	CloudSTTSeconds      float64   `gorm:"column:cloud_stt_seconds;not null;default:0"`
	CloudSessionsStarted float64   `gorm:"not null;default:0"`
	SummaryGenerated     float64   `gorm:"not null;default:0"`
	QuizGenerated        float64   `gorm:"not null;default:0"`
	LLMCalls             float64   `gorm:"column:llm_calls;not null;default:0"`
	ServerSession        float64   `gorm:"not null;default:0"`
	CreatedAt            time.Time `gorm:"not null"`
	UpdatedAt            time.Time `gorm:"not null"`
}

// TableName specifies the table name for GORM
func (UsageCounterModel) TableName() string {
	return "usage_counters"
}
