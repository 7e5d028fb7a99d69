package models

import "time"

// AudioAssetModel represents the database persistence model for uploaded
// audio recordings.
type AudioAssetModel struct {
	ID          uint   `gorm:"primarykey"`
	SID         string `gorm:"column:sid;size:32;not null;uniqueIndex"`
	AccountID   string `gorm:"size:64;not null;index"`
	SessionID   string `gorm:"size:64;not null;index"`
	StorageKey  string `gorm:"size:512;not null"`
	SizeBytes   int64
	DurationSec float64
	Status      string    `gorm:"size:20;not null;index:idx_assets_status_expires,priority:1"`
	CreatedAt   time.Time `gorm:"not null"`
	ExpiresAt   time.Time `gorm:"not null;index:idx_assets_status_expires,priority:2"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName specifies the table name for GORM
func (AudioAssetModel) TableName() string {
	return "audio_assets"
}
