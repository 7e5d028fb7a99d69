package models

import "time"

// ArtifactModel represents the database persistence model for generated
// artifacts. One row per (session, type); regeneration updates in place.
type ArtifactModel struct {
	ID           uint   `gorm:"primarykey"`
	SID          string `gorm:"column:sid;size:32;not null;uniqueIndex"`
	AccountID    string `gorm:"size:64;not null;index"`
	SessionID    string `gorm:"size:64;not null;uniqueIndex:idx_artifacts_session_type,priority:1"`
	ArtifactType string `gorm:"size:20;not null;uniqueIndex:idx_artifacts_session_type,priority:2"`
	Language     string `gorm:"size:16"`
	Content      string `gorm:"type:longtext"`
	Version      int    `gorm:"not null;default:1"`
	JobSID       string `gorm:"column:job_sid;size:32"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName specifies the table name for GORM
func (ArtifactModel) TableName() string {
	return "artifacts"
}
