package models

import "time"

// JobModel represents the database persistence model for jobs.
type JobModel struct {
	ID              uint   `gorm:"primarykey"`
	SID             string `gorm:"column:sid;size:32;not null;uniqueIndex"`
	AccountID       string `gorm:"size:64;not null;index:idx_jobs_account"`
	SessionID       string `gorm:"size:64;not null;index:idx_jobs_session"`
	JobType         string `gorm:"size:20;not null"`
	Status          string `gorm:"size:20;not null;index:idx_jobs_status_updated,priority:1"`
	IdempotencyKey  string `gorm:"size:128"`
	Progress        float64
	ErrorReason     string `gorm:"size:1024"`
	ArtifactSID     string `gorm:"column:artifact_sid;size:32"`
	HandoffID       string `gorm:"size:64"`
	Attempts        int    `gorm:"not null;default:0"`
	ReservedCounter string `gorm:"size:40;not null"`
	ReservedAmount  float64
	CreatedAt       time.Time `gorm:"not null"`
	StartedAt       *time.Time
	FinishedAt      *time.Time
	UpdatedAt       time.Time `gorm:"not null;index:idx_jobs_status_updated,priority:2"`
}

// TableName specifies the table name for GORM
func (JobModel) TableName() string {
	return "jobs"
}
