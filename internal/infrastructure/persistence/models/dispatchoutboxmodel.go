package models

import (
	"time"

	"gorm.io/datatypes"
)

// DispatchOutboxModel represents the database persistence model for the
// dispatch outbox. Payload is the serialized task envelope.
type DispatchOutboxModel struct {
	ID            uint           `gorm:"primarykey"`
	JobSID        string         `gorm:"column:job_sid;size:32;not null;uniqueIndex"`
	Payload       datatypes.JSON `gorm:"not null"`
	Attempts      int       `gorm:"not null;default:0"`
	NextAttemptAt time.Time `gorm:"not null;index:idx_outbox_status_next,priority:2"`
	Status        string    `gorm:"size:20;not null;index:idx_outbox_status_next,priority:1"`
	LastError     string    `gorm:"size:1024"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

// TableName specifies the table name for GORM
func (DispatchOutboxModel) TableName() string {
	return "dispatch_outbox"
}
