package models

import "time"

// IdempotencyRecordModel represents the database persistence model for
// idempotency claims. The unique (account, key) index is the atomicity
// anchor for duplicate suppression.
type IdempotencyRecordModel struct {
	ID            uint      `gorm:"primarykey"`
	SID           string    `gorm:"column:sid;size:32;not null"`
	AccountID     string    `gorm:"size:64;not null;uniqueIndex:idx_idem_account_key,priority:1"`
	Key           string    `gorm:"column:idem_key;size:128;not null;uniqueIndex:idx_idem_account_key,priority:2"`
	State         string    `gorm:"size:20;not null"`
	JobSID        string    `gorm:"column:job_sid;size:32"`
	DenialLimitID string    `gorm:"column:denial_limit_id;size:64"`
	CreatedAt     time.Time `gorm:"not null"`
	ExpiresAt     time.Time `gorm:"not null;index"`
}

// TableName specifies the table name for GORM
func (IdempotencyRecordModel) TableName() string {
	return "idempotency_records"
}
