// Package dispatch covers the handoff of admitted jobs to the execution
// substrate. An outbox entry is written in the admission transaction, so a
// job can never be recorded without a pending handoff to drive it.
package dispatch

import (
	"errors"
	"fmt"
	"time"
)

// OutboxStatus is the delivery state of an outbox entry.
type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "pending"
	OutboxSent      OutboxStatus = "sent"
	OutboxExhausted OutboxStatus = "exhausted"
)

// ErrEntryNotFound indicates no outbox entry matched the lookup.
var ErrEntryNotFound = errors.New("outbox entry not found")

// OutboxEntry is one pending handoff. Payload carries the serialized task
// envelope written at admission time.
type OutboxEntry struct {
	dbID          uint
	jobSID        string
	payload       []byte
	attempts      int
	nextAttemptAt time.Time
	status        OutboxStatus
	lastError     string
	createdAt     time.Time
	updatedAt     time.Time
}

// NewOutboxEntry creates a pending entry due immediately.
func NewOutboxEntry(jobSID string, payload []byte) (*OutboxEntry, error) {
	if jobSID == "" {
		return nil, fmt.Errorf("job SID is required")
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("payload is required")
	}
	now := time.Now().UTC()
	return &OutboxEntry{
		jobSID:        jobSID,
		payload:       payload,
		status:        OutboxPending,
		nextAttemptAt: now,
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

// ReconstructOutboxEntry reconstructs an entry from persistence.
func ReconstructOutboxEntry(dbID uint, jobSID string, payload []byte, attempts int, nextAttemptAt time.Time, status OutboxStatus, lastError string, createdAt, updatedAt time.Time) (*OutboxEntry, error) {
	if dbID == 0 {
		return nil, fmt.Errorf("entry ID cannot be zero")
	}
	if jobSID == "" {
		return nil, fmt.Errorf("job SID is required")
	}
	return &OutboxEntry{
		dbID:          dbID,
		jobSID:        jobSID,
		payload:       payload,
		attempts:      attempts,
		nextAttemptAt: nextAttemptAt,
		status:        status,
		lastError:     lastError,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}, nil
}

// DBID returns the database row ID.
func (e *OutboxEntry) DBID() uint { return e.dbID }

// JobSID returns the job this handoff belongs to.
func (e *OutboxEntry) JobSID() string { return e.jobSID }

// Payload returns the serialized task envelope.
func (e *OutboxEntry) Payload() []byte { return e.payload }

// Attempts returns how many delivery attempts have been made.
func (e *OutboxEntry) Attempts() int { return e.attempts }

// NextAttemptAt returns when the sweeper may try again.
func (e *OutboxEntry) NextAttemptAt() time.Time { return e.nextAttemptAt }

// Status returns the delivery status.
func (e *OutboxEntry) Status() OutboxStatus { return e.status }

// LastError returns the most recent delivery error, if any.
func (e *OutboxEntry) LastError() string { return e.lastError }

// CreatedAt returns when the entry was written.
func (e *OutboxEntry) CreatedAt() time.Time { return e.createdAt }

// UpdatedAt returns the last mutation time.
func (e *OutboxEntry) UpdatedAt() time.Time { return e.updatedAt }

// SetDBID sets the database row ID (only for persistence layer use).
func (e *OutboxEntry) SetDBID(dbID uint) error {
	if e.dbID != 0 {
		return fmt.Errorf("entry ID is already set")
	}
	if dbID == 0 {
		return fmt.Errorf("entry ID cannot be zero")
	}
	e.dbID = dbID
	return nil
}

// MarkSent records a successful handoff.
func (e *OutboxEntry) MarkSent() {
	e.status = OutboxSent
	e.lastError = ""
	e.updatedAt = time.Now().UTC()
}

// MarkAttemptFailed records a failed delivery and schedules the next try
// with linear backoff. Once maxAttempts is reached the entry is exhausted
// and the job should be failed with its reservation released.
func (e *OutboxEntry) MarkAttemptFailed(reason string, backoff time.Duration, maxAttempts int) {
	now := time.Now().UTC()
	e.attempts++
	e.lastError = reason
	if e.attempts >= maxAttempts {
		e.status = OutboxExhausted
	} else {
		e.nextAttemptAt = now.Add(backoff * time.Duration(e.attempts))
	}
	e.updatedAt = now
}

// Requeue returns a sent entry to pending so the sweeper re-dispatches the
// job, used when a worker reports a retryable failure.
func (e *OutboxEntry) Requeue() {
	now := time.Now().UTC()
	e.status = OutboxPending
	e.nextAttemptAt = now
	e.updatedAt = now
}

// IsExhausted reports whether delivery gave up.
func (e *OutboxEntry) IsExhausted() bool {
	return e.status == OutboxExhausted
}
