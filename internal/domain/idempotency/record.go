// Package idempotency guards duplicate submissions. A record is the claim on
// an (account, key) pair: the first writer wins via a unique index and later
// arrivals replay the stored outcome instead of admitting a second job.
package idempotency

import (
	"errors"
	"fmt"
	"time"

	"classnotex/internal/shared/id"
)

// State tracks whether the guarded operation is still in flight.
type State string

const (
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

var (
	// ErrRecordNotFound indicates no record matched the lookup.
	ErrRecordNotFound = errors.New("idempotency record not found")

	// ErrInFlight indicates a concurrent request holds the same key and has
	// not finished yet. Clients should retry after a short delay.
	ErrInFlight = errors.New("request with this idempotency key is in flight")
)

// DefaultRetention is how long finished records are kept before the cleanup
// sweep removes them. Past this window a reused key admits a fresh job.
const DefaultRetention = 24 * time.Hour

// Record is one idempotency claim. A completed record carries either the
// admitted job SID or the limit ID of a recorded quota denial; replays
// return whichever outcome was stored, never re-running admission.
type Record struct {
	dbID          uint
	sid           string
	accountID     string
	key           string
	state         State
	jobSID        string
	denialLimitID string
	createdAt     time.Time
	expiresAt     time.Time
}

// NewRecord creates an in-progress claim for (accountID, key).
func NewRecord(accountID, key string, retention time.Duration) (*Record, error) {
	if accountID == "" {
		return nil, fmt.Errorf("account ID is required")
	}
	if key == "" {
		return nil, fmt.Errorf("idempotency key is required")
	}
	if retention <= 0 {
		retention = DefaultRetention
	}

	sid, err := id.NewIdempotencyID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate record SID: %w", err)
	}

	now := time.Now().UTC()
	return &Record{
		sid:       sid,
		accountID: accountID,
		key:       key,
		state:     StateInProgress,
		createdAt: now,
		expiresAt: now.Add(retention),
	}, nil
}

// ReconstructRecord reconstructs a record from persistence.
func ReconstructRecord(dbID uint, sid, accountID, key string, state State, jobSID, denialLimitID string, createdAt, expiresAt time.Time) (*Record, error) {
	if dbID == 0 {
		return nil, fmt.Errorf("record ID cannot be zero")
	}
	if accountID == "" || key == "" {
		return nil, fmt.Errorf("account ID and key are required")
	}
	return &Record{
		dbID:          dbID,
		sid:           sid,
		accountID:     accountID,
		key:           key,
		state:         state,
		jobSID:        jobSID,
		denialLimitID: denialLimitID,
		createdAt:     createdAt,
		expiresAt:     expiresAt,
	}, nil
}

// DBID returns the database row ID.
func (r *Record) DBID() uint { return r.dbID }

// SID returns the public record identifier.
func (r *Record) SID() string { return r.sid }

// AccountID returns the owning account.
func (r *Record) AccountID() string { return r.accountID }

// Key returns the client-supplied idempotency key.
func (r *Record) Key() string { return r.key }

// State returns the claim state.
func (r *Record) State() State { return r.state }

// JobSID returns the admitted job, once the claim completed.
func (r *Record) JobSID() string { return r.jobSID }

// DenialLimitID returns the limit that denied the guarded admission, empty
// when the admission succeeded.
func (r *Record) DenialLimitID() string { return r.denialLimitID }

// CreatedAt returns when the claim was taken.
func (r *Record) CreatedAt() time.Time { return r.createdAt }

// ExpiresAt returns when the cleanup sweep may remove the record.
func (r *Record) ExpiresAt() time.Time { return r.expiresAt }

// IsExpired reports whether the record has aged out at the given time.
func (r *Record) IsExpired(now time.Time) bool {
	return now.After(r.expiresAt)
}

// SetDBID sets the database row ID (only for persistence layer use).
func (r *Record) SetDBID(dbID uint) error {
	if r.dbID != 0 {
		return fmt.Errorf("record ID is already set")
	}
	if dbID == 0 {
		return fmt.Errorf("record ID cannot be zero")
	}
	r.dbID = dbID
	return nil
}

// Complete stores the admitted job as the claim's outcome.
func (r *Record) Complete(jobSID string) error {
	if r.state == StateCompleted {
		return fmt.Errorf("idempotency record is already completed")
	}
	if jobSID == "" {
		return fmt.Errorf("job SID is required")
	}
	r.state = StateCompleted
	r.jobSID = jobSID
	return nil
}

// Deny finishes the claim with a recorded quota denial. Retries of the same
// key replay the denial verbatim instead of re-running admission.
func (r *Record) Deny(limitID string) error {
	if r.state == StateCompleted {
		return fmt.Errorf("idempotency record is already completed")
	}
	if limitID == "" {
		return fmt.Errorf("limit ID is required")
	}
	r.state = StateCompleted
	r.denialLimitID = limitID
	return nil
}
