// Package asset tracks uploaded audio through its processing lifecycle and
// retention window.
package asset

import (
	"errors"
	"fmt"
	"time"

	"classnotex/internal/shared/id"
)

// Status is the lifecycle state of an audio asset.
type Status string

const (
	// StatusPending means the upload slot was registered but bytes have not
	// been confirmed yet.
	StatusPending Status = "pending"
	// StatusAvailable means the upload finished and the asset can be
	// transcribed.
	StatusAvailable Status = "available"
	// StatusProcessing means a transcription job currently owns the asset.
	StatusProcessing Status = "processing"
	// StatusReady means a transcript exists for the asset.
	StatusReady Status = "ready"
	// StatusFailed means transcription failed; the audio is kept for retry.
	StatusFailed Status = "failed"
	// StatusExpired means the retention window passed; the bytes still
	// exist and await the purge.
	StatusExpired Status = "expired"
	// StatusDeleted means the retention sweep removed the stored bytes.
	StatusDeleted Status = "deleted"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid checks if the status value is known.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusAvailable, StatusProcessing, StatusReady, StatusFailed, StatusExpired, StatusDeleted:
		return true
	}
	return false
}

var (
	// ErrAssetNotFound indicates no asset matched the lookup.
	ErrAssetNotFound = errors.New("audio asset not found")

	// ErrAssetDeleted indicates the asset's bytes were removed by retention.
	ErrAssetDeleted = errors.New("audio asset has been deleted")
)

// InvalidTransitionError reports a lifecycle transition the asset state
// machine does not permit.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid audio asset transition from %s to %s", e.From, e.To)
}

// AudioAsset is one uploaded recording.
type AudioAsset struct {
	dbID        uint
	sid         string
	accountID   string
	sessionID   string
	storageKey  string
	sizeBytes   int64
	durationSec float64
	status      Status
	createdAt   time.Time
	expiresAt   time.Time
	updatedAt   time.Time
}

// NewAudioAsset registers a pending upload slot. retentionDays bounds how
// long the bytes are kept after upload.
func NewAudioAsset(accountID, sessionID, storageKey string, retentionDays int) (*AudioAsset, error) {
	if accountID == "" {
		return nil, fmt.Errorf("account ID is required")
	}
	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}
	if storageKey == "" {
		return nil, fmt.Errorf("storage key is required")
	}
	if retentionDays <= 0 {
		return nil, fmt.Errorf("retention days must be positive")
	}

	sid, err := id.NewAudioAssetID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate asset SID: %w", err)
	}

	now := time.Now().UTC()
	return &AudioAsset{
		sid:        sid,
		accountID:  accountID,
		sessionID:  sessionID,
		storageKey: storageKey,
		status:     StatusPending,
		createdAt:  now,
		expiresAt:  now.AddDate(0, 0, retentionDays),
		updatedAt:  now,
	}, nil
}

// ReconstructAudioAsset reconstructs an asset from persistence.
func ReconstructAudioAsset(
	dbID uint,
	sid, accountID, sessionID, storageKey string,
	sizeBytes int64,
	durationSec float64,
	status Status,
	createdAt, expiresAt, updatedAt time.Time,
) (*AudioAsset, error) {
	if dbID == 0 {
		return nil, fmt.Errorf("asset ID cannot be zero")
	}
	if sid == "" {
		return nil, fmt.Errorf("asset SID is required")
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid asset status: %s", status)
	}
	return &AudioAsset{
		dbID:        dbID,
		sid:         sid,
		accountID:   accountID,
		sessionID:   sessionID,
		storageKey:  storageKey,
		sizeBytes:   sizeBytes,
		durationSec: durationSec,
		status:      status,
		createdAt:   createdAt,
		expiresAt:   expiresAt,
		updatedAt:   updatedAt,
	}, nil
}

// DBID returns the database row ID.
func (a *AudioAsset) DBID() uint { return a.dbID }

// SID returns the public asset identifier.
func (a *AudioAsset) SID() string { return a.sid }

// AccountID returns the owning account.
func (a *AudioAsset) AccountID() string { return a.accountID }

// SessionID returns the session the recording belongs to.
func (a *AudioAsset) SessionID() string { return a.sessionID }

// StorageKey returns the object storage location of the bytes.
func (a *AudioAsset) StorageKey() string { return a.storageKey }

// SizeBytes returns the confirmed upload size.
func (a *AudioAsset) SizeBytes() int64 { return a.sizeBytes }

// DurationSec returns the measured audio duration, known after
// transcription.
func (a *AudioAsset) DurationSec() float64 { return a.durationSec }

// Status returns the lifecycle status.
func (a *AudioAsset) Status() Status { return a.status }

// CreatedAt returns when the upload slot was registered.
func (a *AudioAsset) CreatedAt() time.Time { return a.createdAt }

// ExpiresAt returns when the retention sweep may delete the bytes.
func (a *AudioAsset) ExpiresAt() time.Time { return a.expiresAt }

// UpdatedAt returns the last mutation time.
func (a *AudioAsset) UpdatedAt() time.Time { return a.updatedAt }

// SetDBID sets the database row ID (only for persistence layer use).
func (a *AudioAsset) SetDBID(dbID uint) error {
	if a.dbID != 0 {
		return fmt.Errorf("asset ID is already set")
	}
	if dbID == 0 {
		return fmt.Errorf("asset ID cannot be zero")
	}
	a.dbID = dbID
	return nil
}

// MarkAvailable confirms the upload finished with the given size.
func (a *AudioAsset) MarkAvailable(sizeBytes int64) error {
	if a.status != StatusPending {
		return &InvalidTransitionError{From: a.status, To: StatusAvailable}
	}
	if sizeBytes <= 0 {
		return fmt.Errorf("upload size must be positive")
	}
	a.status = StatusAvailable
	a.sizeBytes = sizeBytes
	a.updatedAt = time.Now().UTC()
	return nil
}

// MarkProcessing hands the asset to a transcription job. Allowed from
// available and from failed (retry).
func (a *AudioAsset) MarkProcessing() error {
	if a.status != StatusAvailable && a.status != StatusFailed {
		return &InvalidTransitionError{From: a.status, To: StatusProcessing}
	}
	a.status = StatusProcessing
	a.updatedAt = time.Now().UTC()
	return nil
}

// MarkReady records a successful transcription together with the measured
// duration, which feeds metered billing.
func (a *AudioAsset) MarkReady(durationSec float64) error {
	if a.status != StatusProcessing {
		return &InvalidTransitionError{From: a.status, To: StatusReady}
	}
	if durationSec < 0 {
		return fmt.Errorf("duration cannot be negative")
	}
	a.status = StatusReady
	a.durationSec = durationSec
	a.updatedAt = time.Now().UTC()
	return nil
}

// MarkFailed records a failed transcription. The bytes stay for retry.
func (a *AudioAsset) MarkFailed() error {
	if a.status != StatusProcessing {
		return &InvalidTransitionError{From: a.status, To: StatusFailed}
	}
	a.status = StatusFailed
	a.updatedAt = time.Now().UTC()
	return nil
}

// MarkExpired flags an asset whose retention window has passed. A
// processing asset cannot expire out from under its job; it is left for a
// later sweep.
func (a *AudioAsset) MarkExpired() error {
	if a.status == StatusProcessing || a.status == StatusExpired {
		return &InvalidTransitionError{From: a.status, To: StatusExpired}
	}
	if a.status == StatusDeleted {
		return ErrAssetDeleted
	}
	a.status = StatusExpired
	a.updatedAt = time.Now().UTC()
	return nil
}

// MarkDeleted records the purge of an expired asset's stored bytes. Only
// expired assets can be purged, so a failed purge stays observable as
// expired and gets retried.
func (a *AudioAsset) MarkDeleted() error {
	if a.status == StatusDeleted {
		return ErrAssetDeleted
	}
	if a.status != StatusExpired {
		return &InvalidTransitionError{From: a.status, To: StatusDeleted}
	}
	a.status = StatusDeleted
	a.storageKey = ""
	a.updatedAt = time.Now().UTC()
	return nil
}

// IsExpired reports whether the retention window has passed at now.
func (a *AudioAsset) IsExpired(now time.Time) bool {
	return now.After(a.expiresAt)
}
