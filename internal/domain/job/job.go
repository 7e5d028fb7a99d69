// Package job defines the authoritative record of one unit of asynchronous
// billable work and its lifecycle state machine.
package job

import (
	"fmt"
	"time"

	"classnotex/internal/domain/usage"
	"classnotex/internal/shared/id"
)

// Type enumerates the kinds of billable asynchronous work.
type Type string

const (
	TypeTranscribe Type = "transcribe"
	TypeSummary    Type = "summary"
	TypeQuiz       Type = "quiz"
	TypePlaylist   Type = "playlist"
	TypeExplain    Type = "explain"
	TypeHighlights Type = "highlights"
	TypeTranslate  Type = "translate"
	TypeQA         Type = "qa"
)

// String returns the string representation of the job type.
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the job type is known.
func (t Type) IsValid() bool {
	switch t {
	case TypeTranscribe, TypeSummary, TypeQuiz, TypePlaylist,
		TypeExplain, TypeHighlights, TypeTranslate, TypeQA:
		return true
	}
	return false
}

// BillingCounter returns the usage counter a job of this type reserves
// against. Transcription bills STT seconds; summary and quiz have dedicated
// counters; the remaining LLM-backed types draw from the pooled llm_calls
// counter.
func (t Type) BillingCounter() usage.Counter {
	switch t {
	case TypeTranscribe:
		return usage.CounterCloudSTTSeconds
	case TypeSummary:
		return usage.CounterSummaryGenerated
	case TypeQuiz:
		return usage.CounterQuizGenerated
	default:
		return usage.CounterLLMCalls
	}
}

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid checks if the status value is known.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the status is absorbing. No transition leaves
// a terminal state; redelivered callbacks for terminal jobs are no-ops.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one unit of asynchronous billable work. It is exclusively owned by
// the registry; session documents reference it by SID, never duplicate it.
type Job struct {
	dbID            uint
	sid             string
	accountID       string
	sessionID       string
	jobType         Type
	status          Status
	idempotencyKey  string
	progress        float64
	errorReason     string
	artifactSID     string
	handoffID       string
	attempts        int
	reservedCounter usage.Counter
	reservedAmount  float64
	createdAt       time.Time
	startedAt       *time.Time
	finishedAt      *time.Time
	updatedAt       time.Time
}

// NewJob creates a job in pending state with a fresh SID. The reservation
// linkage records which counter was held and by how much, so completion can
// commit or release without re-deriving policy.
func NewJob(accountID, sessionID string, jobType Type, reservedCounter usage.Counter, reservedAmount float64) (*Job, error) {
	if accountID == "" {
		return nil, fmt.Errorf("account ID is required")
	}
	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}
	if !jobType.IsValid() {
		return nil, fmt.Errorf("invalid job type: %s", jobType)
	}
	if reservedAmount < 0 {
		return nil, fmt.Errorf("reserved amount cannot be negative")
	}

	sid, err := id.NewJobID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate job SID: %w", err)
	}

	now := time.Now().UTC()
	return &Job{
		sid:             sid,
		accountID:       accountID,
		sessionID:       sessionID,
		jobType:         jobType,
		status:          StatusPending,
		reservedCounter: reservedCounter,
		reservedAmount:  reservedAmount,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

// ReconstructJob reconstructs a job from persistence.
func ReconstructJob(
	dbID uint,
	sid, accountID, sessionID string,
	jobType Type,
	status Status,
	idempotencyKey string,
	progress float64,
	errorReason, artifactSID, handoffID string,
	attempts int,
	reservedCounter usage.Counter,
	reservedAmount float64,
	createdAt time.Time,
	startedAt, finishedAt *time.Time,
	updatedAt time.Time,
) (*Job, error) {
	if dbID == 0 {
		return nil, fmt.Errorf("job ID cannot be zero")
	}
	if sid == "" {
		return nil, fmt.Errorf("job SID is required")
	}
	if !jobType.IsValid() {
		return nil, fmt.Errorf("invalid job type: %s", jobType)
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid job status: %s", status)
	}

	return &Job{
		dbID:            dbID,
		sid:             sid,
		accountID:       accountID,
		sessionID:       sessionID,
		jobType:         jobType,
		status:          status,
		idempotencyKey:  idempotencyKey,
		progress:        progress,
		errorReason:     errorReason,
		artifactSID:     artifactSID,
		handoffID:       handoffID,
		attempts:        attempts,
		reservedCounter: reservedCounter,
		reservedAmount:  reservedAmount,
		createdAt:       createdAt,
		startedAt:       startedAt,
		finishedAt:      finishedAt,
		updatedAt:       updatedAt,
	}, nil
}

// DBID returns the database row ID.
func (j *Job) DBID() uint { return j.dbID }

// SID returns the public job identifier.
func (j *Job) SID() string { return j.sid }

// AccountID returns the owning account.
func (j *Job) AccountID() string { return j.accountID }

// SessionID returns the session this job belongs to.
func (j *Job) SessionID() string { return j.sessionID }

// JobType returns the job type.
func (j *Job) JobType() Type { return j.jobType }

// Status returns the lifecycle status.
func (j *Job) Status() Status { return j.status }

// IdempotencyKey returns the client-supplied key, if any.
func (j *Job) IdempotencyKey() string { return j.idempotencyKey }

// Progress returns the 0..1 progress estimate.
func (j *Job) Progress() float64 { return j.progress }

// ErrorReason returns the human-readable failure reason, if failed.
func (j *Job) ErrorReason() string { return j.errorReason }

// ArtifactSID returns the result artifact reference, if completed.
func (j *Job) ArtifactSID() string { return j.artifactSID }

// HandoffID returns the dispatch substrate's handoff identifier.
func (j *Job) HandoffID() string { return j.handoffID }

// Attempts returns how many execution attempts have been made.
func (j *Job) Attempts() int { return j.attempts }

// ReservedCounter returns the usage counter held for this job.
func (j *Job) ReservedCounter() usage.Counter { return j.reservedCounter }

// ReservedAmount returns the provisionally held amount.
func (j *Job) ReservedAmount() float64 { return j.reservedAmount }

// CreatedAt returns when the job was admitted.
func (j *Job) CreatedAt() time.Time { return j.createdAt }

// StartedAt returns when dispatch succeeded, if it has.
func (j *Job) StartedAt() *time.Time { return j.startedAt }

// FinishedAt returns when the job reached a terminal state, if it has.
func (j *Job) FinishedAt() *time.Time { return j.finishedAt }

// UpdatedAt returns the last mutation time.
func (j *Job) UpdatedAt() time.Time { return j.updatedAt }

// SetDBID sets the database row ID (only for persistence layer use).
func (j *Job) SetDBID(dbID uint) error {
	if j.dbID != 0 {
		return fmt.Errorf("job ID is already set")
	}
	if dbID == 0 {
		return fmt.Errorf("job ID cannot be zero")
	}
	j.dbID = dbID
	return nil
}

// SetIdempotencyKey attaches the client-supplied key. Admission only.
func (j *Job) SetIdempotencyKey(key string) {
	j.idempotencyKey = key
	j.updatedAt = time.Now().UTC()
}

// MarkRunning transitions pending -> running after a successful dispatch
// handoff, recording the substrate handoff ID and startedAt.
func (j *Job) MarkRunning(handoffID string) error {
	if j.status != StatusPending {
		return &InvalidTransitionError{From: j.status, To: StatusRunning}
	}
	now := time.Now().UTC()
	j.status = StatusRunning
	j.handoffID = handoffID
	j.attempts++
	j.startedAt = &now
	j.updatedAt = now
	return nil
}

// MarkRetrying returns a running job to pending for re-dispatch after a
// retryable worker failure. The reservation is kept; only final failure
// releases it.
func (j *Job) MarkRetrying(reason string) error {
	if j.status != StatusRunning {
		return &InvalidTransitionError{From: j.status, To: StatusPending}
	}
	j.status = StatusPending
	j.errorReason = reason
	j.updatedAt = time.Now().UTC()
	return nil
}

// MarkCompleted transitions to the completed terminal state, referencing the
// produced artifact.
func (j *Job) MarkCompleted(artifactSID string) error {
	if j.status.IsTerminal() {
		return ErrAlreadyTerminal
	}
	if j.status != StatusRunning {
		return &InvalidTransitionError{From: j.status, To: StatusCompleted}
	}
	now := time.Now().UTC()
	j.status = StatusCompleted
	j.artifactSID = artifactSID
	j.progress = 1
	j.errorReason = ""
	j.finishedAt = &now
	j.updatedAt = now
	return nil
}

// MarkFailed transitions to the failed terminal state. Allowed from pending
// (dispatch exhaustion, staleness sweep) as well as running.
func (j *Job) MarkFailed(reason string) error {
	if j.status.IsTerminal() {
		return ErrAlreadyTerminal
	}
	now := time.Now().UTC()
	j.status = StatusFailed
	j.errorReason = reason
	j.finishedAt = &now
	j.updatedAt = now
	return nil
}

// SetProgress updates the progress estimate for a running job.
func (j *Job) SetProgress(p float64) error {
	if j.status.IsTerminal() {
		return ErrAlreadyTerminal
	}
	if p < 0 || p > 1 {
		return fmt.Errorf("progress must be within [0,1], got %v", p)
	}
	j.progress = p
	j.updatedAt = time.Now().UTC()
	return nil
}
