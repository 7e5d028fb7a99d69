package job

import (
	"context"
	"time"
)

// Repository defines the persistence contract for jobs. Status-moving
// updates are conditional on the caller's observed prior status and return
// ErrStaleTransition when a concurrent writer got there first.
type Repository interface {
	Create(ctx context.Context, j *Job) error
	GetBySID(ctx context.Context, sid string) (*Job, error)
	GetByIdempotencyKey(ctx context.Context, accountID, key string) (*Job, error)
	ListBySession(ctx context.Context, sessionID string) ([]*Job, error)

	// FindNonTerminalBySessionAndType returns the newest pending or running
	// job for (sessionID, jobType), or ErrJobNotFound when none is in
	// flight. Admission uses it to absorb duplicate key-less submissions.
	FindNonTerminalBySessionAndType(ctx context.Context, sessionID string, jobType Type) (*Job, error)

	// UpdateStatus persists the job's current state, guarded by prior. The
	// write succeeds only if the stored status still equals prior.
	UpdateStatus(ctx context.Context, j *Job, prior Status) error

	// UpdateProgress persists a progress estimate for a running job without
	// touching status.
	UpdateProgress(ctx context.Context, sid string, progress float64) error

	// ListStaleRunning returns running jobs whose last update is older than
	// cutoff, for the staleness sweeper.
	ListStaleRunning(ctx context.Context, cutoff time.Time, limit int) ([]*Job, error)
}
