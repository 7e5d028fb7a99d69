package dispatch

import (
	"context"
	"time"
)

// Repository defines the persistence contract for the dispatch outbox.
type Repository interface {
	Create(ctx context.Context, e *OutboxEntry) error
	GetByJobSID(ctx context.Context, jobSID string) (*OutboxEntry, error)
	Update(ctx context.Context, e *OutboxEntry) error

	// ListDue returns pending entries whose nextAttemptAt has passed,
	// oldest first, for the dispatch sweeper.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*OutboxEntry, error)

	// DeleteSent removes sent entries older than cutoff.
	DeleteSent(ctx context.Context, cutoff time.Time) (int64, error)
}
