package idempotency

import (
	"context"
	"time"
)

// Repository defines the persistence contract for idempotency records. The
// claim step must be atomic: Claim relies on a unique (account_id, key)
// index so exactly one of any set of concurrent claimants wins.
type Repository interface {
	// Claim inserts an in-progress record. When the key is already taken it
	// returns the existing record and claimed=false.
	Claim(ctx context.Context, r *Record) (existing *Record, claimed bool, err error)

	// Complete persists the record's stored outcome, the admitted job SID
	// or a recorded quota denial.
	Complete(ctx context.Context, r *Record) error

	// Release drops the claim after a failed admission so a later retry can
	// claim the key again.
	Release(ctx context.Context, r *Record) error

	Get(ctx context.Context, accountID, key string) (*Record, error)

	// DeleteExpired removes records past their retention. Returns how many
	// rows were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
