package usage

import (
	"context"

	"classnotex/internal/domain/account"
)

// Reservation is a provisional hold on a counter, made before any billable
// external call. It is committed with the final amount once the true cost is
// known, or released if the work never produced output.
type Reservation struct {
	AccountID string
	MonthKey  string
	Counter   Counter
	Amount    float64
}

// Ledger exposes the atomic reserve/commit/release cycle over the monthly
// counter buckets. Implementations must guarantee that two concurrent
// reservations which would jointly exceed a hard ceiling never both succeed:
// the counter row is the single arbitration point per account per month.
type Ledger interface {
	// Reserve checks the quota policy under a row lock and, if allowed,
	// increments the counter and returns a handle for commit/release.
	// A denial is reported as *quota.DeniedError (errors.As-able).
	Reserve(ctx context.Context, accountID string, plan account.Plan, monthKey string, counter Counter, amount float64) (*Reservation, error)

	// Commit finalizes a reservation with the true billed amount. The
	// counter nets out at finalAmount, not reserved+finalAmount.
	Commit(ctx context.Context, res *Reservation, finalAmount float64) error

	// Release undoes a reservation, returning the counter exactly to its
	// pre-reservation value.
	Release(ctx context.Context, res *Reservation) error

	// Snapshot returns the current bucket for (accountID, monthKey),
	// or an empty bucket if none exists yet.
	Snapshot(ctx context.Context, accountID, monthKey string) (*CounterSet, error)
}
