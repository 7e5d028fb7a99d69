package usecases

import (
	"context"

	"classnotex/internal/domain/account"
	"classnotex/internal/domain/usage"
	"classnotex/internal/shared/biztime"
	"classnotex/internal/shared/logger"
)

// RecordServerSessionUseCase books one realtime server session against the
// monthly counter. Paid plans carry a soft ceiling here, so for them this
// only ever records; the free plan's hard ceiling can deny.
type RecordServerSessionUseCase struct {
	ledger usage.Ledger
	logger logger.Interface
}

func NewRecordServerSessionUseCase(ledger usage.Ledger, logger logger.Interface) *RecordServerSessionUseCase {
	return &RecordServerSessionUseCase{ledger: ledger, logger: logger}
}

func (uc *RecordServerSessionUseCase) Execute(ctx context.Context, accountID, planName string) error {
	plan := account.NormalizePlan(planName)
	monthKey := biztime.CurrentMonthKey()

	res, err := uc.ledger.Reserve(ctx, accountID, plan, monthKey, usage.CounterServerSession, 1)
	if err != nil {
		return err
	}
	// Sessions are billed at start; the reservation settles immediately.
	if err := uc.ledger.Commit(ctx, res, 1); err != nil {
		return err
	}

	uc.logger.Debugw("server session recorded",
		"account_id", accountID,
		"month", monthKey,
	)
	return nil
}
