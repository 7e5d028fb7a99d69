package usecases

import (
	"context"
	"time"

	"classnotex/internal/domain/dispatch"
	"classnotex/internal/shared/biztime"
	"classnotex/internal/shared/logger"
)

const (
	outboxSweepBatchSize = 100
	sentEntryRetention   = 24 * time.Hour
)

// SweepOutboxUseCase drains due outbox entries. It is the liveness backstop
// behind the immediate dispatch attempt: any admitted job whose handoff
// failed is retried from here until it dispatches or exhausts.
type SweepOutboxUseCase struct {
	outboxRepo dispatch.Repository
	dispatcher *Dispatcher
	logger     logger.Interface
}

func NewSweepOutboxUseCase(
	outboxRepo dispatch.Repository,
	dispatcher *Dispatcher,
	logger logger.Interface,
) *SweepOutboxUseCase {
	return &SweepOutboxUseCase{
		outboxRepo: outboxRepo,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Execute processes one batch of due entries and prunes old sent rows.
func (uc *SweepOutboxUseCase) Execute(ctx context.Context) error {
	now := biztime.NowUTC()

	entries, err := uc.outboxRepo.ListDue(ctx, now, outboxSweepBatchSize)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if err := uc.dispatcher.Dispatch(ctx, entry); err != nil {
			uc.logger.Errorw("outbox dispatch failed",
				"job_sid", entry.JobSID(),
				"error", err,
			)
		}
	}

	pruned, err := uc.outboxRepo.DeleteSent(ctx, now.Add(-sentEntryRetention))
	if err != nil {
		return err
	}
	if len(entries) > 0 || pruned > 0 {
		uc.logger.Debugw("outbox sweep finished",
			"dispatched", len(entries),
			"pruned", pruned,
		)
	}
	return nil
}
