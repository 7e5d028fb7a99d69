package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"classnotex/internal/domain/job"
	"classnotex/internal/domain/usage"
	"classnotex/internal/shared/biztime"
	"classnotex/internal/shared/db"
	"classnotex/internal/shared/logger"
)

const staleSweepBatchSize = 100

// FailStaleJobsUseCase fails running jobs whose worker went silent. Without
// it a crashed worker would pin a reservation forever.
type FailStaleJobsUseCase struct {
	jobRepo      job.Repository
	ledger       usage.Ledger
	txMgr        *db.TransactionManager
	logger       logger.Interface
	staleTimeout time.Duration
}

func NewFailStaleJobsUseCase(
	jobRepo job.Repository,
	ledger usage.Ledger,
	txMgr *db.TransactionManager,
	logger logger.Interface,
	staleMinutes int,
) *FailStaleJobsUseCase {
	if staleMinutes <= 0 {
		staleMinutes = 60
	}
	return &FailStaleJobsUseCase{
		jobRepo:      jobRepo,
		ledger:       ledger,
		txMgr:        txMgr,
		logger:       logger,
		staleTimeout: time.Duration(staleMinutes) * time.Minute,
	}
}

// Execute fails one batch of stale running jobs and releases their
// reservations. A concurrent callback beating the sweep to a job is fine;
// the stale transition error is absorbed.
func (uc *FailStaleJobsUseCase) Execute(ctx context.Context) error {
	cutoff := biztime.NowUTC().Add(-uc.staleTimeout)

	stale, err := uc.jobRepo.ListStaleRunning(ctx, cutoff, staleSweepBatchSize)
	if err != nil {
		return err
	}

	for _, j := range stale {
		if err := uc.failStale(ctx, j); err != nil {
			if errors.Is(err, job.ErrStaleTransition) {
				continue
			}
			uc.logger.Errorw("failed to fail stale job",
				"job_sid", j.SID(),
				"error", err,
			)
		}
	}
	return nil
}

func (uc *FailStaleJobsUseCase) failStale(ctx context.Context, j *job.Job) error {
	prior := j.Status()
	res := reservationOf(j)
	reason := fmt.Sprintf("no worker callback within %s", uc.staleTimeout)

	if err := j.MarkFailed(reason); err != nil {
		return err
	}
	return uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		if err := uc.jobRepo.UpdateStatus(txCtx, j, prior); err != nil {
			return err
		}
		if err := uc.ledger.Release(txCtx, res); err != nil {
			return fmt.Errorf("failed to release reservation: %w", err)
		}
		uc.logger.Warnw("stale running job failed",
			"job_sid", j.SID(),
			"started_at", j.StartedAt(),
		)
		return nil
	})
}
