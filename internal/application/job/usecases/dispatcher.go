// Package usecases implements the job orchestration flows: admission,
// dispatch, completion and the maintenance sweeps.
package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"classnotex/internal/domain/dispatch"
	"classnotex/internal/domain/job"
	"classnotex/internal/domain/usage"
	"classnotex/internal/shared/biztime"
	"classnotex/internal/shared/db"
	"classnotex/internal/shared/logger"
)

// Dispatcher moves admitted jobs onto the task queue. Every attempt gets a
// fresh handoff ID so worker callbacks can be matched to the attempt that
// produced them.
type Dispatcher struct {
	jobRepo     job.Repository
	outboxRepo  dispatch.Repository
	queue       dispatch.TaskQueue
	ledger      usage.Ledger
	txMgr       *db.TransactionManager
	logger      logger.Interface
	maxAttempts int
	backoff     time.Duration
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(
	jobRepo job.Repository,
	outboxRepo dispatch.Repository,
	queue dispatch.TaskQueue,
	ledger usage.Ledger,
	txMgr *db.TransactionManager,
	logger logger.Interface,
	maxAttempts int,
	backoffSeconds int,
) *Dispatcher {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if backoffSeconds <= 0 {
		backoffSeconds = 30
	}
	return &Dispatcher{
		jobRepo:     jobRepo,
		outboxRepo:  outboxRepo,
		queue:       queue,
		ledger:      ledger,
		txMgr:       txMgr,
		logger:      logger,
		maxAttempts: maxAttempts,
		backoff:     time.Duration(backoffSeconds) * time.Second,
	}
}

// Dispatch pushes one outbox entry's job to the queue and records the
// outcome. Failures schedule a retry; exhaustion fails the job and returns
// its reservation.
func (d *Dispatcher) Dispatch(ctx context.Context, entry *dispatch.OutboxEntry) error {
	j, err := d.jobRepo.GetBySID(ctx, entry.JobSID())
	if err != nil {
		return fmt.Errorf("failed to load job for dispatch: %w", err)
	}

	// The entry can outlive its purpose when a callback or sweep moved the
	// job first. Close it out instead of double-dispatching.
	if j.Status() != job.StatusPending {
		entry.MarkSent()
		return d.outboxRepo.Update(ctx, entry)
	}

	var task dispatch.Task
	if err := json.Unmarshal(entry.Payload(), &task); err != nil {
		return fmt.Errorf("failed to decode outbox payload: %w", err)
	}
	task.HandoffID = uuid.New().String()

	if pushErr := d.queue.Push(ctx, task); pushErr != nil {
		return d.recordPushFailure(ctx, entry, j, pushErr)
	}

	if err := j.MarkRunning(task.HandoffID); err != nil {
		return fmt.Errorf("failed to mark job running: %w", err)
	}
	return d.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		if err := d.jobRepo.UpdateStatus(txCtx, j, job.StatusPending); err != nil {
			return err
		}
		entry.MarkSent()
		return d.outboxRepo.Update(txCtx, entry)
	})
}

func (d *Dispatcher) recordPushFailure(ctx context.Context, entry *dispatch.OutboxEntry, j *job.Job, pushErr error) error {
	d.logger.Warnw("task queue push failed",
		"job_sid", j.SID(),
		"attempt", entry.Attempts()+1,
		"error", pushErr,
	)

	entry.MarkAttemptFailed(pushErr.Error(), d.backoff, d.maxAttempts)
	if !entry.IsExhausted() {
		return d.outboxRepo.Update(ctx, entry)
	}

	// Dispatch gave up. The job fails terminally and its reservation goes
	// back to the month it was booked in.
	if err := j.MarkFailed("dispatch attempts exhausted"); err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}
	return d.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		if err := d.outboxRepo.Update(txCtx, entry); err != nil {
			return err
		}
		if err := d.jobRepo.UpdateStatus(txCtx, j, job.StatusPending); err != nil {
			return err
		}
		res := reservationOf(j)
		if err := d.ledger.Release(txCtx, res); err != nil {
			return fmt.Errorf("failed to release reservation: %w", err)
		}
		d.logger.Infow("job failed after dispatch exhaustion",
			"job_sid", j.SID(),
			"attempts", entry.Attempts(),
		)
		return nil
	})
}

// reservationOf rebuilds the ledger handle recorded on the job at admission.
// The month key is derived from the admission time, so settlement always
// lands in the bucket the reservation was taken from, even across a month
// rollover.
func reservationOf(j *job.Job) *usage.Reservation {
	return &usage.Reservation{
		AccountID: j.AccountID(),
		MonthKey:  biztime.MonthKey(j.CreatedAt()),
		Counter:   j.ReservedCounter(),
		Amount:    j.ReservedAmount(),
	}
}
