// Package scheduler provides unified scheduler management using gocron v2.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"classnotex/internal/shared/biztime"
	"classnotex/internal/shared/logger"
)

// MaintenanceJob is one scheduled sweep. Execute processes a bounded batch
// and returns when the batch is done.
type MaintenanceJob interface {
	Execute(ctx context.Context) error
}

// SchedulerManager manages all scheduled maintenance jobs using gocron v2:
// the outbox dispatch sweep, the stale-job sweep, the audio retention sweep
// and the idempotency record cleanup.
type SchedulerManager struct {
	scheduler gocron.Scheduler
	logger    logger.Interface

	// Track whether the scheduler has been started
	started   bool
	startedMu sync.RWMutex
}

// NewSchedulerManager creates a new SchedulerManager instance.
// It initializes gocron with the business timezone for cron expressions.
func NewSchedulerManager(log logger.Interface) (*SchedulerManager, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(biztime.Location()),
	)
	if err != nil {
		return nil, err
	}

	return &SchedulerManager{
		scheduler: scheduler,
		logger:    log,
	}, nil
}

// RegisterDispatchJobs registers the outbox sweep. It runs frequently: it
// is the liveness backstop for every admitted job whose immediate dispatch
// failed, and for worker-requested retries.
func (m *SchedulerManager) RegisterDispatchJobs(outboxSweep MaintenanceJob) error {
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(30*time.Second),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
			defer cancel()
			m.runJob(ctx, "outbox-sweep", outboxSweep)
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("dispatch"),
		gocron.WithName("outbox-sweep"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered dispatch jobs", "interval", "30s")
	return nil
}

// RegisterLifecycleJobs registers the slower housekeeping sweeps:
// - fail running jobs whose worker went silent
// - delete audio past its retention window
// - drop idempotency records past retention
func (m *SchedulerManager) RegisterLifecycleJobs(
	staleJobSweep MaintenanceJob,
	assetRetentionSweep MaintenanceJob,
	idempotencyCleanup MaintenanceJob,
) error {
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(5*time.Minute),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			m.runJob(ctx, "stale-job-sweep", staleJobSweep)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("lifecycle"),
		gocron.WithName("stale-job-sweep"),
	)
	if err != nil {
		return err
	}

	// Retention runs off-peak in the business timezone.
	_, err = m.scheduler.NewJob(
		gocron.CronJob("0 4 * * *", false),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
			defer cancel()
			m.runJob(ctx, "asset-retention-sweep", assetRetentionSweep)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("lifecycle"),
		gocron.WithName("asset-retention-sweep"),
	)
	if err != nil {
		return err
	}

	_, err = m.scheduler.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			m.runJob(ctx, "idempotency-cleanup", idempotencyCleanup)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("lifecycle"),
		gocron.WithName("idempotency-cleanup"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered lifecycle jobs",
		"stale_job_interval", "5m",
		"asset_retention_cron", "0 4 * * *",
		"idempotency_interval", "1h",
	)
	return nil
}

func (m *SchedulerManager) runJob(ctx context.Context, name string, job MaintenanceJob) {
	start := biztime.NowUTC()
	if err := job.Execute(ctx); err != nil {
		m.logger.Errorw("scheduled job failed",
			"job", name,
			"error", err,
			"duration", time.Since(start),
		)
		return
	}
	m.logger.Debugw("scheduled job completed",
		"job", name,
		"duration", time.Since(start),
	)
}

// Start begins executing scheduled jobs.
func (m *SchedulerManager) Start() {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if m.started {
		m.logger.Warnw("scheduler already started")
		return
	}

	m.scheduler.Start()
	m.started = true
	m.logger.Infow("scheduler started", "jobs", len(m.scheduler.Jobs()))
}

// Stop gracefully shuts down the scheduler, waiting for running jobs.
func (m *SchedulerManager) Stop() error {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if !m.started {
		return nil
	}

	if err := m.scheduler.Shutdown(); err != nil {
		m.logger.Errorw("scheduler shutdown failed", "error", err)
		return err
	}

	m.started = false
	m.logger.Infow("scheduler stopped")
	return nil
}
