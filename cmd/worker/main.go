// The worker binary runs the maintenance scheduler: outbox dispatch
// sweeps, stale running job recovery, audio retention and idempotency
// record cleanup. It shares the database and Redis queue with the API
// server but serves no HTTP traffic.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	assetUsecases "classnotex/internal/application/asset/usecases"
	jobUsecases "classnotex/internal/application/job/usecases"
	"classnotex/internal/domain/quota"
	"classnotex/internal/infrastructure/config"
	"classnotex/internal/infrastructure/database"
	"classnotex/internal/infrastructure/queue"
	"classnotex/internal/infrastructure/repository"
	"classnotex/internal/infrastructure/scheduler"
	"classnotex/internal/shared/biztime"
	"classnotex/internal/shared/db"
	"classnotex/internal/shared/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	env := os.Getenv("ENV")
	if env == "" {
		env = "development"
	}

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("starting worker", "environment", env)

	if err := biztime.Init(cfg.Quota.Timezone); err != nil {
		return fmt.Errorf("failed to initialize business timezone: %w", err)
	}

	if err := database.Init(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	limits, err := config.LoadLimitTable(&cfg.Quota)
	if err != nil {
		return fmt.Errorf("failed to load quota limits: %w", err)
	}
	policy := quota.NewPolicy(limits)

	taskQueue, err := queue.NewRedisQueue(&cfg.Redis, cfg.Queue.Name)
	if err != nil {
		return fmt.Errorf("failed to connect task queue: %w", err)
	}
	defer taskQueue.Close()

	gdb := database.Get()
	log := logger.NewLogger()

	jobRepo := repository.NewJobRepository(gdb)
	idemRepo := repository.NewIdempotencyRepository(gdb)
	outboxRepo := repository.NewDispatchOutboxRepository(gdb)
	assetRepo := repository.NewAudioAssetRepository(gdb)
	ledger := repository.NewUsageLedgerRepository(gdb, policy)
	txMgr := db.NewTransactionManager(gdb)

	dispatcher := jobUsecases.NewDispatcher(
		jobRepo, outboxRepo, taskQueue, ledger, txMgr, log,
		cfg.Queue.MaxDispatchAttempts, cfg.Queue.DispatchBackoffSeconds,
	)

	outboxSweep := jobUsecases.NewSweepOutboxUseCase(outboxRepo, dispatcher, log)
	staleJobSweep := jobUsecases.NewFailStaleJobsUseCase(
		jobRepo, ledger, txMgr, log, cfg.Lifecycle.StaleRunningMinutes,
	)
	assetSweep := assetUsecases.NewSweepExpiredAssetsUseCase(assetRepo, log)
	idemCleanup := jobUsecases.NewCleanupIdempotencyUseCase(idemRepo, log)

	schedulerManager, err := scheduler.NewSchedulerManager(log)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	if err := schedulerManager.RegisterDispatchJobs(outboxSweep); err != nil {
		return fmt.Errorf("failed to register dispatch jobs: %w", err)
	}
	if err := schedulerManager.RegisterLifecycleJobs(staleJobSweep, assetSweep, idemCleanup); err != nil {
		return fmt.Errorf("failed to register lifecycle jobs: %w", err)
	}

	schedulerManager.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down worker...")

	if err := schedulerManager.Stop(); err != nil {
		return err
	}

	logger.Info("worker exited gracefully")
	return nil
}
