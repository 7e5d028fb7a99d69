package usecases

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"classnotex/internal/domain/artifact"
	"classnotex/internal/domain/asset"
	"classnotex/internal/domain/dispatch"
	"classnotex/internal/domain/idempotency"
	"classnotex/internal/domain/job"
	"classnotex/internal/domain/quota"
	"classnotex/internal/domain/usage"
	"classnotex/internal/infrastructure/persistence/models"
	"classnotex/internal/infrastructure/queue"
	"classnotex/internal/infrastructure/repository"
	"classnotex/internal/shared/biztime"
	"classnotex/internal/shared/db"
	"classnotex/internal/shared/logger"
)

type engine struct {
	gdb        *gorm.DB
	queue      *queue.MemoryQueue
	jobRepo    job.Repository
	idemRepo   idempotency.Repository
	outboxRepo dispatch.Repository
	assetRepo  asset.Repository
	artRepo    artifact.Repository
	ledger     usage.Ledger
	dispatcher *Dispatcher
	submit     *SubmitJobUseCase
	complete   *CompleteJobUseCase
	sweep      *SweepOutboxUseCase
	stale      *FailStaleJobsUseCase
	cleanup    *CleanupIdempotencyUseCase
}

func setupEngine(t *testing.T, maxDispatchAttempts int) *engine {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// Pooled connections to :memory: each get their own database, so pin
	// the pool to one connection.
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, gdb.AutoMigrate(
		&models.JobModel{},
		&models.UsageCounterModel{},
		&models.IdempotencyRecordModel{},
		&models.AudioAssetModel{},
		&models.ArtifactModel{},
		&models.DispatchOutboxModel{},
	))

	log := logger.NewLogger()
	txMgr := db.NewTransactionManager(gdb)
	q := queue.NewMemoryQueue()

	jobRepo := repository.NewJobRepository(gdb)
	idemRepo := repository.NewIdempotencyRepository(gdb)
	outboxRepo := repository.NewDispatchOutboxRepository(gdb)
	assetRepo := repository.NewAudioAssetRepository(gdb)
	artRepo := repository.NewArtifactRepository(gdb)
	ledger := repository.NewUsageLedgerRepository(gdb, quota.NewPolicy(nil))

	dispatcher := NewDispatcher(jobRepo, outboxRepo, q, ledger, txMgr, log, maxDispatchAttempts, 1)

	return &engine{
		gdb:        gdb,
		queue:      q,
		jobRepo:    jobRepo,
		idemRepo:   idemRepo,
		outboxRepo: outboxRepo,
		assetRepo:  assetRepo,
		artRepo:    artRepo,
		ledger:     ledger,
		dispatcher: dispatcher,
		submit:     NewSubmitJobUseCase(jobRepo, idemRepo, outboxRepo, assetRepo, ledger, dispatcher, txMgr, log, 24),
		complete:   NewCompleteJobUseCase(jobRepo, artRepo, assetRepo, outboxRepo, ledger, txMgr, log, 3),
		sweep:      NewSweepOutboxUseCase(outboxRepo, dispatcher, log),
		stale:      NewFailStaleJobsUseCase(jobRepo, ledger, txMgr, log, 60),
		cleanup:    NewCleanupIdempotencyUseCase(idemRepo, log),
	}
}

func (e *engine) usedAmount(t *testing.T, accountID string, c usage.Counter) float64 {
	t.Helper()
	snap, err := e.ledger.Snapshot(context.Background(), accountID, biztime.CurrentMonthKey())
	require.NoError(t, err)
	return snap.Get(c)
}

func TestSubmitJobAdmitsAndDispatches(t *testing.T) {
	e := setupEngine(t, 5)
	ctx := context.Background()

	result, err := e.submit.Execute(ctx, SubmitJobCommand{
		AccountID: "acct_1",
		Plan:      "basic",
		SessionID: "sess_1",
		JobType:   job.TypeSummary,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.JobSID)
	assert.False(t, result.Replayed)

	// Immediate dispatch succeeded: job is running and exactly one task
	// was handed off.
	assert.Equal(t, job.StatusRunning, result.Status)
	require.Equal(t, 1, e.queue.Len())
	task := e.queue.Tasks()[0]
	assert.Equal(t, result.JobSID, task.JobSID)
	assert.Equal(t, "summary", task.JobType)
	assert.NotEmpty(t, task.HandoffID)

	// The reservation is booked.
	assert.Equal(t, 1.0, e.usedAmount(t, "acct_1", usage.CounterSummaryGenerated))

	// The outbox entry is closed out.
	entry, err := e.outboxRepo.GetByJobSID(ctx, result.JobSID)
	require.NoError(t, err)
	assert.Equal(t, dispatch.OutboxSent, entry.Status())
}

func TestSubmitJobIdempotentReplay(t *testing.T) {
	e := setupEngine(t, 5)
	ctx := context.Background()

	cmd := SubmitJobCommand{
		AccountID:      "acct_1",
		Plan:           "basic",
		SessionID:      "sess_1",
		JobType:        job.TypeQuiz,
		IdempotencyKey: "key-123",
	}

	first, err := e.submit.Execute(ctx, cmd)
	require.NoError(t, err)

	second, err := e.submit.Execute(ctx, cmd)
	require.NoError(t, err)

	// Exactly one job, one reservation, one dispatched task.
	assert.Equal(t, first.JobSID, second.JobSID)
	assert.True(t, second.Replayed)
	assert.Equal(t, 1.0, e.usedAmount(t, "acct_1", usage.CounterQuizGenerated))
	assert.Equal(t, 1, e.queue.Len())
}

func TestSubmitJobDuplicateTapReusesJob(t *testing.T) {
	e := setupEngine(t, 5)
	ctx := context.Background()

	cmd := SubmitJobCommand{
		AccountID: "acct_1",
		Plan:      "free",
		SessionID: "sess_1",
		JobType:   job.TypeSummary,
	}

	first, err := e.submit.Execute(ctx, cmd)
	require.NoError(t, err)

	// A second key-less tap while the first job is still in flight gets
	// the same job back and consumes no quota.
	second, err := e.submit.Execute(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, first.JobSID, second.JobSID)
	assert.True(t, second.Replayed)
	assert.Equal(t, 1.0, e.usedAmount(t, "acct_1", usage.CounterSummaryGenerated))
	assert.Equal(t, 1, e.queue.Len())

	jobs, err := e.jobRepo.ListBySession(ctx, "sess_1")
	require.NoError(t, err)
	assert.Len(t, jobs, 1)

	// Once the first job finished, a new tap admits a regeneration.
	_, err = e.complete.Execute(ctx, CompleteJobCommand{
		JobSID:          first.JobSID,
		Outcome:         OutcomeCompleted,
		ArtifactContent: "summary v1",
	})
	require.NoError(t, err)

	third, err := e.submit.Execute(ctx, cmd)
	require.NoError(t, err)
	assert.NotEqual(t, first.JobSID, third.JobSID)
	assert.False(t, third.Replayed)
	assert.Equal(t, 2.0, e.usedAmount(t, "acct_1", usage.CounterSummaryGenerated))
}

func TestSubmitJobQuotaDenied(t *testing.T) {
	e := setupEngine(t, 5)
	ctx := context.Background()

	// The free plan allows three summaries per month.
	for i := 0; i < 3; i++ {
		_, err := e.submit.Execute(ctx, SubmitJobCommand{
			AccountID: "acct_free",
			Plan:      "free",
			SessionID: fmt.Sprintf("sess_%d", i+1),
			JobType:   job.TypeSummary,
		})
		require.NoError(t, err)
	}

	_, err := e.submit.Execute(ctx, SubmitJobCommand{
		AccountID: "acct_free",
		Plan:      "free",
		SessionID: "sess_4",
		JobType:   job.TypeSummary,
	})
	require.Error(t, err)

	var denied *quota.DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, quota.LimitIDSummary, denied.LimitID)
	assert.Equal(t, 3.0, denied.Used)

	// The denied submission left no trace: counter unchanged, no fourth
	// job, no fourth task.
	assert.Equal(t, 3.0, e.usedAmount(t, "acct_free", usage.CounterSummaryGenerated))
	jobs, err := e.jobRepo.ListBySession(ctx, "sess_4")
	require.NoError(t, err)
	assert.Empty(t, jobs)
	assert.Equal(t, 3, e.queue.Len())
}

func TestSubmitJobDenialRecordedOnKey(t *testing.T) {
	e := setupEngine(t, 5)
	ctx := context.Background()

	// Exhaust the free quiz quota.
	for i := 0; i < 3; i++ {
		_, err := e.submit.Execute(ctx, SubmitJobCommand{
			AccountID: "acct_free",
			Plan:      "free",
			SessionID: fmt.Sprintf("sess_%d", i+1),
			JobType:   job.TypeQuiz,
		})
		require.NoError(t, err)
	}

	cmd := SubmitJobCommand{
		AccountID:      "acct_free",
		Plan:           "free",
		SessionID:      "sess_4",
		JobType:        job.TypeQuiz,
		IdempotencyKey: "retry-me",
	}
	_, err := e.submit.Execute(ctx, cmd)
	require.Error(t, err)

	// The denial is the key's recorded outcome: the retry replays it with
	// the same limit ID and never re-runs admission, even after an
	// upgrade.
	cmd.Plan = "premium"
	_, err = e.submit.Execute(ctx, cmd)
	require.Error(t, err)

	var denied *quota.DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, quota.LimitIDQuiz, denied.LimitID)

	jobs, err := e.jobRepo.ListBySession(ctx, "sess_4")
	require.NoError(t, err)
	assert.Empty(t, jobs)
	assert.Equal(t, 0.0, e.usedAmount(t, "acct_free", usage.CounterLLMCalls))
}

func TestSubmitJobDispatchFailureFallsBackToSweeper(t *testing.T) {
	e := setupEngine(t, 5)
	ctx := context.Background()

	e.queue.FailNext(1)
	result, err := e.submit.Execute(ctx, SubmitJobCommand{
		AccountID: "acct_1",
		Plan:      "premium",
		SessionID: "sess_1",
		JobType:   job.TypeExplain,
	})
	require.NoError(t, err)

	// Admission survives the failed handoff; the job stays pending with
	// its reservation held.
	assert.Equal(t, job.StatusPending, result.Status)
	assert.Equal(t, 0, e.queue.Len())
	assert.Equal(t, 1.0, e.usedAmount(t, "acct_1", usage.CounterLLMCalls))

	entry, err := e.outboxRepo.GetByJobSID(ctx, result.JobSID)
	require.NoError(t, err)
	assert.Equal(t, dispatch.OutboxPending, entry.Status())
	assert.Equal(t, 1, entry.Attempts())

	// Backoff has not elapsed yet, so wind the clock back in the row.
	require.NoError(t, e.gdb.Exec(
		"UPDATE dispatch_outbox SET next_attempt_at = ? WHERE job_sid = ?",
		time.Now().UTC().Add(-time.Minute), result.JobSID,
	).Error)

	require.NoError(t, e.sweep.Execute(ctx))

	j, err := e.jobRepo.GetBySID(ctx, result.JobSID)
	require.NoError(t, err)
	assert.Equal(t, job.StatusRunning, j.Status())
	assert.Equal(t, 1, e.queue.Len())
}

func TestDispatchExhaustionFailsJobAndReleases(t *testing.T) {
	e := setupEngine(t, 2)
	ctx := context.Background()

	e.queue.FailNext(2)
	result, err := e.submit.Execute(ctx, SubmitJobCommand{
		AccountID: "acct_1",
		Plan:      "premium",
		SessionID: "sess_1",
		JobType:   job.TypeHighlights,
	})
	require.NoError(t, err)

	require.NoError(t, e.gdb.Exec(
		"UPDATE dispatch_outbox SET next_attempt_at = ? WHERE job_sid = ?",
		time.Now().UTC().Add(-time.Minute), result.JobSID,
	).Error)
	require.NoError(t, e.sweep.Execute(ctx))

	j, err := e.jobRepo.GetBySID(ctx, result.JobSID)
	require.NoError(t, err)
	assert.Equal(t, job.StatusFailed, j.Status())
	assert.Equal(t, "dispatch attempts exhausted", j.ErrorReason())

	// The reservation went back.
	assert.Equal(t, 0.0, e.usedAmount(t, "acct_1", usage.CounterLLMCalls))
}

func TestCompleteJobCommitsMeteredAmount(t *testing.T) {
	e := setupEngine(t, 5)
	ctx := context.Background()

	result, err := e.submit.Execute(ctx, SubmitJobCommand{
		AccountID:        "acct_1",
		Plan:             "basic",
		SessionID:        "sess_1",
		JobType:          job.TypeTranscribe,
		EstimatedSeconds: 600,
	})
	require.NoError(t, err)
	assert.Equal(t, 600.0, e.usedAmount(t, "acct_1", usage.CounterCloudSTTSeconds))

	done, err := e.complete.Execute(ctx, CompleteJobCommand{
		JobSID:          result.JobSID,
		Outcome:         OutcomeCompleted,
		ArtifactContent: "# Transcript\n\nhello",
		Language:        "ja",
		FinalAmount:     420,
		DurationSec:     420,
	})
	require.NoError(t, err)
	assert.Equal(t, job.StatusCompleted, done.Status)

	// The counter nets to the measured amount, not estimate + actual.
	assert.Equal(t, 420.0, e.usedAmount(t, "acct_1", usage.CounterCloudSTTSeconds))

	// The artifact landed under the transcript type.
	art, err := e.artRepo.GetBySessionAndType(ctx, "sess_1", artifact.TypeTranscript)
	require.NoError(t, err)
	assert.Equal(t, "# Transcript\n\nhello", art.Content())

	j, err := e.jobRepo.GetBySID(ctx, result.JobSID)
	require.NoError(t, err)
	assert.Equal(t, art.SID(), j.ArtifactSID())
}

func TestCompleteJobDuplicateCallbackAbsorbed(t *testing.T) {
	e := setupEngine(t, 5)
	ctx := context.Background()

	result, err := e.submit.Execute(ctx, SubmitJobCommand{
		AccountID: "acct_1",
		Plan:      "basic",
		SessionID: "sess_1",
		JobType:   job.TypeSummary,
	})
	require.NoError(t, err)

	first, err := e.complete.Execute(ctx, CompleteJobCommand{
		JobSID:          result.JobSID,
		Outcome:         OutcomeCompleted,
		ArtifactContent: "summary v1",
	})
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	// The redelivered callback, even with a contradictory outcome, is a
	// no-op against a terminal job.
	second, err := e.complete.Execute(ctx, CompleteJobCommand{
		JobSID:      result.JobSID,
		Outcome:     OutcomeFailed,
		ErrorReason: "late duplicate",
	})
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, job.StatusCompleted, second.Status)

	assert.Equal(t, 1.0, e.usedAmount(t, "acct_1", usage.CounterSummaryGenerated))
}

func TestCompleteJobFailureReleasesReservation(t *testing.T) {
	e := setupEngine(t, 5)
	ctx := context.Background()

	result, err := e.submit.Execute(ctx, SubmitJobCommand{
		AccountID: "acct_1",
		Plan:      "free",
		SessionID: "sess_1",
		JobType:   job.TypeSummary,
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, e.usedAmount(t, "acct_1", usage.CounterSummaryGenerated))

	done, err := e.complete.Execute(ctx, CompleteJobCommand{
		JobSID:      result.JobSID,
		Outcome:     OutcomeFailed,
		ErrorReason: "model unavailable",
	})
	require.NoError(t, err)
	assert.Equal(t, job.StatusFailed, done.Status)

	// Conservation: the failed attempt costs nothing.
	assert.Equal(t, 0.0, e.usedAmount(t, "acct_1", usage.CounterSummaryGenerated))
}

func TestCompleteJobRetryRequeuesUntilExhausted(t *testing.T) {
	e := setupEngine(t, 5)
	ctx := context.Background()

	result, err := e.submit.Execute(ctx, SubmitJobCommand{
		AccountID: "acct_1",
		Plan:      "premium",
		SessionID: "sess_1",
		JobType:   job.TypeTranslate,
	})
	require.NoError(t, err)

	// First retryable failure goes back to pending and re-dispatches.
	done, err := e.complete.Execute(ctx, CompleteJobCommand{
		JobSID:      result.JobSID,
		Outcome:     OutcomeRetry,
		ErrorReason: "llm timeout",
	})
	require.NoError(t, err)
	assert.Equal(t, job.StatusPending, done.Status)

	require.NoError(t, e.sweep.Execute(ctx))
	j, err := e.jobRepo.GetBySID(ctx, result.JobSID)
	require.NoError(t, err)
	assert.Equal(t, job.StatusRunning, j.Status())
	assert.Equal(t, 2, j.Attempts())

	// Retry past the attempt budget becomes a terminal failure with the
	// reservation released.
	done, err = e.complete.Execute(ctx, CompleteJobCommand{
		JobSID:      result.JobSID,
		Outcome:     OutcomeRetry,
		ErrorReason: "llm timeout",
	})
	require.NoError(t, err)
	// Attempts is 2 of 3, so one more round trip.
	require.NoError(t, e.sweep.Execute(ctx))

	done, err = e.complete.Execute(ctx, CompleteJobCommand{
		JobSID:      result.JobSID,
		Outcome:     OutcomeRetry,
		ErrorReason: "llm timeout",
	})
	require.NoError(t, err)
	assert.Equal(t, job.StatusFailed, done.Status)
	assert.Contains(t, e.mustGetJob(t, result.JobSID).ErrorReason(), "retries exhausted")
	assert.Equal(t, 0.0, e.usedAmount(t, "acct_1", usage.CounterLLMCalls))
}

func (e *engine) mustGetJob(t *testing.T, sid string) *job.Job {
	t.Helper()
	j, err := e.jobRepo.GetBySID(context.Background(), sid)
	require.NoError(t, err)
	return j
}

func TestPremiumPooledReservation(t *testing.T) {
	e := setupEngine(t, 5)
	ctx := context.Background()

	// Premium summary draws from the pooled llm_calls counter.
	_, err := e.submit.Execute(ctx, SubmitJobCommand{
		AccountID: "acct_p",
		Plan:      "premium",
		SessionID: "sess_1",
		JobType:   job.TypeSummary,
	})
	require.NoError(t, err)

	assert.Equal(t, 0.0, e.usedAmount(t, "acct_p", usage.CounterSummaryGenerated))
	assert.Equal(t, 1.0, e.usedAmount(t, "acct_p", usage.CounterLLMCalls))
}

func TestFailStaleJobsReleasesReservation(t *testing.T) {
	e := setupEngine(t, 5)
	ctx := context.Background()

	result, err := e.submit.Execute(ctx, SubmitJobCommand{
		AccountID: "acct_1",
		Plan:      "basic",
		SessionID: "sess_1",
		JobType:   job.TypeQuiz,
	})
	require.NoError(t, err)
	require.Equal(t, job.StatusRunning, result.Status)

	// Simulate a worker gone silent for two hours.
	require.NoError(t, e.gdb.Exec(
		"UPDATE jobs SET updated_at = ? WHERE sid = ?",
		time.Now().UTC().Add(-2*time.Hour), result.JobSID,
	).Error)

	require.NoError(t, e.stale.Execute(ctx))

	j := e.mustGetJob(t, result.JobSID)
	assert.Equal(t, job.StatusFailed, j.Status())
	assert.Contains(t, j.ErrorReason(), "no worker callback")
	assert.Equal(t, 0.0, e.usedAmount(t, "acct_1", usage.CounterQuizGenerated))

	// The late callback after the sweep is absorbed as a duplicate.
	done, err := e.complete.Execute(ctx, CompleteJobCommand{
		JobSID:          result.JobSID,
		Outcome:         OutcomeCompleted,
		ArtifactContent: "too late",
	})
	require.NoError(t, err)
	assert.True(t, done.Duplicate)
}

func TestCleanupIdempotencyAllowsKeyReuse(t *testing.T) {
	e := setupEngine(t, 5)
	ctx := context.Background()

	cmd := SubmitJobCommand{
		AccountID:      "acct_1",
		Plan:           "basic",
		SessionID:      "sess_1",
		JobType:        job.TypeSummary,
		IdempotencyKey: "key-reuse",
	}
	first, err := e.submit.Execute(ctx, cmd)
	require.NoError(t, err)

	// Finish the first job so the second submission is a regeneration,
	// not a duplicate of work still in flight.
	_, err = e.complete.Execute(ctx, CompleteJobCommand{
		JobSID:          first.JobSID,
		Outcome:         OutcomeCompleted,
		ArtifactContent: "summary v1",
	})
	require.NoError(t, err)

	// Age the record past retention and sweep.
	require.NoError(t, e.gdb.Exec(
		"UPDATE idempotency_records SET expires_at = ?",
		time.Now().UTC().Add(-time.Hour),
	).Error)
	require.NoError(t, e.cleanup.Execute(ctx))

	second, err := e.submit.Execute(ctx, cmd)
	require.NoError(t, err)
	assert.False(t, second.Replayed)
	assert.NotEqual(t, first.JobSID, second.JobSID)
}

func TestGetJobScopedToAccount(t *testing.T) {
	e := setupEngine(t, 5)
	ctx := context.Background()

	result, err := e.submit.Execute(ctx, SubmitJobCommand{
		AccountID: "acct_owner",
		Plan:      "basic",
		SessionID: "sess_1",
		JobType:   job.TypeSummary,
	})
	require.NoError(t, err)

	getJob := NewGetJobUseCase(e.jobRepo)

	view, err := getJob.Execute(ctx, "acct_owner", result.JobSID)
	require.NoError(t, err)
	assert.Equal(t, result.JobSID, view.JobSID)

	// Foreign accounts get not-found, never forbidden.
	_, err = getJob.Execute(ctx, "acct_other", result.JobSID)
	assert.True(t, errors.Is(err, job.ErrJobNotFound))
}

func TestConcurrentReservationsNeverOverdraw(t *testing.T) {
	e := setupEngine(t, 5)
	ctx := context.Background()

	// Free plan: 3 summaries. Ten concurrent submissions, each for its
	// own session, race for them.
	const workers = 10
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func(n int) {
			_, err := e.submit.Execute(ctx, SubmitJobCommand{
				AccountID: "acct_race",
				Plan:      "free",
				SessionID: fmt.Sprintf("sess_race_%d", n),
				JobType:   job.TypeSummary,
			})
			results <- err
		}(i)
	}

	admitted := 0
	for i := 0; i < workers; i++ {
		if err := <-results; err == nil {
			admitted++
		}
	}

	assert.Equal(t, 3, admitted)
	assert.Equal(t, 3.0, e.usedAmount(t, "acct_race", usage.CounterSummaryGenerated))
}
