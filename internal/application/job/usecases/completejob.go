package usecases

import (
	"context"
	"errors"
	"fmt"

	"classnotex/internal/domain/artifact"
	"classnotex/internal/domain/asset"
	"classnotex/internal/domain/dispatch"
	"classnotex/internal/domain/job"
	"classnotex/internal/domain/usage"
	"classnotex/internal/shared/db"
	"classnotex/internal/shared/logger"
)

// Outcome is the worker-reported result of an execution attempt.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	// OutcomeRetry requests another attempt for a transient worker failure.
	OutcomeRetry Outcome = "retry"
)

// CompleteJobCommand is the worker callback payload.
type CompleteJobCommand struct {
	JobSID  string
	Outcome Outcome
	// ErrorReason is required for failed and retry outcomes.
	ErrorReason string
	// ArtifactContent is the produced Markdown, required on completion.
	ArtifactContent string
	Language        string
	// FinalAmount is the measured billable amount for metered jobs
	// (actual STT seconds). Zero means bill the reserved amount as-is.
	FinalAmount float64
	// DurationSec is the measured audio duration, set by transcription.
	DurationSec float64
}

// CompleteJobResult reports the job state after the callback.
type CompleteJobResult struct {
	JobSID string
	Status job.Status
	// Duplicate is true when the callback arrived for an already terminal
	// job and was absorbed without effect.
	Duplicate bool
}

// CompleteJobUseCase settles a job: the terminal transition, the artifact
// write and the ledger settlement commit or roll back together. Redelivered
// callbacks are no-ops because terminal states absorb.
type CompleteJobUseCase struct {
	jobRepo        job.Repository
	artifactRepo   artifact.Repository
	assetRepo      asset.Repository
	outboxRepo     dispatch.Repository
	ledger         usage.Ledger
	txMgr          *db.TransactionManager
	logger         logger.Interface
	maxJobAttempts int
}

func NewCompleteJobUseCase(
	jobRepo job.Repository,
	artifactRepo artifact.Repository,
	assetRepo asset.Repository,
	outboxRepo dispatch.Repository,
	ledger usage.Ledger,
	txMgr *db.TransactionManager,
	logger logger.Interface,
	maxJobAttempts int,
) *CompleteJobUseCase {
	if maxJobAttempts <= 0 {
		maxJobAttempts = 3
	}
	return &CompleteJobUseCase{
		jobRepo:        jobRepo,
		artifactRepo:   artifactRepo,
		assetRepo:      assetRepo,
		outboxRepo:     outboxRepo,
		ledger:         ledger,
		txMgr:          txMgr,
		logger:         logger,
		maxJobAttempts: maxJobAttempts,
	}
}

func (uc *CompleteJobUseCase) Execute(ctx context.Context, cmd CompleteJobCommand) (*CompleteJobResult, error) {
	j, err := uc.jobRepo.GetBySID(ctx, cmd.JobSID)
	if err != nil {
		return nil, err
	}

	if j.Status().IsTerminal() {
		uc.logger.Infow("duplicate completion callback absorbed",
			"job_sid", j.SID(),
			"status", j.Status().String(),
		)
		return &CompleteJobResult{JobSID: j.SID(), Status: j.Status(), Duplicate: true}, nil
	}

	var txErr error
	switch cmd.Outcome {
	case OutcomeCompleted:
		txErr = uc.complete(ctx, j, cmd)
	case OutcomeFailed:
		txErr = uc.fail(ctx, j, cmd.ErrorReason)
	case OutcomeRetry:
		txErr = uc.retry(ctx, j, cmd.ErrorReason)
	default:
		return nil, fmt.Errorf("unknown outcome: %s", cmd.Outcome)
	}

	if txErr != nil {
		// A stale transition means another writer settled the job while
		// this callback was in flight. Re-read and absorb.
		if errors.Is(txErr, job.ErrStaleTransition) {
			settled, err := uc.jobRepo.GetBySID(ctx, cmd.JobSID)
			if err == nil && settled.Status().IsTerminal() {
				return &CompleteJobResult{JobSID: settled.SID(), Status: settled.Status(), Duplicate: true}, nil
			}
		}
		return nil, txErr
	}

	return &CompleteJobResult{JobSID: j.SID(), Status: j.Status()}, nil
}

func (uc *CompleteJobUseCase) complete(ctx context.Context, j *job.Job, cmd CompleteJobCommand) error {
	prior := j.Status()
	res := reservationOf(j)

	finalAmount := cmd.FinalAmount
	if finalAmount <= 0 {
		finalAmount = res.Amount
	}

	art, err := uc.buildArtifact(ctx, j, cmd)
	if err != nil {
		return err
	}

	if err := j.MarkCompleted(art.SID()); err != nil {
		return err
	}

	return uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		if err := uc.artifactRepo.Upsert(txCtx, art); err != nil {
			return err
		}
		if err := uc.jobRepo.UpdateStatus(txCtx, j, prior); err != nil {
			return err
		}
		if err := uc.ledger.Commit(txCtx, res, finalAmount); err != nil {
			return fmt.Errorf("failed to commit reservation: %w", err)
		}
		if j.JobType() == job.TypeTranscribe {
			if err := uc.settleAsset(txCtx, j.SessionID(), true, cmd.DurationSec); err != nil {
				return err
			}
		}
		uc.logger.Infow("job completed",
			"job_sid", j.SID(),
			"artifact_sid", art.SID(),
			"final_amount", finalAmount,
		)
		return nil
	})
}

func (uc *CompleteJobUseCase) fail(ctx context.Context, j *job.Job, reason string) error {
	prior := j.Status()
	res := reservationOf(j)

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
		if j.JobType() == job.TypeTranscribe {
			if err := uc.settleAsset(txCtx, j.SessionID(), false, 0); err != nil {
				return err
			}
		}
		uc.logger.Infow("job failed",
			"job_sid", j.SID(),
			"reason", reason,
		)
		return nil
	})
}

func (uc *CompleteJobUseCase) retry(ctx context.Context, j *job.Job, reason string) error {
	if j.Attempts() >= uc.maxJobAttempts {
		return uc.fail(ctx, j, fmt.Sprintf("retries exhausted: %s", reason))
	}

	prior := j.Status()
	if err := j.MarkRetrying(reason); err != nil {
		return err
	}

	return uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		if err := uc.jobRepo.UpdateStatus(txCtx, j, prior); err != nil {
			return err
		}
		entry, err := uc.outboxRepo.GetByJobSID(txCtx, j.SID())
		if err != nil {
			return err
		}
		entry.Requeue()
		if err := uc.outboxRepo.Update(txCtx, entry); err != nil {
			return err
		}
		uc.logger.Infow("job requeued for retry",
			"job_sid", j.SID(),
			"attempts", j.Attempts(),
			"reason", reason,
		)
		return nil
	})
}

func (uc *CompleteJobUseCase) buildArtifact(ctx context.Context, j *job.Job, cmd CompleteJobCommand) (*artifact.Artifact, error) {
	artType := artifact.Type(j.JobType().String())
	if j.JobType() == job.TypeTranscribe {
		artType = artifact.TypeTranscript
	}

	existing, err := uc.artifactRepo.GetBySessionAndType(ctx, j.SessionID(), artType)
	if err == nil {
		existing.Replace(cmd.ArtifactContent, cmd.Language, j.SID())
		return existing, nil
	}
	if !errors.Is(err, artifact.ErrArtifactNotFound) {
		return nil, err
	}
	return artifact.NewArtifact(j.AccountID(), j.SessionID(), artType, cmd.Language, cmd.ArtifactContent, j.SID())
}

// settleAsset couples the audio asset state to the transcription outcome.
// A session without a registered asset is tolerated: non-recorded sessions
// can still request transcription of externally provided audio.
func (uc *CompleteJobUseCase) settleAsset(ctx context.Context, sessionID string, succeeded bool, durationSec float64) error {
	a, err := uc.assetRepo.GetBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, asset.ErrAssetNotFound) {
			return nil
		}
		return err
	}
	if a.Status() != asset.StatusProcessing {
		return nil
	}
	if succeeded {
		if err := a.MarkReady(durationSec); err != nil {
			return err
		}
	} else {
		if err := a.MarkFailed(); err != nil {
			return err
		}
	}
	return uc.assetRepo.Update(ctx, a)
}
