package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"classnotex/internal/domain/account"
	"classnotex/internal/domain/asset"
	"classnotex/internal/domain/dispatch"
	"classnotex/internal/domain/idempotency"
	"classnotex/internal/domain/job"
	"classnotex/internal/domain/quota"
	"classnotex/internal/domain/usage"
	"classnotex/internal/shared/biztime"
	"classnotex/internal/shared/db"
	"classnotex/internal/shared/logger"
)

// SubmitJobCommand admits one unit of billable work.
type SubmitJobCommand struct {
	AccountID      string
	Plan           string
	SessionID      string
	JobType        job.Type
	IdempotencyKey string
	// EstimatedSeconds is the reservation size for metered job types
	// (transcription). Count-based types always reserve 1.
	EstimatedSeconds float64
	// Payload is passed through to the worker untouched.
	Payload json.RawMessage
}

// SubmitJobResult reports the admitted (or replayed) job.
type SubmitJobResult struct {
	JobSID    string
	Status    job.Status
	CreatedAt time.Time
	// Replayed is true when the idempotency guard returned a previously
	// admitted job instead of creating a new one.
	Replayed bool
}

// SubmitJobUseCase is the admission controller. Order of operations is
// fixed: claim the idempotency key, then reserve quota, record the job and
// its outbox entry in one transaction, then attempt an immediate dispatch.
type SubmitJobUseCase struct {
	jobRepo       job.Repository
	idemRepo      idempotency.Repository
	outboxRepo    dispatch.Repository
	assetRepo     asset.Repository
	ledger        usage.Ledger
	dispatcher    *Dispatcher
	txMgr         *db.TransactionManager
	logger        logger.Interface
	idemRetention time.Duration
}

func NewSubmitJobUseCase(
	jobRepo job.Repository,
	idemRepo idempotency.Repository,
	outboxRepo dispatch.Repository,
	assetRepo asset.Repository,
	ledger usage.Ledger,
	dispatcher *Dispatcher,
	txMgr *db.TransactionManager,
	logger logger.Interface,
	idemRetentionHours int,
) *SubmitJobUseCase {
	retention := time.Duration(idemRetentionHours) * time.Hour
	if retention <= 0 {
		retention = idempotency.DefaultRetention
	}
	return &SubmitJobUseCase{
		jobRepo:       jobRepo,
		idemRepo:      idemRepo,
		outboxRepo:    outboxRepo,
		assetRepo:     assetRepo,
		ledger:        ledger,
		dispatcher:    dispatcher,
		txMgr:         txMgr,
		logger:        logger,
		idemRetention: retention,
	}
}

func (uc *SubmitJobUseCase) Execute(ctx context.Context, cmd SubmitJobCommand) (*SubmitJobResult, error) {
	if !cmd.JobType.IsValid() {
		return nil, fmt.Errorf("invalid job type: %s", cmd.JobType)
	}

	plan := account.NormalizePlan(cmd.Plan)
	counter := cmd.JobType.BillingCounter()
	amount := 1.0
	if cmd.JobType == job.TypeTranscribe {
		if cmd.EstimatedSeconds <= 0 {
			return nil, fmt.Errorf("transcription requires a positive duration estimate")
		}
		amount = cmd.EstimatedSeconds
	}

	// Step 1: take the idempotency claim before any billable effect.
	var claim *idempotency.Record
	if cmd.IdempotencyKey != "" {
		record, err := idempotency.NewRecord(cmd.AccountID, cmd.IdempotencyKey, uc.idemRetention)
		if err != nil {
			return nil, err
		}
		existing, claimed, err := uc.idemRepo.Claim(ctx, record)
		if err != nil {
			return nil, fmt.Errorf("failed to claim idempotency key: %w", err)
		}
		if !claimed {
			return uc.replay(ctx, existing)
		}
		claim = record
	}

	monthKey := biztime.CurrentMonthKey()

	j, err := job.NewJob(cmd.AccountID, cmd.SessionID, cmd.JobType, counter, amount)
	if err != nil {
		uc.releaseClaim(ctx, claim)
		return nil, err
	}
	if cmd.IdempotencyKey != "" {
		j.SetIdempotencyKey(cmd.IdempotencyKey)
	}

	payload, err := json.Marshal(dispatch.Task{
		JobSID:    j.SID(),
		JobType:   cmd.JobType.String(),
		AccountID: cmd.AccountID,
		SessionID: cmd.SessionID,
		Payload:   cmd.Payload,
	})
	if err != nil {
		uc.releaseClaim(ctx, claim)
		return nil, fmt.Errorf("failed to build task payload: %w", err)
	}
	entry, err := dispatch.NewOutboxEntry(j.SID(), payload)
	if err != nil {
		uc.releaseClaim(ctx, claim)
		return nil, err
	}

	// Steps 2-4: reserve quota and record job + outbox atomically. The
	// reservation check runs under the counter row lock inside this
	// transaction, so concurrent submissions cannot jointly overdraw.
	var duplicate *job.Job
	txErr := uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		// A pending or running job of the same type on the session absorbs
		// rapid duplicate taps without consuming quota, key or no key.
		existing, err := uc.jobRepo.FindNonTerminalBySessionAndType(txCtx, cmd.SessionID, cmd.JobType)
		if err == nil {
			duplicate = existing
			if claim == nil {
				return nil
			}
			if err := claim.Complete(existing.SID()); err != nil {
				return err
			}
			return uc.idemRepo.Complete(txCtx, claim)
		}
		if !errors.Is(err, job.ErrJobNotFound) {
			return err
		}

		if _, err := uc.ledger.Reserve(txCtx, cmd.AccountID, plan, monthKey, counter, amount); err != nil {
			return err
		}
		if err := uc.jobRepo.Create(txCtx, j); err != nil {
			return err
		}
		if err := uc.outboxRepo.Create(txCtx, entry); err != nil {
			return err
		}
		if cmd.JobType == job.TypeTranscribe {
			if err := uc.claimAsset(txCtx, cmd.SessionID); err != nil {
				return err
			}
		}
		if claim != nil {
			if err := claim.Complete(j.SID()); err != nil {
				return err
			}
			return uc.idemRepo.Complete(txCtx, claim)
		}
		return nil
	})
	if txErr != nil {
		var denied *quota.DeniedError
		if claim != nil && errors.As(txErr, &denied) {
			// A denial is the key's recorded outcome: retries replay it
			// instead of re-running admission.
			uc.recordDenial(ctx, claim, denied)
		} else {
			// An infrastructure failure must not poison the key for later
			// retries.
			uc.releaseClaim(ctx, claim)
		}
		return nil, txErr
	}

	if duplicate != nil {
		uc.logger.Infow("existing job reused for duplicate submission",
			"job_sid", duplicate.SID(),
			"session_id", cmd.SessionID,
			"job_type", cmd.JobType.String(),
		)
		return &SubmitJobResult{
			JobSID:    duplicate.SID(),
			Status:    duplicate.Status(),
			CreatedAt: duplicate.CreatedAt(),
			Replayed:  true,
		}, nil
	}

	uc.logger.Infow("job admitted",
		"job_sid", j.SID(),
		"job_type", cmd.JobType.String(),
		"account_id", cmd.AccountID,
		"counter", counter.String(),
		"amount", amount,
	)

	// Step 5: immediate dispatch, best effort. The outbox sweeper picks the
	// entry up if this attempt fails, so errors here never fail admission.
	if err := uc.dispatcher.Dispatch(ctx, entry); err != nil {
		uc.logger.Warnw("immediate dispatch failed, left to sweeper",
			"job_sid", j.SID(),
			"error", err,
		)
	}

	// Report the post-dispatch status.
	current, err := uc.jobRepo.GetBySID(ctx, j.SID())
	if err != nil {
		current = j
	}

	return &SubmitJobResult{
		JobSID:    current.SID(),
		Status:    current.Status(),
		CreatedAt: current.CreatedAt(),
	}, nil
}

// replay resolves a lost idempotency claim to the original admission.
func (uc *SubmitJobUseCase) replay(ctx context.Context, existing *idempotency.Record) (*SubmitJobResult, error) {
	if existing == nil || existing.State() != idempotency.StateCompleted {
		return nil, idempotency.ErrInFlight
	}
	if limitID := existing.DenialLimitID(); limitID != "" {
		return nil, &quota.DeniedError{LimitID: limitID}
	}
	j, err := uc.jobRepo.GetBySID(ctx, existing.JobSID())
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return nil, idempotency.ErrInFlight
		}
		return nil, err
	}
	uc.logger.Infow("duplicate submission replayed",
		"job_sid", j.SID(),
		"account_id", j.AccountID(),
	)
	return &SubmitJobResult{
		JobSID:    j.SID(),
		Status:    j.Status(),
		CreatedAt: j.CreatedAt(),
		Replayed:  true,
	}, nil
}

// claimAsset hands the session's recording to the transcription job. A
// session without a registered asset is tolerated: transcription of
// externally provided audio has nothing to transition.
func (uc *SubmitJobUseCase) claimAsset(ctx context.Context, sessionID string) error {
	a, err := uc.assetRepo.GetBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, asset.ErrAssetNotFound) {
			return nil
		}
		return err
	}
	if err := a.MarkProcessing(); err != nil {
		return err
	}
	return uc.assetRepo.Update(ctx, a)
}

// recordDenial finishes the claim with the denial's limit ID. This runs
// outside the rolled-back admission transaction so the recorded outcome
// survives it.
func (uc *SubmitJobUseCase) recordDenial(ctx context.Context, claim *idempotency.Record, denied *quota.DeniedError) {
	if err := claim.Deny(denied.LimitID); err != nil {
		uc.logger.Errorw("failed to record denial outcome",
			"account_id", claim.AccountID(),
			"error", err,
		)
		return
	}
	if err := uc.idemRepo.Complete(ctx, claim); err != nil {
		uc.logger.Errorw("failed to persist denial outcome",
			"account_id", claim.AccountID(),
			"error", err,
		)
	}
}

func (uc *SubmitJobUseCase) releaseClaim(ctx context.Context, claim *idempotency.Record) {
	if claim == nil {
		return
	}
	if err := uc.idemRepo.Release(ctx, claim); err != nil {
		uc.logger.Errorw("failed to release idempotency claim",
			"account_id", claim.AccountID(),
			"error", err,
		)
	}
}
