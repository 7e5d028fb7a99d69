// Package usecases implements the audio asset lifecycle flows.
package usecases

import (
	"context"
	"fmt"
	"time"

	"classnotex/internal/domain/account"
	"classnotex/internal/domain/asset"
	"classnotex/internal/domain/usage"
	"classnotex/internal/shared/biztime"
	"classnotex/internal/shared/db"
	"classnotex/internal/shared/logger"
)

// RegisterAudioCommand registers an upload slot for a session recording.
type RegisterAudioCommand struct {
	AccountID string
	Plan      string
	SessionID string
}

// RegisterAudioResult carries the slot the client uploads into.
type RegisterAudioResult struct {
	AssetSID   string
	StorageKey string
	ExpiresAt  time.Time
}

// RegisterAudioUseCase starts a cloud recording session. The session-count
// reservation happens here, before any bytes are accepted, so the free
// plan's session ceiling is enforced up front.
type RegisterAudioUseCase struct {
	assetRepo     asset.Repository
	ledger        usage.Ledger
	txMgr         *db.TransactionManager
	logger        logger.Interface
	retentionDays int
}

func NewRegisterAudioUseCase(
	assetRepo asset.Repository,
	ledger usage.Ledger,
	txMgr *db.TransactionManager,
	logger logger.Interface,
	retentionDays int,
) *RegisterAudioUseCase {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	return &RegisterAudioUseCase{
		assetRepo:     assetRepo,
		ledger:        ledger,
		txMgr:         txMgr,
		logger:        logger,
		retentionDays: retentionDays,
	}
}

func (uc *RegisterAudioUseCase) Execute(ctx context.Context, cmd RegisterAudioCommand) (*RegisterAudioResult, error) {
	plan := account.NormalizePlan(cmd.Plan)
	monthKey := biztime.CurrentMonthKey()

	storageKey := fmt.Sprintf("audio/%s/%s/recording.m4a", cmd.AccountID, cmd.SessionID)
	a, err := asset.NewAudioAsset(cmd.AccountID, cmd.SessionID, storageKey, uc.retentionDays)
	if err != nil {
		return nil, err
	}

	txErr := uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		res, err := uc.ledger.Reserve(txCtx, cmd.AccountID, plan, monthKey, usage.CounterCloudSessionsStarted, 1)
		if err != nil {
			return err
		}
		// Session starts are billed on registration, not on upload
		// completion, so the reservation is committed in place.
		if err := uc.ledger.Commit(txCtx, res, 1); err != nil {
			return err
		}
		return uc.assetRepo.Create(txCtx, a)
	})
	if txErr != nil {
		return nil, txErr
	}

	uc.logger.Infow("audio upload slot registered",
		"asset_sid", a.SID(),
		"session_id", cmd.SessionID,
	)
	return &RegisterAudioResult{
		AssetSID:   a.SID(),
		StorageKey: a.StorageKey(),
		ExpiresAt:  a.ExpiresAt(),
	}, nil
}
