package usecases

import (
	"context"

	"classnotex/internal/domain/asset"
	"classnotex/internal/shared/logger"
)

// CommitAudioCommand confirms a finished upload.
type CommitAudioCommand struct {
	AccountID string
	AssetSID  string
	SizeBytes int64
}

// CommitAudioUseCase moves an asset from pending to available once the
// client confirms the upload.
type CommitAudioUseCase struct {
	assetRepo asset.Repository
	logger    logger.Interface
}

func NewCommitAudioUseCase(assetRepo asset.Repository, logger logger.Interface) *CommitAudioUseCase {
	return &CommitAudioUseCase{assetRepo: assetRepo, logger: logger}
}

func (uc *CommitAudioUseCase) Execute(ctx context.Context, cmd CommitAudioCommand) (*asset.AudioAsset, error) {
	a, err := uc.assetRepo.GetBySID(ctx, cmd.AssetSID)
	if err != nil {
		return nil, err
	}
	if a.AccountID() != cmd.AccountID {
		return nil, asset.ErrAssetNotFound
	}

	if err := a.MarkAvailable(cmd.SizeBytes); err != nil {
		return nil, err
	}
	if err := uc.assetRepo.Update(ctx, a); err != nil {
		return nil, err
	}

	uc.logger.Infow("audio upload committed",
		"asset_sid", a.SID(),
		"size_bytes", cmd.SizeBytes,
	)
	return a, nil
}
