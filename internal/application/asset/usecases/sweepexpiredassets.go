package usecases

import (
	"context"

	"classnotex/internal/domain/asset"
	"classnotex/internal/shared/biztime"
	"classnotex/internal/shared/logger"
)

const expirySweepBatchSize = 100

// SweepExpiredAssetsUseCase deletes audio whose retention window has
// passed. Assets mid-transcription are skipped and picked up on a later
// sweep.
type SweepExpiredAssetsUseCase struct {
	assetRepo asset.Repository
	logger    logger.Interface
}

func NewSweepExpiredAssetsUseCase(assetRepo asset.Repository, logger logger.Interface) *SweepExpiredAssetsUseCase {
	return &SweepExpiredAssetsUseCase{assetRepo: assetRepo, logger: logger}
}

func (uc *SweepExpiredAssetsUseCase) Execute(ctx context.Context) error {
	overdue, err := uc.assetRepo.ListExpired(ctx, biztime.NowUTC(), expirySweepBatchSize)
	if err != nil {
		return err
	}

	deleted := 0
	for _, a := range overdue {
		// Two steps: expire first, purge second. An asset whose purge
		// fails stays expired and the next sweep retries it.
		if a.Status() != asset.StatusExpired {
			if err := a.MarkExpired(); err != nil {
				continue
			}
			if err := uc.assetRepo.Update(ctx, a); err != nil {
				uc.logger.Errorw("failed to expire asset",
					"asset_sid", a.SID(),
					"error", err,
				)
				continue
			}
		}
		if err := a.MarkDeleted(); err != nil {
			continue
		}
		if err := uc.assetRepo.Update(ctx, a); err != nil {
			uc.logger.Errorw("failed to purge expired asset",
				"asset_sid", a.SID(),
				"error", err,
			)
			continue
		}
		deleted++
	}

	if deleted > 0 {
		uc.logger.Infow("expired audio assets deleted", "count", deleted)
	}
	return nil
}
