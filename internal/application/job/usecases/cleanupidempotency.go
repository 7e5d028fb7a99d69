package usecases

import (
	"context"

	"classnotex/internal/domain/idempotency"
	"classnotex/internal/shared/biztime"
	"classnotex/internal/shared/logger"
)

// CleanupIdempotencyUseCase removes idempotency records past their
// retention window. After this sweep a reused key admits a fresh job.
type CleanupIdempotencyUseCase struct {
	idemRepo idempotency.Repository
	logger   logger.Interface
}

func NewCleanupIdempotencyUseCase(idemRepo idempotency.Repository, logger logger.Interface) *CleanupIdempotencyUseCase {
	return &CleanupIdempotencyUseCase{idemRepo: idemRepo, logger: logger}
}

func (uc *CleanupIdempotencyUseCase) Execute(ctx context.Context) error {
	deleted, err := uc.idemRepo.DeleteExpired(ctx, biztime.NowUTC())
	if err != nil {
		return err
	}
	if deleted > 0 {
		uc.logger.Infow("expired idempotency records removed", "count", deleted)
	}
	return nil
}
