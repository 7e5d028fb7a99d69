package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"classnotex/internal/domain/idempotency"
	"classnotex/internal/infrastructure/persistence/models"
	"classnotex/internal/shared/db"
	apperrors "classnotex/internal/shared/errors"
)

// IdempotencyRepository implements idempotency.Repository. Claim leans on
// the unique (account_id, idem_key) index: the insert either wins or
// collides, there is no check-then-insert window.
type IdempotencyRepository struct {
	db *gorm.DB
}

// NewIdempotencyRepository creates an idempotency repository.
func NewIdempotencyRepository(gdb *gorm.DB) idempotency.Repository {
	return &IdempotencyRepository{db: gdb}
}

func (r *IdempotencyRepository) Claim(ctx context.Context, rec *idempotency.Record) (*idempotency.Record, bool, error) {
	model := r.toModel(rec)
	txDB := db.GetTxFromContext(ctx, r.db)

	if err := txDB.Create(model).Error; err != nil {
		if apperrors.IsDuplicateError(err) {
			existing, getErr := r.Get(ctx, rec.AccountID(), rec.Key())
			if getErr != nil {
				return nil, false, getErr
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("failed to claim idempotency key: %w", err)
	}

	if err := rec.SetDBID(model.ID); err != nil {
		return nil, false, fmt.Errorf("failed to set record ID: %w", err)
	}
	return nil, true, nil
}

func (r *IdempotencyRepository) Complete(ctx context.Context, rec *idempotency.Record) error {
	txDB := db.GetTxFromContext(ctx, r.db)
	result := txDB.Model(&models.IdempotencyRecordModel{}).
		Where("id = ?", rec.DBID()).
		Updates(map[string]interface{}{
			"state":           string(rec.State()),
			"job_sid":         rec.JobSID(),
			"denial_limit_id": rec.DenialLimitID(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to complete idempotency record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return idempotency.ErrRecordNotFound
	}
	return nil
}

func (r *IdempotencyRepository) Release(ctx context.Context, rec *idempotency.Record) error {
	txDB := db.GetTxFromContext(ctx, r.db)
	if err := txDB.Where("id = ?", rec.DBID()).Delete(&models.IdempotencyRecordModel{}).Error; err != nil {
		return fmt.Errorf("failed to release idempotency claim: %w", err)
	}
	return nil
}

func (r *IdempotencyRepository) Get(ctx context.Context, accountID, key string) (*idempotency.Record, error) {
	var model models.IdempotencyRecordModel
	txDB := db.GetTxFromContext(ctx, r.db)
	err := txDB.Where("account_id = ? AND idem_key = ?", accountID, key).First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, idempotency.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get idempotency record: %w", err)
	}
	return r.toEntity(&model)
}

func (r *IdempotencyRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	txDB := db.GetTxFromContext(ctx, r.db)
	result := txDB.Where("expires_at <= ?", now).Delete(&models.IdempotencyRecordModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete expired idempotency records: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *IdempotencyRepository) toModel(rec *idempotency.Record) *models.IdempotencyRecordModel {
	return &models.IdempotencyRecordModel{
		ID:            rec.DBID(),
		SID:           rec.SID(),
		AccountID:     rec.AccountID(),
		Key:           rec.Key(),
		State:         string(rec.State()),
		JobSID:        rec.JobSID(),
		DenialLimitID: rec.DenialLimitID(),
		CreatedAt:     rec.CreatedAt(),
		ExpiresAt:     rec.ExpiresAt(),
	}
}

func (r *IdempotencyRepository) toEntity(m *models.IdempotencyRecordModel) (*idempotency.Record, error) {
	rec, err := idempotency.ReconstructRecord(
		m.ID,
		m.SID,
		m.AccountID,
		m.Key,
		idempotency.State(m.State),
		m.JobSID,
		m.DenialLimitID,
		m.CreatedAt,
		m.ExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to map idempotency record: %w", err)
	}
	return rec, nil
}
