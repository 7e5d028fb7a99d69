package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"classnotex/internal/domain/dispatch"
	"classnotex/internal/infrastructure/persistence/models"
	"classnotex/internal/shared/db"
)

// DispatchOutboxRepository implements dispatch.Repository over the
// dispatch_outbox table.
type DispatchOutboxRepository struct {
	db *gorm.DB
}

// NewDispatchOutboxRepository creates a dispatch outbox repository.
func NewDispatchOutboxRepository(gdb *gorm.DB) dispatch.Repository {
	return &DispatchOutboxRepository{db: gdb}
}

func (r *DispatchOutboxRepository) Create(ctx context.Context, e *dispatch.OutboxEntry) error {
	model := r.toModel(e)
	txDB := db.GetTxFromContext(ctx, r.db)
	if err := txDB.Create(model).Error; err != nil {
		return fmt.Errorf("failed to create outbox entry: %w", err)
	}
	if err := e.SetDBID(model.ID); err != nil {
		return fmt.Errorf("failed to set entry ID: %w", err)
	}
	return nil
}

func (r *DispatchOutboxRepository) GetByJobSID(ctx context.Context, jobSID string) (*dispatch.OutboxEntry, error) {
	var model models.DispatchOutboxModel
	txDB := db.GetTxFromContext(ctx, r.db)
	err := txDB.Where("job_sid = ?", jobSID).First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, dispatch.ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get outbox entry: %w", err)
	}
	return r.toEntity(&model)
}

func (r *DispatchOutboxRepository) Update(ctx context.Context, e *dispatch.OutboxEntry) error {
	txDB := db.GetTxFromContext(ctx, r.db)
	result := txDB.Model(&models.DispatchOutboxModel{}).
		Where("id = ?", e.DBID()).
		Updates(map[string]interface{}{
			"attempts":        e.Attempts(),
			"next_attempt_at": e.NextAttemptAt(),
			"status":          string(e.Status()),
			"last_error":      e.LastError(),
			"updated_at":      e.UpdatedAt(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update outbox entry: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return dispatch.ErrEntryNotFound
	}
	return nil
}

func (r *DispatchOutboxRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*dispatch.OutboxEntry, error) {
	var entryModels []models.DispatchOutboxModel
	txDB := db.GetTxFromContext(ctx, r.db)
	err := txDB.Where("status = ? AND next_attempt_at <= ?", string(dispatch.OutboxPending), now).
		Order("next_attempt_at ASC").
		Limit(limit).
		Find(&entryModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list due outbox entries: %w", err)
	}

	entries := make([]*dispatch.OutboxEntry, 0, len(entryModels))
	for i := range entryModels {
		e, err := r.toEntity(&entryModels[i])
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (r *DispatchOutboxRepository) DeleteSent(ctx context.Context, cutoff time.Time) (int64, error) {
	txDB := db.GetTxFromContext(ctx, r.db)
	result := txDB.Where("status = ? AND updated_at < ?", string(dispatch.OutboxSent), cutoff).
		Delete(&models.DispatchOutboxModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete sent outbox entries: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *DispatchOutboxRepository) toModel(e *dispatch.OutboxEntry) *models.DispatchOutboxModel {
	return &models.DispatchOutboxModel{
		ID:            e.DBID(),
		JobSID:        e.JobSID(),
		Payload:       datatypes.JSON(e.Payload()),
		Attempts:      e.Attempts(),
		NextAttemptAt: e.NextAttemptAt(),
		Status:        string(e.Status()),
		LastError:     e.LastError(),
		CreatedAt:     e.CreatedAt(),
		UpdatedAt:     e.UpdatedAt(),
	}
}

func (r *DispatchOutboxRepository) toEntity(m *models.DispatchOutboxModel) (*dispatch.OutboxEntry, error) {
	e, err := dispatch.ReconstructOutboxEntry(
		m.ID,
		m.JobSID,
		[]byte(m.Payload),
		m.Attempts,
		m.NextAttemptAt,
		dispatch.OutboxStatus(m.Status),
		m.LastError,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to map outbox entry: %w", err)
	}
	return e, nil
}
