package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"classnotex/internal/domain/job"
	"classnotex/internal/domain/usage"
	"classnotex/internal/infrastructure/persistence/models"
	"classnotex/internal/shared/db"
)

// JobRepository implements job.Repository over the jobs table. Status moves
// are conditional UPDATEs guarded by the caller's observed prior status, so
// concurrent writers (callback vs sweeper vs dispatcher) linearize through
// the database.
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a job repository.
func NewJobRepository(gdb *gorm.DB) job.Repository {
	return &JobRepository{db: gdb}
}

func (r *JobRepository) Create(ctx context.Context, j *job.Job) error {
	model := r.toModel(j)
	txDB := db.GetTxFromContext(ctx, r.db)
	if err := txDB.Create(model).Error; err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	if err := j.SetDBID(model.ID); err != nil {
		return fmt.Errorf("failed to set job ID: %w", err)
	}
	return nil
}

func (r *JobRepository) GetBySID(ctx context.Context, sid string) (*job.Job, error) {
	var model models.JobModel
	txDB := db.GetTxFromContext(ctx, r.db)
	err := txDB.Where("sid = ?", sid).First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, job.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job by SID: %w", err)
	}
	return r.toEntity(&model)
}

func (r *JobRepository) GetByIdempotencyKey(ctx context.Context, accountID, key string) (*job.Job, error) {
	var model models.JobModel
	txDB := db.GetTxFromContext(ctx, r.db)
	err := txDB.Where("account_id = ? AND idempotency_key = ?", accountID, key).First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, job.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job by idempotency key: %w", err)
	}
	return r.toEntity(&model)
}

func (r *JobRepository) ListBySession(ctx context.Context, sessionID string) ([]*job.Job, error) {
	var jobModels []models.JobModel
	txDB := db.GetTxFromContext(ctx, r.db)
	err := txDB.Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Find(&jobModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs by session: %w", err)
	}

	jobs := make([]*job.Job, 0, len(jobModels))
	for i := range jobModels {
		j, err := r.toEntity(&jobModels[i])
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

func (r *JobRepository) FindNonTerminalBySessionAndType(ctx context.Context, sessionID string, jobType job.Type) (*job.Job, error) {
	var model models.JobModel
	txDB := db.GetTxFromContext(ctx, r.db)
	err := txDB.Where("session_id = ? AND job_type = ? AND status IN ?",
		sessionID, jobType.String(),
		[]string{job.StatusPending.String(), job.StatusRunning.String()}).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, job.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to find non-terminal job: %w", err)
	}
	return r.toEntity(&model)
}

// UpdateStatus persists the entity's state with a guard on the stored
// status. Zero rows affected means another writer moved the job first.
func (r *JobRepository) UpdateStatus(ctx context.Context, j *job.Job, prior job.Status) error {
	txDB := db.GetTxFromContext(ctx, r.db)
	result := txDB.Model(&models.JobModel{}).
		Where("sid = ? AND status = ?", j.SID(), prior.String()).
		Updates(map[string]interface{}{
			"status":       j.Status().String(),
			"progress":     j.Progress(),
			"error_reason": j.ErrorReason(),
			"artifact_sid": j.ArtifactSID(),
			"handoff_id":   j.HandoffID(),
			"attempts":     j.Attempts(),
			"started_at":   j.StartedAt(),
			"finished_at":  j.FinishedAt(),
			"updated_at":   j.UpdatedAt(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update job status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return job.ErrStaleTransition
	}
	return nil
}

func (r *JobRepository) UpdateProgress(ctx context.Context, sid string, progress float64) error {
	txDB := db.GetTxFromContext(ctx, r.db)
	result := txDB.Model(&models.JobModel{}).
		Where("sid = ? AND status = ?", sid, job.StatusRunning.String()).
		Updates(map[string]interface{}{
			"progress":   progress,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update job progress: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return job.ErrStaleTransition
	}
	return nil
}

func (r *JobRepository) ListStaleRunning(ctx context.Context, cutoff time.Time, limit int) ([]*job.Job, error) {
	var jobModels []models.JobModel
	txDB := db.GetTxFromContext(ctx, r.db)
	err := txDB.Where("status = ? AND updated_at < ?", job.StatusRunning.String(), cutoff).
		Order("updated_at ASC").
		Limit(limit).
		Find(&jobModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stale running jobs: %w", err)
	}

	jobs := make([]*job.Job, 0, len(jobModels))
	for i := range jobModels {
		j, err := r.toEntity(&jobModels[i])
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

func (r *JobRepository) toModel(j *job.Job) *models.JobModel {
	return &models.JobModel{
		ID:              j.DBID(),
		SID:             j.SID(),
		AccountID:       j.AccountID(),
		SessionID:       j.SessionID(),
		JobType:         j.JobType().String(),
		Status:          j.Status().String(),
		IdempotencyKey:  j.IdempotencyKey(),
		Progress:        j.Progress(),
		ErrorReason:     j.ErrorReason(),
		ArtifactSID:     j.ArtifactSID(),
		HandoffID:       j.HandoffID(),
		Attempts:        j.Attempts(),
		ReservedCounter: j.ReservedCounter().String(),
		ReservedAmount:  j.ReservedAmount(),
		CreatedAt:       j.CreatedAt(),
		StartedAt:       j.StartedAt(),
		FinishedAt:      j.FinishedAt(),
		UpdatedAt:       j.UpdatedAt(),
	}
}

func (r *JobRepository) toEntity(m *models.JobModel) (*job.Job, error) {
	j, err := job.ReconstructJob(
		m.ID,
		m.SID,
		m.AccountID,
		m.SessionID,
		job.Type(m.JobType),
		job.Status(m.Status),
		m.IdempotencyKey,
		m.Progress,
		m.ErrorReason,
		m.ArtifactSID,
		m.HandoffID,
		m.Attempts,
		usage.Counter(m.ReservedCounter),
		m.ReservedAmount,
		m.CreatedAt,
		m.StartedAt,
		m.FinishedAt,
		m.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to map job: %w", err)
	}
	return j, nil
}
