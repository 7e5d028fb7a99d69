package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"classnotex/internal/domain/artifact"
	"classnotex/internal/infrastructure/persistence/models"
	"classnotex/internal/shared/db"
)

// ArtifactRepository implements artifact.Repository. Upsert relies on the
// unique (session_id, artifact_type) index so regeneration replaces the
// previous version in place.
type ArtifactRepository struct {
	db *gorm.DB
}

// NewArtifactRepository creates an artifact repository.
func NewArtifactRepository(gdb *gorm.DB) artifact.Repository {
	return &ArtifactRepository{db: gdb}
}

func (r *ArtifactRepository) Upsert(ctx context.Context, a *artifact.Artifact) error {
	model := r.toModel(a)
	txDB := db.GetTxFromContext(ctx, r.db)
	err := txDB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}, {Name: "artifact_type"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"language", "content", "version", "job_sid", "updated_at",
		}),
	}).Create(model).Error
	if err != nil {
		return fmt.Errorf("failed to upsert artifact: %w", err)
	}
	return nil
}

func (r *ArtifactRepository) GetBySID(ctx context.Context, sid string) (*artifact.Artifact, error) {
	var model models.ArtifactModel
	txDB := db.GetTxFromContext(ctx, r.db)
	err := txDB.Where("sid = ?", sid).First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, artifact.ErrArtifactNotFound
		}
		return nil, fmt.Errorf("failed to get artifact by SID: %w", err)
	}
	return r.toEntity(&model)
}

func (r *ArtifactRepository) GetBySessionAndType(ctx context.Context, sessionID string, artType artifact.Type) (*artifact.Artifact, error) {
	var model models.ArtifactModel
	txDB := db.GetTxFromContext(ctx, r.db)
	err := txDB.Where("session_id = ? AND artifact_type = ?", sessionID, artType.String()).First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, artifact.ErrArtifactNotFound
		}
		return nil, fmt.Errorf("failed to get artifact by session and type: %w", err)
	}
	return r.toEntity(&model)
}

func (r *ArtifactRepository) ListBySession(ctx context.Context, sessionID string) ([]*artifact.Artifact, error) {
	var artifactModels []models.ArtifactModel
	txDB := db.GetTxFromContext(ctx, r.db)
	err := txDB.Where("session_id = ?", sessionID).
		Order("artifact_type ASC").
		Find(&artifactModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts by session: %w", err)
	}

	artifacts := make([]*artifact.Artifact, 0, len(artifactModels))
	for i := range artifactModels {
		a, err := r.toEntity(&artifactModels[i])
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, nil
}

func (r *ArtifactRepository) toModel(a *artifact.Artifact) *models.ArtifactModel {
	return &models.ArtifactModel{
		ID:           a.DBID(),
		SID:          a.SID(),
		AccountID:    a.AccountID(),
		SessionID:    a.SessionID(),
		ArtifactType: a.ArtifactType().String(),
		Language:     a.Language(),
		Content:      a.Content(),
		Version:      a.Version(),
		JobSID:       a.JobSID(),
		CreatedAt:    a.CreatedAt(),
		UpdatedAt:    a.UpdatedAt(),
	}
}

func (r *ArtifactRepository) toEntity(m *models.ArtifactModel) (*artifact.Artifact, error) {
	a, err := artifact.ReconstructArtifact(
		m.ID,
		m.SID,
		m.AccountID,
		m.SessionID,
		artifact.Type(m.ArtifactType),
		m.Language,
		m.Content,
		m.Version,
		m.JobSID,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to map artifact: %w", err)
	}
	return a, nil
}
