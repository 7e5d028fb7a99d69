package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"classnotex/internal/domain/asset"
	"classnotex/internal/infrastructure/persistence/models"
	"classnotex/internal/shared/db"
)

// AudioAssetRepository implements asset.Repository over the audio_assets
// table.
type AudioAssetRepository struct {
	db *gorm.DB
}

// NewAudioAssetRepository creates an audio asset repository.
func NewAudioAssetRepository(gdb *gorm.DB) asset.Repository {
	return &AudioAssetRepository{db: gdb}
}

func (r *AudioAssetRepository) Create(ctx context.Context, a *asset.AudioAsset) error {
	model := r.toModel(a)
	txDB := db.GetTxFromContext(ctx, r.db)
	if err := txDB.Create(model).Error; err != nil {
		return fmt.Errorf("failed to create audio asset: %w", err)
	}
	if err := a.SetDBID(model.ID); err != nil {
		return fmt.Errorf("failed to set asset ID: %w", err)
	}
	return nil
}

func (r *AudioAssetRepository) GetBySID(ctx context.Context, sid string) (*asset.AudioAsset, error) {
	var model models.AudioAssetModel
	txDB := db.GetTxFromContext(ctx, r.db)
	err := txDB.Where("sid = ?", sid).First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, asset.ErrAssetNotFound
		}
		return nil, fmt.Errorf("failed to get audio asset by SID: %w", err)
	}
	return r.toEntity(&model)
}

func (r *AudioAssetRepository) GetBySession(ctx context.Context, sessionID string) (*asset.AudioAsset, error) {
	var model models.AudioAssetModel
	txDB := db.GetTxFromContext(ctx, r.db)
	err := txDB.Where("session_id = ?", sessionID).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, asset.ErrAssetNotFound
		}
		return nil, fmt.Errorf("failed to get audio asset by session: %w", err)
	}
	return r.toEntity(&model)
}

func (r *AudioAssetRepository) Update(ctx context.Context, a *asset.AudioAsset) error {
	txDB := db.GetTxFromContext(ctx, r.db)
	result := txDB.Model(&models.AudioAssetModel{}).
		Where("id = ?", a.DBID()).
		Updates(map[string]interface{}{
			"status":       a.Status().String(),
			"storage_key":  a.StorageKey(),
			"size_bytes":   a.SizeBytes(),
			"duration_sec": a.DurationSec(),
			"updated_at":   a.UpdatedAt(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update audio asset: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return asset.ErrAssetNotFound
	}
	return nil
}

func (r *AudioAssetRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*asset.AudioAsset, error) {
	var assetModels []models.AudioAssetModel
	txDB := db.GetTxFromContext(ctx, r.db)
	err := txDB.Where("expires_at <= ? AND status NOT IN ?", now,
		[]string{asset.StatusDeleted.String(), asset.StatusProcessing.String()}).
		Order("expires_at ASC").
		Limit(limit).
		Find(&assetModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list expired audio assets: %w", err)
	}

	assets := make([]*asset.AudioAsset, 0, len(assetModels))
	for i := range assetModels {
		a, err := r.toEntity(&assetModels[i])
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, nil
}

func (r *AudioAssetRepository) toModel(a *asset.AudioAsset) *models.AudioAssetModel {
	return &models.AudioAssetModel{
		ID:          a.DBID(),
		SID:         a.SID(),
		AccountID:   a.AccountID(),
		SessionID:   a.SessionID(),
		StorageKey:  a.StorageKey(),
		SizeBytes:   a.SizeBytes(),
		DurationSec: a.DurationSec(),
		Status:      a.Status().String(),
		CreatedAt:   a.CreatedAt(),
		ExpiresAt:   a.ExpiresAt(),
		UpdatedAt:   a.UpdatedAt(),
	}
}

func (r *AudioAssetRepository) toEntity(m *models.AudioAssetModel) (*asset.AudioAsset, error) {
	a, err := asset.ReconstructAudioAsset(
		m.ID,
		m.SID,
		m.AccountID,
		m.SessionID,
		m.StorageKey,
		m.SizeBytes,
		m.DurationSec,
		asset.Status(m.Status),
		m.CreatedAt,
		m.ExpiresAt,
		m.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to map audio asset: %w", err)
	}
	return a, nil
}
