package migration

import (
	"classnotex/internal/infrastructure/persistence/models"
)

func AutoMigrateModels() []interface{} {
	return []interface{}{
		&models.JobModel{},
		&models.UsageCounterModel{},
		&models.IdempotencyRecordModel{},
		&models.AudioAssetModel{},
		&models.ArtifactModel{},
		&models.DispatchOutboxModel{},
	}
}
