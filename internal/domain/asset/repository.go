package asset

import (
	"context"
	"time"
)

// Repository defines the persistence contract for audio assets.
type Repository interface {
	Create(ctx context.Context, a *AudioAsset) error
	GetBySID(ctx context.Context, sid string) (*AudioAsset, error)
	GetBySession(ctx context.Context, sessionID string) (*AudioAsset, error)
	Update(ctx context.Context, a *AudioAsset) error

	// ListExpired returns non-deleted assets whose retention window passed,
	// for the retention sweeper.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*AudioAsset, error)
}
