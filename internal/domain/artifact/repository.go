package artifact

import "context"

// Repository defines the persistence contract for artifacts. At most one
// artifact exists per (session, type); Upsert keeps that invariant.
type Repository interface {
	Upsert(ctx context.Context, a *Artifact) error
	GetBySID(ctx context.Context, sid string) (*Artifact, error)
	GetBySessionAndType(ctx context.Context, sessionID string, artType Type) (*Artifact, error)
	ListBySession(ctx context.Context, sessionID string) ([]*Artifact, error)
}
