// Package usecases implements artifact read flows.
package usecases

import (
	"context"
	"time"

	"classnotex/internal/domain/artifact"
	"classnotex/internal/shared/logger"
	"classnotex/internal/shared/services/markdown"
)

// ArtifactView is the client-facing artifact read model. Content is
// Markdown unless HTML rendering was requested.
type ArtifactView struct {
	ArtifactSID string    `json:"artifact_id"`
	SessionID   string    `json:"session_id"`
	Type        string    `json:"type"`
	Language    string    `json:"language,omitempty"`
	Format      string    `json:"format"`
	Content     string    `json:"content"`
	Version     int       `json:"version"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GetArtifactUseCase reads one artifact by session and type, optionally
// rendering the stored Markdown to sanitized HTML.
type GetArtifactUseCase struct {
	artifactRepo artifact.Repository
	markdown     markdown.MarkdownService
	logger       logger.Interface
}

func NewGetArtifactUseCase(
	artifactRepo artifact.Repository,
	markdownSvc markdown.MarkdownService,
	logger logger.Interface,
) *GetArtifactUseCase {
	return &GetArtifactUseCase{
		artifactRepo: artifactRepo,
		markdown:     markdownSvc,
		logger:       logger,
	}
}

func (uc *GetArtifactUseCase) Execute(ctx context.Context, accountID, sessionID string, artType artifact.Type, asHTML bool) (*ArtifactView, error) {
	if !artType.IsValid() {
		return nil, artifact.ErrArtifactNotFound
	}

	a, err := uc.artifactRepo.GetBySessionAndType(ctx, sessionID, artType)
	if err != nil {
		return nil, err
	}
	if a.AccountID() != accountID {
		return nil, artifact.ErrArtifactNotFound
	}

	view := &ArtifactView{
		ArtifactSID: a.SID(),
		SessionID:   a.SessionID(),
		Type:        a.ArtifactType().String(),
		Language:    a.Language(),
		Format:      "markdown",
		Content:     a.Content(),
		Version:     a.Version(),
		UpdatedAt:   a.UpdatedAt(),
	}

	if asHTML {
		rendered, err := uc.markdown.ToHTMLSanitized(a.Content())
		if err != nil {
			return nil, err
		}
		view.Format = "html"
		view.Content = rendered
	}
	return view, nil
}
