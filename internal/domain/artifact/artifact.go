// Package artifact stores generated outputs (transcripts, summaries,
// quizzes) keyed by session and type. Regeneration replaces the previous
// version in place.
package artifact

import (
	"errors"
	"fmt"
	"time"

	"classnotex/internal/shared/id"
)

// Type enumerates the kinds of generated artifacts.
type Type string

const (
	TypeTranscript Type = "transcript"
	TypeSummary    Type = "summary"
	TypeQuiz       Type = "quiz"
	TypePlaylist   Type = "playlist"
	TypeExplain    Type = "explain"
	TypeHighlights Type = "highlights"
	TypeTranslate  Type = "translate"
	TypeQA         Type = "qa"
)

// String returns the string representation of the artifact type.
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the artifact type is known.
func (t Type) IsValid() bool {
	switch t {
	case TypeTranscript, TypeSummary, TypeQuiz, TypePlaylist,
		TypeExplain, TypeHighlights, TypeTranslate, TypeQA:
		return true
	}
	return false
}

// ErrArtifactNotFound indicates no artifact matched the lookup.
var ErrArtifactNotFound = errors.New("artifact not found")

// Artifact is one generated output. Content is Markdown.
type Artifact struct {
	dbID      uint
	sid       string
	accountID string
	sessionID string
	artType   Type
	language  string
	content   string
	version   int
	jobSID    string
	createdAt time.Time
	updatedAt time.Time
}

// NewArtifact creates the first version of an artifact.
func NewArtifact(accountID, sessionID string, artType Type, language, content, jobSID string) (*Artifact, error) {
	if accountID == "" {
		return nil, fmt.Errorf("account ID is required")
	}
	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}
	if !artType.IsValid() {
		return nil, fmt.Errorf("invalid artifact type: %s", artType)
	}

	sid, err := id.NewArtifactID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate artifact SID: %w", err)
	}

	now := time.Now().UTC()
	return &Artifact{
		sid:       sid,
		accountID: accountID,
		sessionID: sessionID,
		artType:   artType,
		language:  language,
		content:   content,
		version:   1,
		jobSID:    jobSID,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructArtifact reconstructs an artifact from persistence.
func ReconstructArtifact(dbID uint, sid, accountID, sessionID string, artType Type, language, content string, version int, jobSID string, createdAt, updatedAt time.Time) (*Artifact, error) {
	if dbID == 0 {
		return nil, fmt.Errorf("artifact ID cannot be zero")
	}
	if sid == "" {
		return nil, fmt.Errorf("artifact SID is required")
	}
	if !artType.IsValid() {
		return nil, fmt.Errorf("invalid artifact type: %s", artType)
	}
	return &Artifact{
		dbID:      dbID,
		sid:       sid,
		accountID: accountID,
		sessionID: sessionID,
		artType:   artType,
		language:  language,
		content:   content,
		version:   version,
		jobSID:    jobSID,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}, nil
}

// DBID returns the database row ID.
func (a *Artifact) DBID() uint { return a.dbID }

// SID returns the public artifact identifier.
func (a *Artifact) SID() string { return a.sid }

// AccountID returns the owning account.
func (a *Artifact) AccountID() string { return a.accountID }

// SessionID returns the session this artifact belongs to.
func (a *Artifact) SessionID() string { return a.sessionID }

// ArtifactType returns the artifact type.
func (a *Artifact) ArtifactType() Type { return a.artType }

// Language returns the BCP 47 language tag of the content, if any.
func (a *Artifact) Language() string { return a.language }

// Content returns the Markdown content.
func (a *Artifact) Content() string { return a.content }

// Version returns the regeneration counter, starting at 1.
func (a *Artifact) Version() int { return a.version }

// JobSID returns the job that produced the current version.
func (a *Artifact) JobSID() string { return a.jobSID }

// CreatedAt returns when the first version was produced.
func (a *Artifact) CreatedAt() time.Time { return a.createdAt }

// UpdatedAt returns when the current version was produced.
func (a *Artifact) UpdatedAt() time.Time { return a.updatedAt }

// SetDBID sets the database row ID (only for persistence layer use).
func (a *Artifact) SetDBID(dbID uint) error {
	if a.dbID != 0 {
		return fmt.Errorf("artifact ID is already set")
	}
	if dbID == 0 {
		return fmt.Errorf("artifact ID cannot be zero")
	}
	a.dbID = dbID
	return nil
}

// Replace swaps in regenerated content and bumps the version.
func (a *Artifact) Replace(content, language, jobSID string) {
	a.content = content
	a.language = language
	a.jobSID = jobSID
	a.version++
	a.updatedAt = time.Now().UTC()
}
