package usecases

import (
	"context"
	"fmt"
	"time"

	"classnotex/internal/domain/job"
)

// JobView is the read model returned to clients polling job state.
type JobView struct {
	JobSID      string     `json:"job_id"`
	SessionID   string     `json:"session_id"`
	JobType     string     `json:"job_type"`
	Status      string     `json:"status"`
	Progress    float64    `json:"progress"`
	ErrorReason string     `json:"error_reason,omitempty"`
	ArtifactSID string     `json:"artifact_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// GetJobUseCase reads one job, scoped to its owning account.
type GetJobUseCase struct {
	jobRepo job.Repository
}

func NewGetJobUseCase(jobRepo job.Repository) *GetJobUseCase {
	return &GetJobUseCase{jobRepo: jobRepo}
}

func (uc *GetJobUseCase) Execute(ctx context.Context, accountID, jobSID string) (*JobView, error) {
	j, err := uc.jobRepo.GetBySID(ctx, jobSID)
	if err != nil {
		return nil, err
	}
	// Ownership is enforced here, not in the handler, so every caller path
	// gets the same not-found answer for foreign jobs.
	if j.AccountID() != accountID {
		return nil, job.ErrJobNotFound
	}
	return toJobView(j), nil
}

// ListSessionJobsUseCase reads the jobs of one session.
type ListSessionJobsUseCase struct {
	jobRepo job.Repository
}

func NewListSessionJobsUseCase(jobRepo job.Repository) *ListSessionJobsUseCase {
	return &ListSessionJobsUseCase{jobRepo: jobRepo}
}

func (uc *ListSessionJobsUseCase) Execute(ctx context.Context, accountID, sessionID string) ([]*JobView, error) {
	jobs, err := uc.jobRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list session jobs: %w", err)
	}
	views := make([]*JobView, 0, len(jobs))
	for _, j := range jobs {
		if j.AccountID() != accountID {
			continue
		}
		views = append(views, toJobView(j))
	}
	return views, nil
}

func toJobView(j *job.Job) *JobView {
	return &JobView{
		JobSID:      j.SID(),
		SessionID:   j.SessionID(),
		JobType:     j.JobType().String(),
		Status:      j.Status().String(),
		Progress:    j.Progress(),
		ErrorReason: j.ErrorReason(),
		ArtifactSID: j.ArtifactSID(),
		CreatedAt:   j.CreatedAt(),
		StartedAt:   j.StartedAt(),
		FinishedAt:  j.FinishedAt(),
	}
}
