package job

import (
	"errors"
	"testing"

	"classnotex/internal/domain/usage"
)

func newPendingJob(t *testing.T) *Job {
	t.Helper()
	j, err := NewJob("acct_1", "sess_1", TypeSummary, usage.CounterSummaryGenerated, 1)
	if err != nil {
		t.Fatalf("NewJob() error = %v", err)
	}
	return j
}

func TestNewJob(t *testing.T) {
	tests := []struct {
		name      string
		accountID string
		sessionID string
		jobType   Type
		amount    float64
		wantErr   bool
	}{
		{"valid", "acct_1", "sess_1", TypeTranscribe, 300, false},
		{"empty account", "", "sess_1", TypeSummary, 1, true},
		{"empty session", "acct_1", "", TypeSummary, 1, true},
		{"invalid type", "acct_1", "sess_1", Type("mixtape"), 1, true},
		{"negative amount", "acct_1", "sess_1", TypeSummary, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, err := NewJob(tt.accountID, tt.sessionID, tt.jobType, tt.jobType.BillingCounter(), tt.amount)
			if tt.wantErr {
				if err == nil {
					t.Errorf("NewJob() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewJob() unexpected error = %v", err)
			}
			if j.Status() != StatusPending {
				t.Errorf("status = %s, want pending", j.Status())
			}
			if j.SID() == "" {
				t.Errorf("SID should be generated")
			}
			if j.Attempts() != 0 {
				t.Errorf("attempts = %d, want 0", j.Attempts())
			}
		})
	}
}

func TestBillingCounter(t *testing.T) {
	tests := []struct {
		jobType Type
		want    usage.Counter
	}{
		{TypeTranscribe, usage.CounterCloudSTTSeconds},
		{TypeSummary, usage.CounterSummaryGenerated},
		{TypeQuiz, usage.CounterQuizGenerated},
		{TypePlaylist, usage.CounterLLMCalls},
		{TypeExplain, usage.CounterLLMCalls},
		{TypeHighlights, usage.CounterLLMCalls},
		{TypeTranslate, usage.CounterLLMCalls},
		{TypeQA, usage.CounterLLMCalls},
	}
	for _, tt := range tests {
		if got := tt.jobType.BillingCounter(); got != tt.want {
			t.Errorf("BillingCounter(%s) = %s, want %s", tt.jobType, got, tt.want)
		}
	}
}

func TestJobLifecycle(t *testing.T) {
	j := newPendingJob(t)

	if err := j.MarkRunning("handoff-1"); err != nil {
		t.Fatalf("MarkRunning() error = %v", err)
	}
	if j.Status() != StatusRunning {
		t.Errorf("status = %s, want running", j.Status())
	}
	if j.Attempts() != 1 {
		t.Errorf("attempts = %d, want 1", j.Attempts())
	}
	if j.StartedAt() == nil {
		t.Errorf("startedAt should be set")
	}

	if err := j.MarkCompleted("art_123"); err != nil {
		t.Fatalf("MarkCompleted() error = %v", err)
	}
	if j.Status() != StatusCompleted {
		t.Errorf("status = %s, want completed", j.Status())
	}
	if j.ArtifactSID() != "art_123" {
		t.Errorf("artifactSID = %s, want art_123", j.ArtifactSID())
	}
	if j.Progress() != 1 {
		t.Errorf("progress = %v, want 1", j.Progress())
	}
	if j.FinishedAt() == nil {
		t.Errorf("finishedAt should be set")
	}
}

func TestTerminalStatesAbsorb(t *testing.T) {
	j := newPendingJob(t)
	if err := j.MarkRunning("h1"); err != nil {
		t.Fatalf("MarkRunning() error = %v", err)
	}
	if err := j.MarkCompleted("art_1"); err != nil {
		t.Fatalf("MarkCompleted() error = %v", err)
	}

	// Every mutation on a terminal job reports ErrAlreadyTerminal.
	if err := j.MarkFailed("late failure"); !errors.Is(err, ErrAlreadyTerminal) {
		t.Errorf("MarkFailed() error = %v, want ErrAlreadyTerminal", err)
	}
	if err := j.MarkCompleted("art_2"); !errors.Is(err, ErrAlreadyTerminal) {
		t.Errorf("MarkCompleted() error = %v, want ErrAlreadyTerminal", err)
	}
	if err := j.SetProgress(0.5); !errors.Is(err, ErrAlreadyTerminal) {
		t.Errorf("SetProgress() error = %v, want ErrAlreadyTerminal", err)
	}
	if j.ArtifactSID() != "art_1" {
		t.Errorf("terminal outcome mutated: artifactSID = %s", j.ArtifactSID())
	}
}

func TestMarkCompletedRequiresRunning(t *testing.T) {
	j := newPendingJob(t)

	err := j.MarkCompleted("art_1")
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("MarkCompleted() from pending error = %v, want InvalidTransitionError", err)
	}
	if invalid.From != StatusPending {
		t.Errorf("From = %s, want pending", invalid.From)
	}
}

func TestMarkFailedFromPending(t *testing.T) {
	// Dispatch exhaustion fails a job that never started running.
	j := newPendingJob(t)
	if err := j.MarkFailed("dispatch attempts exhausted"); err != nil {
		t.Fatalf("MarkFailed() error = %v", err)
	}
	if j.Status() != StatusFailed {
		t.Errorf("status = %s, want failed", j.Status())
	}
	if j.ErrorReason() == "" {
		t.Errorf("errorReason should be recorded")
	}
}

func TestMarkRetrying(t *testing.T) {
	j := newPendingJob(t)
	if err := j.MarkRunning("h1"); err != nil {
		t.Fatalf("MarkRunning() error = %v", err)
	}
	if err := j.MarkRetrying("worker crashed"); err != nil {
		t.Fatalf("MarkRetrying() error = %v", err)
	}
	if j.Status() != StatusPending {
		t.Errorf("status = %s, want pending", j.Status())
	}

	// A second attempt increments the counter.
	if err := j.MarkRunning("h2"); err != nil {
		t.Fatalf("MarkRunning() error = %v", err)
	}
	if j.Attempts() != 2 {
		t.Errorf("attempts = %d, want 2", j.Attempts())
	}
	if j.HandoffID() != "h2" {
		t.Errorf("handoffID = %s, want h2", j.HandoffID())
	}
}
