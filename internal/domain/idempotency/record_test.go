package idempotency

import (
	"testing"
	"time"
)

func TestNewRecord(t *testing.T) {
	tests := []struct {
		name      string
		accountID string
		key       string
		wantErr   bool
	}{
		{"valid", "acct_1", "key-abc", false},
		{"empty account", "", "key-abc", true},
		{"empty key", "acct_1", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRecord(tt.accountID, tt.key, 0)
			if tt.wantErr {
				if err == nil {
					t.Errorf("NewRecord() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewRecord() unexpected error = %v", err)
			}
			if r.State() != StateInProgress {
				t.Errorf("state = %s, want in_progress", r.State())
			}
			if got := r.ExpiresAt().Sub(r.CreatedAt()); got != DefaultRetention {
				t.Errorf("retention = %v, want %v", got, DefaultRetention)
			}
		})
	}
}

func TestRecordComplete(t *testing.T) {
	r, err := NewRecord("acct_1", "key-abc", time.Hour)
	if err != nil {
		t.Fatalf("NewRecord() error = %v", err)
	}

	if err := r.Complete(""); err == nil {
		t.Errorf("Complete() expected error for empty job SID")
	}
	if err := r.Complete("job_1"); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if r.State() != StateCompleted || r.JobSID() != "job_1" {
		t.Errorf("record = (%s, %s), want (completed, job_1)", r.State(), r.JobSID())
	}
	if err := r.Complete("job_2"); err == nil {
		t.Errorf("Complete() expected error on second completion")
	}
}

func TestRecordDeny(t *testing.T) {
	r, err := NewRecord("acct_1", "key-abc", time.Hour)
	if err != nil {
		t.Fatalf("NewRecord() error = %v", err)
	}

	if err := r.Deny(""); err == nil {
		t.Errorf("Deny() expected error for empty limit ID")
	}
	if err := r.Deny("quiz_limit"); err != nil {
		t.Fatalf("Deny() error = %v", err)
	}
	if r.State() != StateCompleted || r.DenialLimitID() != "quiz_limit" {
		t.Errorf("record = (%s, %s), want (completed, quiz_limit)", r.State(), r.DenialLimitID())
	}
	if r.JobSID() != "" {
		t.Errorf("jobSID = %q, want empty on a denied record", r.JobSID())
	}
	if err := r.Complete("job_1"); err == nil {
		t.Errorf("Complete() expected error after denial")
	}
	if err := r.Deny("summary_limit"); err == nil {
		t.Errorf("Deny() expected error on second denial")
	}
}

func TestRecordIsExpired(t *testing.T) {
	r, err := NewRecord("acct_1", "key-abc", time.Hour)
	if err != nil {
		t.Fatalf("NewRecord() error = %v", err)
	}
	if r.IsExpired(r.CreatedAt().Add(30 * time.Minute)) {
		t.Errorf("record should not be expired inside retention")
	}
	if !r.IsExpired(r.CreatedAt().Add(2 * time.Hour)) {
		t.Errorf("record should be expired past retention")
	}
}
