package usage

import (
	"testing"
)

func TestNewCounterSet(t *testing.T) {
	tests := []struct {
		name      string
		accountID string
		monthKey  string
		wantErr   error
	}{
		{"valid", "acct_1", "2026-08", nil},
		{"empty account", "", "2026-08", ErrInvalidAccountID},
		{"empty month", "acct_1", "", ErrInvalidMonthKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := NewCounterSet(tt.accountID, tt.monthKey)
			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Errorf("NewCounterSet() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewCounterSet() unexpected error = %v", err)
			}
			for _, c := range AllCounters() {
				if set.Get(c) != 0 {
					t.Errorf("counter %s = %v, want 0", c, set.Get(c))
				}
			}
			if set.UpdatedAt().IsZero() {
				t.Errorf("updatedAt should be set")
			}
		})
	}
}

func TestCounterSetAdd(t *testing.T) {
	set, err := NewCounterSet("acct_1", "2026-08")
	if err != nil {
		t.Fatalf("NewCounterSet() error = %v", err)
	}

	if err := set.Add(CounterSummaryGenerated, 2); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if got := set.Get(CounterSummaryGenerated); got != 2 {
		t.Errorf("summary_generated = %v, want 2", got)
	}

	// Release semantics: a negative delta returns to the prior value.
	if err := set.Add(CounterSummaryGenerated, -1); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if got := set.Get(CounterSummaryGenerated); got != 1 {
		t.Errorf("summary_generated = %v, want 1", got)
	}

	// Counters never go below zero.
	if err := set.Add(CounterSummaryGenerated, -5); err == nil {
		t.Errorf("Add() expected error for negative result, got nil")
	}

	// Unknown counters are rejected.
	if err := set.Add(Counter("bogus"), 1); err == nil {
		t.Errorf("Add() expected error for invalid counter, got nil")
	}
}

func TestCounterIsValid(t *testing.T) {
	for _, c := range AllCounters() {
		if !c.IsValid() {
			t.Errorf("counter %s should be valid", c)
		}
	}
	if Counter("export_count").IsValid() {
		t.Errorf("unknown counter should be invalid")
	}
}
