package quota

import (
	"testing"

	"classnotex/internal/domain/account"
	"classnotex/internal/domain/usage"
)

func snapshotWith(t *testing.T, c usage.Counter, value float64) *usage.CounterSet {
	t.Helper()
	set, err := usage.NewCounterSet("acct_1", "2026-08")
	if err != nil {
		t.Fatalf("NewCounterSet() error = %v", err)
	}
	if value > 0 {
		if err := set.Add(c, value); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}
	return set
}

func TestEvaluateHardCeiling(t *testing.T) {
	policy := NewPolicy(nil)

	tests := []struct {
		name    string
		plan    account.Plan
		counter usage.Counter
		used    float64
		amount  float64
		allowed bool
		limitID string
	}{
		{"free summary below ceiling", account.PlanFree, usage.CounterSummaryGenerated, 2, 1, true, LimitIDSummary},
		{"free summary at ceiling", account.PlanFree, usage.CounterSummaryGenerated, 3, 1, false, LimitIDSummary},
		{"free quiz at ceiling", account.PlanFree, usage.CounterQuizGenerated, 3, 1, false, LimitIDQuiz},
		{"free stt seconds over", account.PlanFree, usage.CounterCloudSTTSeconds, 1800, 60, false, LimitIDCloudMinutes},
		{"free stt seconds exact fit", account.PlanFree, usage.CounterCloudSTTSeconds, 1500, 300, true, LimitIDCloudMinutes},
		{"basic summary generous", account.PlanBasic, usage.CounterSummaryGenerated, 50, 1, true, LimitIDSummary},
		{"free cloud session at ceiling", account.PlanFree, usage.CounterCloudSessionsStarted, 10, 1, false, LimitIDCloudSession},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := snapshotWith(t, tt.counter, tt.used)
			d := policy.Evaluate(tt.plan, tt.counter, snap, tt.amount)
			if d.Allowed != tt.allowed {
				t.Errorf("Evaluate() allowed = %v, want %v", d.Allowed, tt.allowed)
			}
			if d.LimitID != tt.limitID {
				t.Errorf("Evaluate() limitID = %q, want %q", d.LimitID, tt.limitID)
			}
		})
	}
}

func TestEvaluatePremiumPoolsLLMCalls(t *testing.T) {
	policy := NewPolicy(nil)

	// Premium summary and quiz draw from the shared llm_calls ceiling.
	snap := snapshotWith(t, usage.CounterLLMCalls, 999)

	d := policy.Evaluate(account.PlanPremium, usage.CounterSummaryGenerated, snap, 1)
	if !d.Allowed {
		t.Fatalf("expected last pooled call to be allowed")
	}
	if d.Counter != usage.CounterLLMCalls {
		t.Errorf("effective counter = %s, want %s", d.Counter, usage.CounterLLMCalls)
	}

	snap = snapshotWith(t, usage.CounterLLMCalls, 1000)
	d = policy.Evaluate(account.PlanPremium, usage.CounterQuizGenerated, snap, 1)
	if d.Allowed {
		t.Errorf("expected pooled ceiling to deny")
	}
	if d.LimitID != LimitIDLLMCalls {
		t.Errorf("limitID = %q, want %q", d.LimitID, LimitIDLLMCalls)
	}
}

func TestEvaluateSoftModeNeverDenies(t *testing.T) {
	policy := NewPolicy(nil)

	// Basic server_session is soft: far past the ceiling, still allowed.
	snap := snapshotWith(t, usage.CounterServerSession, 10000)
	d := policy.Evaluate(account.PlanBasic, usage.CounterServerSession, snap, 1)
	if !d.Allowed {
		t.Errorf("soft limit should never deny")
	}
	if d.Mode != ModeSoft {
		t.Errorf("mode = %v, want soft", d.Mode)
	}

	// Free server_session is hard.
	snap = snapshotWith(t, usage.CounterServerSession, 5)
	d = policy.Evaluate(account.PlanFree, usage.CounterServerSession, snap, 1)
	if d.Allowed {
		t.Errorf("free server_session should be a hard ceiling")
	}
}

func TestEvaluateFreeLLMCallsFailsClosed(t *testing.T) {
	policy := NewPolicy(nil)
	snap := snapshotWith(t, usage.CounterLLMCalls, 0)

	d := policy.Evaluate(account.PlanFree, usage.CounterLLMCalls, snap, 1)
	if d.Allowed {
		t.Errorf("free plan llm_calls should fail closed")
	}
	if d.LimitID != LimitIDLLMCalls {
		t.Errorf("limitID = %q, want %q", d.LimitID, LimitIDLLMCalls)
	}
}

func TestParseLimitTable(t *testing.T) {
	data := []byte(`
plans:
  free:
    summary_generated: {ceiling: 5, mode: hard}
  premium:
    server_session: {ceiling: 500, mode: soft}
`)
	overrides, err := ParseLimitTable(data)
	if err != nil {
		t.Fatalf("ParseLimitTable() error = %v", err)
	}

	merged := MergeLimitTable(DefaultLimitTable(), overrides)
	policy := NewPolicy(merged)

	limit, ok := policy.Limit(account.PlanFree, usage.CounterSummaryGenerated)
	if !ok || limit.Ceiling != 5 {
		t.Errorf("free summary ceiling = %v (ok=%v), want 5", limit.Ceiling, ok)
	}
	// Untouched entries survive the merge.
	limit, ok = policy.Limit(account.PlanFree, usage.CounterQuizGenerated)
	if !ok || limit.Ceiling != 3 {
		t.Errorf("free quiz ceiling = %v (ok=%v), want 3", limit.Ceiling, ok)
	}
}

func TestParseLimitTableRejectsUnknowns(t *testing.T) {
	if _, err := ParseLimitTable([]byte("plans:\n  free:\n    bogus_counter: {ceiling: 1}\n")); err == nil {
		t.Errorf("expected error for unknown counter")
	}
	if _, err := ParseLimitTable([]byte("plans:\n  free:\n    summary_generated: {ceiling: 1, mode: squishy}\n")); err == nil {
		t.Errorf("expected error for unknown mode")
	}
}
