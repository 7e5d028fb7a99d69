package account

import "testing"

func TestNormalizePlan(t *testing.T) {
	tests := []struct {
		raw  string
		want Plan
	}{
		{"premium", PlanPremium},
		{"pro", PlanPremium},
		{"basic", PlanBasic},
		{"standard", PlanBasic},
		{"free", PlanFree},
		{"", PlanFree},
		{"enterprise", PlanFree},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := NormalizePlan(tt.raw); got != tt.want {
				t.Errorf("NormalizePlan(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestMaxPlan(t *testing.T) {
	tests := []struct {
		name  string
		plans []Plan
		want  Plan
	}{
		{"empty", nil, PlanFree},
		{"single free", []Plan{PlanFree}, PlanFree},
		{"basic beats free", []Plan{PlanFree, PlanBasic}, PlanBasic},
		{"premium beats all", []Plan{PlanBasic, PlanPremium, PlanFree}, PlanPremium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaxPlan(tt.plans); got != tt.want {
				t.Errorf("MaxPlan(%v) = %v, want %v", tt.plans, got, tt.want)
			}
		})
	}
}
