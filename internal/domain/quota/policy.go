package quota

import (
	"fmt"

	"classnotex/internal/domain/account"
	"classnotex/internal/domain/usage"
)

// DeniedError reports a quota denial. LimitID is the user-facing identifier
// clients branch on for upsell/blocked states; it is never retried.
type DeniedError struct {
	LimitID string
	Plan    account.Plan
	Ceiling float64
	Used    float64
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("quota denied (%s): plan=%s used=%.0f ceiling=%.0f", e.LimitID, e.Plan, e.Used, e.Ceiling)
}

// Decision is the outcome of a policy evaluation.
type Decision struct {
	Allowed bool
	// Counter the usage is booked against after plan-specific pooling.
	Counter usage.Counter
	LimitID string
	Ceiling float64
	Mode    Mode
}

// Policy is the stateless admission policy over a LimitTable.
type Policy struct {
	table LimitTable
}

// NewPolicy creates a policy over the given limit table.
func NewPolicy(table LimitTable) *Policy {
	if table == nil {
		table = DefaultLimitTable()
	}
	return &Policy{table: table}
}

// EffectiveCounter resolves plan-specific pooling: on premium, the
// per-feature generation counters draw from the combined llm_calls ceiling.
func (p *Policy) EffectiveCounter(plan account.Plan, c usage.Counter) usage.Counter {
	if plan == account.PlanPremium {
		switch c {
		case usage.CounterSummaryGenerated, usage.CounterQuizGenerated:
			return usage.CounterLLMCalls
		}
	}
	return c
}

// Limit returns the ceiling and enforcement mode for (plan, counter), after
// pooling. The second return is false when the plan has no limit configured
// for the counter.
func (p *Policy) Limit(plan account.Plan, c usage.Counter) (Limit, bool) {
	counters, ok := p.table[plan]
	if !ok {
		return Limit{}, false
	}
	limit, ok := counters[p.EffectiveCounter(plan, c)]
	return limit, ok
}

// Evaluate decides whether consuming amount of counter is allowed given the
// current snapshot. Free-plan requests against the pooled llm_calls counter
// fail closed: free features must be checked under their specific counter.
func (p *Policy) Evaluate(plan account.Plan, c usage.Counter, snapshot *usage.CounterSet, amount float64) Decision {
	effective := p.EffectiveCounter(plan, c)

	limit, ok := p.Limit(plan, c)
	if !ok {
		if plan == account.PlanFree && effective == usage.CounterLLMCalls {
			return Decision{
				Allowed: false,
				Counter: effective,
				LimitID: LimitIDFor(effective),
			}
		}
		// No configured ceiling means unmetered for this plan.
		return Decision{Allowed: true, Counter: effective}
	}

	decision := Decision{
		Allowed: true,
		Counter: effective,
		LimitID: LimitIDFor(effective),
		Ceiling: limit.Ceiling,
		Mode:    limit.Mode,
	}

	if limit.Mode == ModeSoft {
		// Soft ceilings never deny; overage is reconciled by cleanup.
		return decision
	}

	var used float64
	if snapshot != nil {
		used = snapshot.Get(effective)
	}
	if used+amount > limit.Ceiling {
		decision.Allowed = false
	}
	return decision
}

// Denied builds the DeniedError for a failed decision.
func (p *Policy) Denied(plan account.Plan, d Decision, snapshot *usage.CounterSet) *DeniedError {
	var used float64
	if snapshot != nil {
		used = snapshot.Get(d.Counter)
	}
	return &DeniedError{
		LimitID: d.LimitID,
		Plan:    plan,
		Ceiling: d.Ceiling,
		Used:    used,
	}
}
