// Package account defines the billing identity consumed by the quota engine.
// Plan entitlement is computed by an external billing component; this package
// only normalizes and ranks the plan strings it hands us.
package account

// Plan represents the billing plan of an account.
type Plan string

const (
	PlanFree    Plan = "free"
	PlanBasic   Plan = "basic"
	PlanPremium Plan = "premium"
)

// String returns the string representation of the plan.
func (p Plan) String() string {
	return string(p)
}

// IsValid checks if the plan value is one of the canonical plans.
func (p Plan) IsValid() bool {
	return p == PlanFree || p == PlanBasic || p == PlanPremium
}

// planRank orders plans for MaxPlan resolution.
var planRank = map[Plan]int{
	PlanFree:    0,
	PlanBasic:   1,
	PlanPremium: 2,
}

// NormalizePlan maps legacy plan aliases from the billing provider onto the
// canonical plan set. Unknown values degrade to free.
func NormalizePlan(raw string) Plan {
	switch raw {
	case "premium", "pro":
		return PlanPremium
	case "basic", "standard":
		return PlanBasic
	default:
		return PlanFree
	}
}

// MaxPlan returns the highest-ranked plan from the given list. Accounts that
// aggregate multiple user identities (phone-linked accounts) are entitled to
// the best plan any linked identity holds.
func MaxPlan(plans []Plan) Plan {
	best := PlanFree
	for _, p := range plans {
		if planRank[p] > planRank[best] {
			best = p
		}
	}
	return best
}
