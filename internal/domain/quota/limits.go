// Package quota holds the pure admission policy: the per-plan limit table
// and the decision function over a usage snapshot. It has no storage
// dependencies and is evaluated by the ledger under a counter row lock.
package quota

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"classnotex/internal/domain/account"
	"classnotex/internal/domain/usage"
)

// Mode is the enforcement mode of a limit.
type Mode string

const (
	// ModeHard blocks further usage once the ceiling is reached.
	ModeHard Mode = "hard"
	// ModeSoft records usage past the ceiling; overage is handled by
	// later cleanup, never by denial.
	ModeSoft Mode = "soft"
)

// Limit is one ceiling in the per-plan table.
type Limit struct {
	Ceiling float64 `yaml:"ceiling"`
	Mode    Mode    `yaml:"mode"`
}

// LimitTable maps plan -> counter -> limit. Immutable at runtime.
type LimitTable map[account.Plan]map[usage.Counter]Limit

// Limit identifiers surfaced to clients on denial. Clients branch on these,
// so they are part of the contract.
const (
	LimitIDSummary       = "summary_limit"
	LimitIDQuiz          = "quiz_limit"
	LimitIDCloudMinutes  = "cloud_minutes_limit"
	LimitIDCloudSession  = "cloud_session_limit"
	LimitIDLLMCalls      = "llm_calls_limit"
	LimitIDServerSession = "server_session_limit"
)

// limitIDs maps counters 1:1 to user-facing limit identifiers.
var limitIDs = map[usage.Counter]string{
	usage.CounterSummaryGenerated:     LimitIDSummary,
	usage.CounterQuizGenerated:        LimitIDQuiz,
	usage.CounterCloudSTTSeconds:      LimitIDCloudMinutes,
	usage.CounterCloudSessionsStarted: LimitIDCloudSession,
	usage.CounterLLMCalls:             LimitIDLLMCalls,
	usage.CounterServerSession:        LimitIDServerSession,
}

// LimitIDFor returns the user-facing limit identifier for a counter.
func LimitIDFor(c usage.Counter) string {
	return limitIDs[c]
}

// DefaultLimitTable returns the built-in production limit table.
func DefaultLimitTable() LimitTable {
	return LimitTable{
		account.PlanFree: {
			usage.CounterCloudSTTSeconds:      {Ceiling: 1800, Mode: ModeHard}, // 30 min
			usage.CounterCloudSessionsStarted: {Ceiling: 10, Mode: ModeHard},
			usage.CounterSummaryGenerated:     {Ceiling: 3, Mode: ModeHard},
			usage.CounterQuizGenerated:        {Ceiling: 3, Mode: ModeHard},
			usage.CounterServerSession:        {Ceiling: 5, Mode: ModeHard},
		},
		account.PlanBasic: {
			usage.CounterCloudSTTSeconds:      {Ceiling: 7200, Mode: ModeHard}, // 120 min
			usage.CounterCloudSessionsStarted: {Ceiling: 100, Mode: ModeHard},
			usage.CounterSummaryGenerated:     {Ceiling: 100, Mode: ModeHard},
			usage.CounterQuizGenerated:        {Ceiling: 100, Mode: ModeHard},
			usage.CounterLLMCalls:             {Ceiling: 200, Mode: ModeHard},
			usage.CounterServerSession:        {Ceiling: 300, Mode: ModeSoft},
		},
		account.PlanPremium: {
			usage.CounterCloudSTTSeconds:      {Ceiling: 7200, Mode: ModeHard},
			usage.CounterLLMCalls:             {Ceiling: 1000, Mode: ModeHard},
			usage.CounterServerSession:        {Ceiling: 300, Mode: ModeSoft},
		},
	}
}

// yamlLimitFile is the on-disk override format:
//
//	plans:
//	  free:
//	    summary_generated: {ceiling: 3, mode: hard}
type yamlLimitFile struct {
	Plans map[string]map[string]Limit `yaml:"plans"`
}

// ParseLimitTable parses a YAML limit table override. Plans and counters not
// present fall back to the defaults; callers should merge with
// DefaultLimitTable via MergeLimitTable.
func ParseLimitTable(data []byte) (LimitTable, error) {
	var file yamlLimitFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse limit table: %w", err)
	}

	table := LimitTable{}
	for planName, counters := range file.Plans {
		plan := account.NormalizePlan(planName)
		if table[plan] == nil {
			table[plan] = map[usage.Counter]Limit{}
		}
		for counterName, limit := range counters {
			counter := usage.Counter(counterName)
			if !counter.IsValid() {
				return nil, fmt.Errorf("unknown counter %q in limit table", counterName)
			}
			if limit.Mode == "" {
				limit.Mode = ModeHard
			}
			if limit.Mode != ModeHard && limit.Mode != ModeSoft {
				return nil, fmt.Errorf("unknown enforcement mode %q for %s.%s", limit.Mode, planName, counterName)
			}
			table[plan][counter] = limit
		}
	}
	return table, nil
}

// MergeLimitTable overlays overrides on top of base and returns a new table.
func MergeLimitTable(base, overrides LimitTable) LimitTable {
	merged := LimitTable{}
	for plan, counters := range base {
		merged[plan] = map[usage.Counter]Limit{}
		for c, l := range counters {
			merged[plan][c] = l
		}
	}
	for plan, counters := range overrides {
		if merged[plan] == nil {
			merged[plan] = map[usage.Counter]Limit{}
		}
		for c, l := range counters {
			merged[plan][c] = l
		}
	}
	return merged
}
