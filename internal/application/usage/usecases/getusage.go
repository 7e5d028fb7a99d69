// Package usecases implements the usage reporting flows.
package usecases

import (
	"context"

	"classnotex/internal/domain/account"
	"classnotex/internal/domain/quota"
	"classnotex/internal/domain/usage"
	"classnotex/internal/infrastructure/cache"
	"classnotex/internal/shared/biztime"
	"classnotex/internal/shared/logger"
)

// LimitView is one line of the usage report: current value against the
// plan's ceiling, if any.
type LimitView struct {
	LimitID string  `json:"limit_id,omitempty"`
	Used    float64 `json:"used"`
	Ceiling float64 `json:"ceiling,omitempty"`
	Mode    string  `json:"mode,omitempty"`
}

// UsageReport is the per-account monthly usage view.
type UsageReport struct {
	MonthKey string                `json:"month"`
	Plan     string                `json:"plan"`
	Counters map[string]*LimitView `json:"counters"`
}

// GetUsageUseCase builds the current month's usage report. Reads go
// through the Redis cache; the counter row stays authoritative.
type GetUsageUseCase struct {
	ledger usage.Ledger
	policy *quota.Policy
	cache  cache.UsageReportCache
	logger logger.Interface
}

func NewGetUsageUseCase(
	ledger usage.Ledger,
	policy *quota.Policy,
	reportCache cache.UsageReportCache,
	logger logger.Interface,
) *GetUsageUseCase {
	return &GetUsageUseCase{
		ledger: ledger,
		policy: policy,
		cache:  reportCache,
		logger: logger,
	}
}

func (uc *GetUsageUseCase) Execute(ctx context.Context, accountID, planName string) (*UsageReport, error) {
	plan := account.NormalizePlan(planName)
	monthKey := biztime.CurrentMonthKey()

	counters, err := uc.loadCounters(ctx, accountID, monthKey)
	if err != nil {
		return nil, err
	}

	report := &UsageReport{
		MonthKey: monthKey,
		Plan:     plan.String(),
		Counters: make(map[string]*LimitView, len(counters)),
	}
	for counter, used := range counters {
		view := &LimitView{Used: used}
		if limit, ok := uc.policy.Limit(plan, counter); ok {
			view.LimitID = quota.LimitIDFor(uc.policy.EffectiveCounter(plan, counter))
			view.Ceiling = limit.Ceiling
			view.Mode = string(limit.Mode)
		}
		report.Counters[counter.String()] = view
	}
	return report, nil
}

func (uc *GetUsageUseCase) loadCounters(ctx context.Context, accountID, monthKey string) (map[usage.Counter]float64, error) {
	if uc.cache != nil {
		cached, err := uc.cache.GetUsage(ctx, accountID, monthKey)
		if err != nil {
			uc.logger.Warnw("usage cache read failed, falling back to ledger",
				"account_id", accountID,
				"error", err,
			)
		} else if cached != nil {
			return cached.Counters, nil
		}
	}

	snapshot, err := uc.ledger.Snapshot(ctx, accountID, monthKey)
	if err != nil {
		return nil, err
	}

	counters := make(map[usage.Counter]float64, len(usage.AllCounters()))
	for _, c := range usage.AllCounters() {
		counters[c] = snapshot.Get(c)
	}

	if uc.cache != nil {
		if err := uc.cache.SetUsage(ctx, accountID, &cache.CachedUsage{MonthKey: monthKey, Counters: counters}); err != nil {
			uc.logger.Warnw("usage cache write failed",
				"account_id", accountID,
				"error", err,
			)
		}
	}
	return counters, nil
}
