package usecases

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"classnotex/internal/domain/account"
	"classnotex/internal/domain/quota"
	"classnotex/internal/domain/usage"
	"classnotex/internal/infrastructure/persistence/models"
	"classnotex/internal/infrastructure/repository"
	"classnotex/internal/shared/biztime"
	"classnotex/internal/shared/logger"
)

func setupLedger(t *testing.T) usage.Ledger {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, gdb.AutoMigrate(&models.UsageCounterModel{}))

	return repository.NewUsageLedgerRepository(gdb, quota.NewPolicy(nil))
}

func TestGetUsageReportsLimits(t *testing.T) {
	ledger := setupLedger(t)
	policy := quota.NewPolicy(nil)
	ctx := context.Background()
	monthKey := biztime.CurrentMonthKey()

	// Book two summaries.
	for i := 0; i < 2; i++ {
		res, err := ledger.Reserve(ctx, "acct_1", account.PlanFree, monthKey, usage.CounterSummaryGenerated, 1)
		require.NoError(t, err)
		require.NoError(t, ledger.Commit(ctx, res, 1))
	}

	uc := NewGetUsageUseCase(ledger, policy, nil, logger.NewLogger())
	report, err := uc.Execute(ctx, "acct_1", "free")
	require.NoError(t, err)

	assert.Equal(t, monthKey, report.MonthKey)
	assert.Equal(t, "free", report.Plan)

	summary := report.Counters[usage.CounterSummaryGenerated.String()]
	require.NotNil(t, summary)
	assert.Equal(t, 2.0, summary.Used)
	assert.Equal(t, 3.0, summary.Ceiling)
	assert.Equal(t, quota.LimitIDSummary, summary.LimitID)
	assert.Equal(t, string(quota.ModeHard), summary.Mode)

	// Counters with no ceiling on the plan still appear, without limit info.
	llm := report.Counters[usage.CounterLLMCalls.String()]
	require.NotNil(t, llm)
	assert.Equal(t, 0.0, llm.Used)
	assert.Empty(t, llm.LimitID)
}

func TestGetUsagePremiumPooledLimitID(t *testing.T) {
	ledger := setupLedger(t)
	policy := quota.NewPolicy(nil)
	ctx := context.Background()

	uc := NewGetUsageUseCase(ledger, policy, nil, logger.NewLogger())
	report, err := uc.Execute(ctx, "acct_p", "premium")
	require.NoError(t, err)

	// Premium bills summaries against the pooled LLM budget, and the
	// report says so.
	summary := report.Counters[usage.CounterSummaryGenerated.String()]
	require.NotNil(t, summary)
	assert.Equal(t, quota.LimitIDLLMCalls, summary.LimitID)
	assert.Equal(t, 1000.0, summary.Ceiling)
}

func TestRecordServerSessionHardCeiling(t *testing.T) {
	ledger := setupLedger(t)
	ctx := context.Background()

	uc := NewRecordServerSessionUseCase(ledger, logger.NewLogger())

	// The free plan allows five realtime sessions per month.
	for i := 0; i < 5; i++ {
		require.NoError(t, uc.Execute(ctx, "acct_free", "free"))
	}

	err := uc.Execute(ctx, "acct_free", "free")
	require.Error(t, err)

	var denied *quota.DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, quota.LimitIDServerSession, denied.LimitID)
}

func TestRecordServerSessionSoftCeilingRecordsOverage(t *testing.T) {
	ledger := setupLedger(t)
	ctx := context.Background()
	monthKey := biztime.CurrentMonthKey()

	// Put the account at its soft ceiling.
	res, err := ledger.Reserve(ctx, "acct_b", account.PlanBasic, monthKey, usage.CounterServerSession, 300)
	require.NoError(t, err)
	require.NoError(t, ledger.Commit(ctx, res, 300))

	// Soft mode never denies; the overage is recorded for later review.
	uc := NewRecordServerSessionUseCase(ledger, logger.NewLogger())
	require.NoError(t, uc.Execute(ctx, "acct_b", "basic"))

	snap, err := ledger.Snapshot(ctx, "acct_b", monthKey)
	require.NoError(t, err)
	assert.Equal(t, 301.0, snap.Get(usage.CounterServerSession))
}
