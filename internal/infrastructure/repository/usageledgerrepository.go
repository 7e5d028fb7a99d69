package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"classnotex/internal/domain/account"
	"classnotex/internal/domain/quota"
	"classnotex/internal/domain/usage"
	"classnotex/internal/infrastructure/persistence/models"
	"classnotex/internal/shared/biztime"
	"classnotex/internal/shared/db"
	apperrors "classnotex/internal/shared/errors"
)

// UsageLedgerRepository implements usage.Ledger over the usage_counters
// table. Reserve locks the counter row FOR UPDATE and evaluates the quota
// policy under the lock, so concurrent reservations serialize and the
// ceiling can never be oversubscribed.
type UsageLedgerRepository struct {
	db     *gorm.DB
	policy *quota.Policy
}

// NewUsageLedgerRepository creates a ledger over the given policy.
func NewUsageLedgerRepository(gdb *gorm.DB, policy *quota.Policy) usage.Ledger {
	return &UsageLedgerRepository{db: gdb, policy: policy}
}

// lockedCounterRow fetches the (account, month) row under FOR UPDATE,
// creating it on first use. SQLite serializes writers at the connection
// level, so the locking clause is only applied on MySQL.
func (r *UsageLedgerRepository) lockedCounterRow(ctx context.Context, accountID, monthKey string) (*gorm.DB, *models.UsageCounterModel, error) {
	txDB := db.GetTxFromContext(ctx, r.db)
	if txDB.Dialector.Name() != "sqlite" {
		txDB = txDB.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var model models.UsageCounterModel
	err := txDB.Where("account_id = ? AND month_key = ?", accountID, monthKey).First(&model).Error
	if err == gorm.ErrRecordNotFound {
		now := biztime.NowUTC()
		fresh := models.UsageCounterModel{
			AccountID: accountID,
			MonthKey:  monthKey,
			CreatedAt: now,
			UpdatedAt: now,
		}
		plain := db.GetTxFromContext(ctx, r.db)
		if createErr := plain.Create(&fresh).Error; createErr != nil {
			if !apperrors.IsDuplicateError(createErr) {
				return nil, nil, fmt.Errorf("failed to create usage counter row: %w", createErr)
			}
			// Lost the insert race; the row now exists, lock it.
			if err = txDB.Where("account_id = ? AND month_key = ?", accountID, monthKey).First(&model).Error; err != nil {
				return nil, nil, fmt.Errorf("failed to lock usage counter row: %w", err)
			}
		} else {
			model = fresh
		}
	} else if err != nil {
		return nil, nil, fmt.Errorf("failed to lock usage counter row: %w", err)
	}
	return db.GetTxFromContext(ctx, r.db), &model, nil
}

// Reserve atomically checks the quota policy and books amount against the
// effective counter. Denials surface as *quota.DeniedError.
func (r *UsageLedgerRepository) Reserve(ctx context.Context, accountID string, plan account.Plan, monthKey string, counter usage.Counter, amount float64) (*usage.Reservation, error) {
	if amount < 0 {
		return nil, fmt.Errorf("reservation amount cannot be negative")
	}

	txDB, model, err := r.lockedCounterRow(ctx, accountID, monthKey)
	if err != nil {
		return nil, err
	}

	snapshot, err := r.toEntity(model)
	if err != nil {
		return nil, err
	}

	decision := r.policy.Evaluate(plan, counter, snapshot, amount)
	if !decision.Allowed {
		return nil, r.policy.Denied(plan, decision, snapshot)
	}

	if err := r.addToColumn(ctx, txDB, model, decision.Counter, amount); err != nil {
		return nil, err
	}

	return &usage.Reservation{
		AccountID: accountID,
		MonthKey:  monthKey,
		Counter:   decision.Counter,
		Amount:    amount,
	}, nil
}

// Commit nets the reservation to the actual measured amount. Metered jobs
// reserve an estimate and settle the difference here; finalAmount below the
// reservation refunds, above it books the overage without a policy check.
func (r *UsageLedgerRepository) Commit(ctx context.Context, res *usage.Reservation, finalAmount float64) error {
	if res == nil {
		return fmt.Errorf("reservation is required")
	}
	if finalAmount < 0 {
		return fmt.Errorf("final amount cannot be negative")
	}

	delta := finalAmount - res.Amount
	if delta == 0 {
		return nil
	}

	txDB, model, err := r.lockedCounterRow(ctx, res.AccountID, res.MonthKey)
	if err != nil {
		return err
	}
	return r.addToColumn(ctx, txDB, model, res.Counter, delta)
}

// Release returns the full reserved amount, used when an admitted job
// ultimately fails.
func (r *UsageLedgerRepository) Release(ctx context.Context, res *usage.Reservation) error {
	return r.Commit(ctx, res, 0)
}

// Snapshot reads the counters without locking. Absent rows read as zero.
func (r *UsageLedgerRepository) Snapshot(ctx context.Context, accountID, monthKey string) (*usage.CounterSet, error) {
	txDB := db.GetTxFromContext(ctx, r.db)

	var model models.UsageCounterModel
	err := txDB.Where("account_id = ? AND month_key = ?", accountID, monthKey).First(&model).Error
	if err == gorm.ErrRecordNotFound {
		return usage.NewCounterSet(accountID, monthKey)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read usage counters: %w", err)
	}
	return r.toEntity(&model)
}

// addToColumn applies a delta to one counter column, clamping at zero so
// refunds can never drive a counter negative.
func (r *UsageLedgerRepository) addToColumn(ctx context.Context, txDB *gorm.DB, model *models.UsageCounterModel, counter usage.Counter, delta float64) error {
	column, ok := counterColumns[counter]
	if !ok {
		return fmt.Errorf("unknown usage counter: %s", counter)
	}

	current := counterValue(model, counter)
	next := current + delta
	if next < 0 {
		next = 0
	}

	err := txDB.Model(&models.UsageCounterModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]interface{}{
			column:       next,
			"updated_at": biztime.NowUTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update usage counter %s: %w", counter, err)
	}
	return nil
}

var counterColumns = map[usage.Counter]string{
	usage.CounterCloudSTTSeconds:      "cloud_stt_seconds",
	usage.CounterCloudSessionsStarted: "cloud_sessions_started",
	usage.CounterSummaryGenerated:     "summary_generated",
	usage.CounterQuizGenerated:        "quiz_generated",
	usage.CounterLLMCalls:             "llm_calls",
	usage.CounterServerSession:        "server_session",
}

func counterValue(m *models.UsageCounterModel, c usage.Counter) float64 {
	switch c {
	case usage.CounterCloudSTTSeconds:
		return m.CloudSTTSeconds
	case usage.CounterCloudSessionsStarted:
		return m.CloudSessionsStarted
	case usage.CounterSummaryGenerated:
		return m.SummaryGenerated
	case usage.CounterQuizGenerated:
		return m.QuizGenerated
	case usage.CounterLLMCalls:
		return m.LLMCalls
	case usage.CounterServerSession:
		return m.ServerSession
	}
	return 0
}

func (r *UsageLedgerRepository) toEntity(m *models.UsageCounterModel) (*usage.CounterSet, error) {
	set, err := usage.ReconstructCounterSet(
		m.ID,
		m.AccountID,
		m.MonthKey,
		m.CloudSTTSeconds,
		m.CloudSessionsStarted,
		m.SummaryGenerated,
		m.QuizGenerated,
		m.LLMCalls,
		m.ServerSession,
		m.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to map usage counters: %w", err)
	}
	return set, nil
}
