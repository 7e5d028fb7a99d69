// Package db provides transaction management shared by the repositories.
// Admission and completion each run their multi-table writes inside a
// single transaction carried through context.
package db

import (
	"context"

	"gorm.io/gorm"
)

// txContextKey is the context key under which an open transaction travels.
type txContextKey struct{}

// TransactionManager starts transactions and hands them to use cases via
// context so repository calls inside the closure share one transaction.
type TransactionManager struct {
	db *gorm.DB
}

// NewTransactionManager creates a TransactionManager on the given connection.
func NewTransactionManager(db *gorm.DB) *TransactionManager {
	return &TransactionManager{db: db}
}

// RunInTransaction executes fn within a transaction. The transaction is
// rolled back when fn returns an error and committed otherwise. Nested calls
// reuse gorm's savepoint behavior.
func (tm *TransactionManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := context.WithValue(ctx, txContextKey{}, tx)
		return fn(txCtx)
	})
}

// GetTx returns the transaction carried by ctx, or the base connection when
// the caller is not inside RunInTransaction.
func (tm *TransactionManager) GetTx(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok {
		return tx
	}
	return tm.db.WithContext(ctx)
}

// GetTxFromContext is the repository-side accessor: it returns the
// transaction from ctx when present, falling back to defaultDB.
func GetTxFromContext(ctx context.Context, defaultDB *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok {
		return tx
	}
	return defaultDB.WithContext(ctx)
}
