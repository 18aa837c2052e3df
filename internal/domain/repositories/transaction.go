package repositories

import "context"

// TxFn is a function that runs within a transaction
type TxFn func(ctx context.Context) error

// TransactionManager handles database transactions. Every mutating entry
// operation runs inside ExecTx so the supersede cascade (target entry, new
// entry, N referencing entries) commits or rolls back as one unit.
type TransactionManager interface {
	// ExecTx executes a function within a transaction
	ExecTx(ctx context.Context, fn TxFn) error
}
