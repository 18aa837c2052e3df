package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"elog/internal/domain/repositories"
)

// TransactionManager implements the TransactionManager interface
type TransactionManager struct {
	pool *pgxpool.Pool
}

// NewTransactionManager creates a new transaction manager
func NewTransactionManager(pool *pgxpool.Pool) repositories.TransactionManager {
	return &TransactionManager{pool: pool}
}

// ExecTx executes a function within a transaction. The transaction is
// stored in the context so repositories pick it up via GetExecutor; any
// error from fn rolls back every statement issued inside it.
func (tm *TransactionManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	// Reentrant: when the caller already runs inside ExecTx, join its
	// transaction instead of starting a second one.
	if tx := repositories.GetTx(ctx); tx != nil {
		return fn(ctx)
	}

	tx, err := tm.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	// Deferred rollback is a no-op after a successful commit.
	defer func() { _ = tx.Rollback(ctx) }()

	txCtx := repositories.SetTx(ctx, tx)
	if err := fn(txCtx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
