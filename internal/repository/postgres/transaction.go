package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"saveandrestore/internal/domain"
	"saveandrestore/internal/domain/repositories"
)

// TransactionManager implements repositories.TransactionManager on pgx
type TransactionManager struct {
	pool *pgxpool.Pool
	opts pgx.TxOptions
}

// NewTransactionManager creates a new transaction manager. Transactions run
// at serializable isolation: structural checks such as the move cycle guard
// read ancestor chains without locking them, and snapshot isolation alone
// would let two concurrent cross-moves commit a detached cycle.
func NewTransactionManager(pool *pgxpool.Pool) repositories.TransactionManager {
	return &TransactionManager{
		pool: pool,
		opts: pgx.TxOptions{IsoLevel: pgx.Serializable},
	}
}

// ExecTx executes a function within a serializable transaction. A
// serialization conflict with a concurrent writer surfaces as
// domain.ErrConflict so callers can retry instead of blocking.
func (tm *TransactionManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	tx, err := tm.pool.BeginTx(ctx, tm.opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	// Defer rollback - safe even if commit succeeds
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// Store transaction in context so repositories can access it
	txCtx := SetTx(ctx, tx)

	if err := fn(txCtx); err != nil {
		if isPgSerializationError(err) {
			return &domain.ConflictError{
				Message: "operation conflicted with a concurrent change, retry",
			}
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if isPgSerializationError(err) {
			return &domain.ConflictError{
				Message: "operation conflicted with a concurrent change, retry",
			}
		}
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
