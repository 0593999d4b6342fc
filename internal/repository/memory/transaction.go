package memory

import (
	"context"

	"saveandrestore/internal/domain/repositories"
)

type ctxArg = context.Context

// txContextKey is the type for transaction context keys
type txContextKey string

// txKey is the context key for storing transactions
const txKey txContextKey = "memory_tx"

func withTx(ctx context.Context, t *tx) context.Context {
	return context.WithValue(ctx, txKey, t)
}

func txFrom(ctx context.Context) *tx {
	t, ok := ctx.Value(txKey).(*tx)
	if !ok {
		return nil
	}
	return t
}

// TransactionManager implements repositories.TransactionManager on the
// in-memory store.
type TransactionManager struct {
	store *Store
}

// NewTransactionManager creates a new transaction manager
func NewTransactionManager(store *Store) repositories.TransactionManager {
	return &TransactionManager{store: store}
}

// ExecTx executes a function within an optimistic transaction. The function
// sees its own staged writes; commit fails with domain.ErrConflict when a
// concurrent writer touched any record the function observed.
func (tm *TransactionManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	t := tm.store.begin()
	if err := fn(withTx(ctx, t)); err != nil {
		return err
	}
	return t.commit()
}
