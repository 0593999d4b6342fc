package repositories

import "context"

// TxFn is a function that runs within a transaction
type TxFn func(ctx context.Context) error

// TransactionManager handles store transactions. Implementations commit the
// whole function atomically; a commit invalidated by a concurrent writer
// surfaces as domain.ErrConflict rather than blocking.
type TransactionManager interface {
	// ExecTx executes a function within a transaction
	ExecTx(ctx context.Context, fn TxFn) error
}
