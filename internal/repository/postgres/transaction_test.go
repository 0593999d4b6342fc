package postgres

import (
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestNewTransactionManager_Serializable(t *testing.T) {
	// Cycle and uniqueness checks read state they do not lock, so anything
	// weaker than serializable lets two concurrent cross-moves commit a
	// detached cycle.
	tm, ok := NewTransactionManager(nil).(*TransactionManager)
	if !ok {
		t.Fatal("NewTransactionManager returned an unexpected type")
	}
	if tm.opts.IsoLevel != pgx.Serializable {
		t.Errorf("isolation level = %q, want %q", tm.opts.IsoLevel, pgx.Serializable)
	}
}
