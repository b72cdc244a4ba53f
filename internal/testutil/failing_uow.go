package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/alexanderramin/ludo/internal/db"
)

// FailOnNthExecUoW is a test UoW that injects an error on the Nth ExecContext
// call within a transaction, so rollback tests can fail a commit after the
// payment row is written but before the tree lock or membership update.
//
// ExecContext calls are counted starting at 1. Reads pass through and are not
// counted. Executed statements are kept in Statements for assertions.
type FailOnNthExecUoW struct {
	DB     *sql.DB
	FailOn int32
	Err    error

	mu         sync.Mutex
	Statements []string
}

func (u *FailOnNthExecUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error {
	tx, err := u.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	wrapped := &failOnNthExec{DBTX: tx, failOn: u.FailOn, err: u.Err, record: u.record}
	if fnErr := fn(ctx, wrapped); fnErr != nil {
		_ = tx.Rollback()
		return fnErr
	}
	return tx.Commit()
}

func (u *FailOnNthExecUoW) record(query string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.Statements = append(u.Statements, query)
}

type failOnNthExec struct {
	db.DBTX
	count  atomic.Int32
	failOn int32
	err    error
	record func(string)
}

func (f *failOnNthExec) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	n := f.count.Add(1)
	if n == f.failOn {
		return nil, f.err
	}
	f.record(query)
	return f.DBTX.ExecContext(ctx, query, args...)
}
