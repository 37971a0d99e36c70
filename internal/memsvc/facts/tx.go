package facts

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/kittclouds/memsvc/internal/memsvc/errs"
)

// txHandle adapts a single *sql.Conn (held for the lifetime of one
// BEGIN IMMEDIATE... COMMIT/ROLLBACK block) to the small surface the
// Fact Store and Ranked-List application code need.
type txHandle struct {
	conn *sql.Conn
}

func (t *txHandle) exec(ctx context.Context, query string, args...any) (sql.Result, error) {
	return t.conn.ExecContext(ctx, query, args...)
}

func (t *txHandle) queryRow(ctx context.Context, query string, args...any) *sql.Row {
	return t.conn.QueryRowContext(ctx, query, args...)
}

func (t *txHandle) query(ctx context.Context, query string, args...any) (*sql.Rows, error) {
	return t.conn.QueryContext(ctx, query, args...)
}

// retryDelays implements the busy/conflict retry policy: up to 3
// retries with exponential backoff 10, 40, 100 ms.
type retryDelays struct {
	delays []time.Duration
	i      int
}

func newRetryDelays() *retryDelays {
	return &retryDelays{delays: []time.Duration{10 * time.Millisecond, 40 * time.Millisecond, 100 * time.Millisecond}}
}

func (r *retryDelays) NextBackOff() time.Duration {
	if r.i >= len(r.delays) {
		return backoff.Stop
	}
	d := r.delays[r.i]
	r.i++
	return d
}

func (r *retryDelays) Reset() { r.i = 0 }

func isBusyErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "busy") || strings.Contains(msg, "locked")
}

// withImmediateTx acquires an immediate (not deferred) write lock on the
// project database at BEGIN, preventing the TOCTOU between "read max_rank"
// and "insert" that atomic-append and ranked-list mutations depend on
//. Busy
// errors from the BEGIN IMMEDIATE are retried with backoff; all other
// errors from fn roll back the transaction immediately.
func (s *Store) withImmediateTx(ctx context.Context, fn func(ctx context.Context, tx *txHandle) error) error {
	operation := func() error {
		conn, err := s.db.Conn(ctx)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("acquire connection: %w", err))
		}
		defer conn.Close()

		if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
			if isBusyErr(err) {
				return fmt.Errorf("%w: %v", errs.ErrBusy, err)
			}
			return backoff.Permanent(fmt.Errorf("begin immediate: %w", err))
		}

		tx := &txHandle{conn: conn}
		if err := fn(ctx, tx); err != nil {
			_, _ = conn.ExecContext(ctx, "ROLLBACK")
			return backoff.Permanent(err)
		}

		if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
			if isBusyErr(err) {
				return fmt.Errorf("%w: %v", errs.ErrBusy, err)
			}
			return backoff.Permanent(fmt.Errorf("commit: %w", err))
		}
		return nil
	}

	return backoff.Retry(operation, newRetryDelays())
}
