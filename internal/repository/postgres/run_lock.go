package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"factorsync/internal/domain"
	"factorsync/internal/port"
)

// updateRunLockKey is the advisory lock id shared by every factorsync process.
const updateRunLockKey int64 = 0x666163746f7273

type advisoryRunLock struct {
	db *sqlx.DB
}

// NewRunLock returns a RunLock backed by a session-level advisory lock.
func NewRunLock(db *sqlx.DB) port.RunLock {
	return &advisoryRunLock{db: db}
}

func (l *advisoryRunLock) TryAcquire(ctx context.Context) (func(), error) {
	// Session locks belong to a connection, so the same one must unlock.
	conn, err := l.db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("advisoryRunLock: acquiring connection: %w", err)
	}

	var acquired bool
	if err := conn.GetContext(ctx, &acquired, `SELECT pg_try_advisory_lock($1)`, updateRunLockKey); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("advisoryRunLock: %w", err)
	}
	if !acquired {
		_ = conn.Close()
		return nil, domain.ErrRunInProgress
	}

	return func() {
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, updateRunLockKey)
		_ = conn.Close()
	}, nil
}
