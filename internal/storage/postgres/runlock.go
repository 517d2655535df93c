package postgres

import (
	"context"
	"database/sql/driver"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// RunLock is a session-level advisory lock held on a dedicated connection.
type RunLock struct {
	db  *sqlx.DB
	key int64
}

func NewRunLock(db *sqlx.DB, key int64) *RunLock {
	return &RunLock{db: db, key: key}
}

// TryLock reports false without blocking when another session holds the lock.
// The returned release func must be called once the run is over.
func (l *RunLock) TryLock(ctx context.Context) (func(), bool, error) {
	conn, err := l.db.Connx(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRowxContext(ctx, `SELECT pg_try_advisory_lock($1)`, l.key).Scan(&acquired); err != nil {
		_ = conn.Close()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		_ = conn.Close()
		return nil, false, nil
	}

	release := func() {
		_, err := conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, l.key)
		if err != nil {
			// drop the session so the lock cannot leak back into the pool
			_ = conn.Raw(func(interface{}) error { return driver.ErrBadConn })
		}
		_ = conn.Close()
	}
	return release, true, nil
}
