package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/stwalsh4118/rowtrack/api/internal/database"
)

// PostgresLocker serializes imports into the same project across server
// instances using session level advisory locks.
type PostgresLocker struct {
	db *database.Database
}

// NewPostgresLocker creates a PostgresLocker on the given pool.
func NewPostgresLocker(db *database.Database) *PostgresLocker {
	return &PostgresLocker{db: db}
}

// LockProject blocks until the advisory lock for projectID is held or ctx is done.
// The returned func releases the lock and the pooled connection holding it.
func (l *PostgresLocker) LockProject(ctx context.Context, projectID string) (func(), error) {
	conn, err := l.db.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection for project lock: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock(hashtextextended($1, 0))", projectID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to lock project %s: %w", projectID, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The lock is tied to the session, so a failed unlock must not
			// hand the connection back to the pool still holding it.
			if _, err := conn.Exec(context.Background(), "SELECT pg_advisory_unlock(hashtextextended($1, 0))", projectID); err != nil {
				_ = conn.Conn().Close(context.Background())
			}
			conn.Release()
		})
	}, nil
}
