package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLite wraps a sqlx handle on a single-file SQLite database.
type SQLite struct {
	*sqlx.DB
	Path string
}

// sqliteDSN enables foreign keys and waits on a busy database instead of
// failing immediately.
func sqliteDSN(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// prepareSQLitePath resolves path and creates its parent directory.
func prepareSQLitePath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute database path: %w", err)
	}

	// Create the parent directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create database directory: %w", err)
	}
	return absPath, nil
}

// NewSQLite opens (creating if needed) the SQLite database at path.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	absPath, err := prepareSQLitePath(path)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.ConnectContext(ctx, "sqlite", sqliteDSN(absPath))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &SQLite{DB: db, Path: absPath}, nil
}

// Ping checks if the database is reachable.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}
