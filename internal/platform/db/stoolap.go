// Package db opens and manages the on-device embedded database file.
package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/stoolap/stoolap/pkg/driver"
)

// Open returns a handle to the embedded database. An empty path opens an
// in-memory database, used by tests.
func Open(path string) (*sql.DB, error) {
	dsn := "memory://"
	if path != "" {
		dsn = "file://" + path
	}
	conn, err := sql.Open("stoolap", dsn)
	if err != nil {
		return nil, fmt.Errorf("platform/db: open %s: %w", dsn, err)
	}
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("platform/db: ping: %w", err)
	}
	return conn, nil
}

// WithTx executes fn within a transaction, rolling back on error.
func WithTx(ctx context.Context, conn *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}

	return nil
}
