// Package database owns the SQLite connection and schema migrations.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// WAL keeps reads cheap while the single writer connection holds the
// database; the busy timeout covers migration and checkpoint windows.
const connParams = "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON"

// Open opens the SQLite database at dbPath, creating the parent
// directory when needed. ":memory:" opens a throwaway in-memory
// database for tests.
func Open(dbPath string) (*sql.DB, error) {
	inMemory := strings.HasPrefix(dbPath, ":memory:")
	if !inMemory {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	dsn := dbPath
	if !inMemory {
		dsn += connParams
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// SQLite allows one writer; funnel everything through one conn.
	db.SetMaxOpenConns(1)

	return db, nil
}
