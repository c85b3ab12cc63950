// Package store persists spotter state and collaboration rooms in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"fleetspotter/internal/logging"
)

// Store is the SQLite-backed spotter database.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// NewStore opens (creating if needed) the database at path.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	logging.Store("opened spotter database at %s", path)
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS spotter_state (
		chain_id TEXT PRIMARY KEY,
		state_json TEXT NOT NULL,
		posted_at INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS collab_rooms (
		room TEXT NOT NULL,
		chain_id TEXT NOT NULL,
		state_json TEXT NOT NULL,
		posted_at INTEGER NOT NULL,
		PRIMARY KEY (room, chain_id)
	);
	CREATE INDEX IF NOT EXISTS idx_rooms_chain ON collab_rooms(chain_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return RunMigrations(context.Background(), s.db)
}
