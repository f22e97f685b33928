package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"docs-go/internal/database/migrations"
	"docs-go/internal/docs"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Storage scopes. The local scope survives logout-free restarts like a
// browser's localStorage; the session scope holds per-login caches.
const (
	ScopeLocal   = "local"
	ScopeSession = "session"
)

// Operation is a recorded CLI operation.
type Operation struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string
	StartedAt  time.Time
	FinishedAt sql.NullTime
}

// SQLiteDatabase holds the client's persisted state: scoped key/value
// entries and the operation history.
type SQLiteDatabase struct {
	db    *sql.DB
	path  string
	clock docs.Clock
}

// NewSQLiteDatabase opens the database at path and migrates it to the latest schema.
// path can be a file path or ":memory:" for in-memory database.
// A nil clock uses the real clock.
func NewSQLiteDatabase(path string, clock docs.Clock) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.Up(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return NewSQLiteDatabaseFromDB(db, clock), nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured and migrated.
func NewSQLiteDatabaseFromDB(db *sql.DB, clock docs.Clock) *SQLiteDatabase {
	if clock == nil {
		clock = docs.RealClock{}
	}
	return &SQLiteDatabase{db: db, clock: clock}
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database exists per connection; pin the pool to one.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Concurrent downloads may persist refreshed tokens while other
	// commands read them.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// CheckMigrations verifies that the schema is at the latest version.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.Check(s.db)
}

// Store returns a key/value view over one scope.
func (s *SQLiteDatabase) Store(scope string) *ScopedStore {
	return &ScopedStore{db: s, scope: scope}
}

// ClearScope deletes every entry in scope.
func (s *SQLiteDatabase) ClearScope(scope string) error {
	if _, err := s.db.ExecContext(context.Background(), `DELETE FROM kv_entries WHERE scope = ?`, scope); err != nil {
		return fmt.Errorf("clearing scope %s: %w", scope, err)
	}
	return nil
}

// Operation history

// CreateOperation records the start of an operation and returns its ID.
func (s *SQLiteDatabase) CreateOperation(operation, parameters string) (int64, error) {
	res, err := s.db.ExecContext(context.Background(),
		`INSERT INTO operations (operation, parameters, status, started_at) VALUES (?, ?, 'running', ?)`,
		operation, parameters, s.clock.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("creating operation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading operation id: %w", err)
	}
	return id, nil
}

// FinishOperation records the final status of an operation.
func (s *SQLiteDatabase) FinishOperation(id int64, status string) error {
	res, err := s.db.ExecContext(context.Background(),
		`UPDATE operations SET status = ?, finished_at = ? WHERE id = ?`,
		status, s.clock.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("operation %d not found", id)
	}
	return nil
}

// ListOperations returns the most recent operations, newest first.
func (s *SQLiteDatabase) ListOperations(limit int) ([]*Operation, error) {
	rows, err := s.db.QueryContext(context.Background(),
		`SELECT id, operation, parameters, status, started_at, finished_at
		 FROM operations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var ops []*Operation
	for rows.Next() {
		var op Operation
		if err := rows.Scan(&op.ID, &op.Operation, &op.Parameters, &op.Status, &op.StartedAt, &op.FinishedAt); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		ops = append(ops, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	return s.db.Close()
}

// ScopedStore implements docs.KeyValueStore over one scope of kv_entries.
type ScopedStore struct {
	db    *SQLiteDatabase
	scope string
}

var _ docs.KeyValueStore = (*ScopedStore)(nil)

func (s *ScopedStore) Get(key string) (string, bool, error) {
	var value string
	err := s.db.db.QueryRowContext(context.Background(),
		`SELECT value FROM kv_entries WHERE scope = ? AND key = ?`, s.scope, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s/%s: %w", s.scope, key, err)
	}
	return value, true, nil
}

func (s *ScopedStore) Set(key, value string) error {
	_, err := s.db.db.ExecContext(context.Background(),
		`INSERT INTO kv_entries (scope, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (scope, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.scope, key, value, s.db.clock.Now().UTC())
	if err != nil {
		return fmt.Errorf("writing %s/%s: %w", s.scope, key, err)
	}
	return nil
}

func (s *ScopedStore) Delete(key string) error {
	_, err := s.db.db.ExecContext(context.Background(),
		`DELETE FROM kv_entries WHERE scope = ? AND key = ?`, s.scope, key)
	if err != nil {
		return fmt.Errorf("deleting %s/%s: %w", s.scope, key, err)
	}
	return nil
}
