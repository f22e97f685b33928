package testutil

import (
	"testing"

	"docs-go/internal/database"
	"docs-go/internal/docs"
)

// NewTestDatabase creates a new in-memory SQLite database with schema applied.
// The database is automatically closed when the test completes.
func NewTestDatabase(t *testing.T) *database.SQLiteDatabase {
	t.Helper()

	db, err := database.NewSQLiteDatabase(":memory:", FixedClock())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// NewTestSession creates an empty session backed by db's local and
// session scopes.
func NewTestSession(t *testing.T, db *database.SQLiteDatabase) *docs.Session {
	t.Helper()

	s, err := docs.NewSession(db.Store(database.ScopeLocal), db.Store(database.ScopeSession), docs.NewNopLogger())
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return s
}

// MapStore is an in-memory docs.KeyValueStore. It is not safe for
// concurrent use on its own.
type MapStore map[string]string

func (m MapStore) Get(key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m MapStore) Set(key, value string) error {
	m[key] = value
	return nil
}

func (m MapStore) Delete(key string) error {
	delete(m, key)
	return nil
}

var _ docs.KeyValueStore = MapStore(nil)
