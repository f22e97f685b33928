package migrations

import (
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestUp_CreatesStateTables(t *testing.T) {
	db := openTestDB(t)

	if err := Up(db); err != nil {
		t.Fatalf("Up() error = %v", err)
	}

	for _, table := range []string{"kv_entries", "operations", "schema_migrations"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestInspect(t *testing.T) {
	db := openTestDB(t)

	st, err := Inspect(db)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if st.Version != 0 || st.Latest == 0 {
		t.Errorf("fresh Inspect() = %+v, want version 0 and a latest version", st)
	}
	if !errors.Is(st.Err(), ErrUnversioned) {
		t.Errorf("fresh Status.Err() = %v, want ErrUnversioned", st.Err())
	}

	// Up is idempotent.
	for i := 0; i < 2; i++ {
		if err := Up(db); err != nil {
			t.Fatalf("Up() #%d error = %v", i+1, err)
		}
	}

	st, err = Inspect(db)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if st.Version != st.Latest || st.Dirty {
		t.Errorf("migrated Inspect() = %+v, want version == latest", st)
	}
	if err := Check(db); err != nil {
		t.Errorf("Check() after Up() = %v", err)
	}
}

func TestStatusErr(t *testing.T) {
	tests := []struct {
		name string
		st   Status
		want error
	}{
		{"current", Status{Version: 3, Latest: 3}, nil},
		{"unversioned", Status{Latest: 3}, ErrUnversioned},
		{"dirty", Status{Version: 3, Latest: 3, Dirty: true}, ErrDirty},
		{"behind", Status{Version: 1, Latest: 3}, ErrBehind},
		{"ahead", Status{Version: 4, Latest: 3}, ErrAhead},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.st.Err()
			if tt.want == nil {
				if err != nil {
					t.Errorf("Err() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Err() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSchema_KVEntriesKeyedByScope(t *testing.T) {
	db := openTestDB(t)
	if err := Up(db); err != nil {
		t.Fatalf("Up() error = %v", err)
	}

	insert := "INSERT INTO kv_entries (scope, key, value, updated_at) VALUES (?, 'access_token', ?, datetime('now'))"
	if _, err := db.Exec(insert, "local", "a"); err != nil {
		t.Fatalf("insert local: %v", err)
	}
	if _, err := db.Exec(insert, "session", "b"); err != nil {
		t.Fatalf("insert session: %v", err)
	}
	if _, err := db.Exec(insert, "local", "c"); err == nil {
		t.Error("duplicate (scope, key) insert succeeded")
	}
}

func TestSchema_OperationDefaults(t *testing.T) {
	db := openTestDB(t)
	if err := Up(db); err != nil {
		t.Fatalf("Up() error = %v", err)
	}

	if _, err := db.Exec("INSERT INTO operations (operation, started_at) VALUES ('Login', datetime('now'))"); err != nil {
		t.Fatalf("insert operation: %v", err)
	}

	var status, params string
	var finished sql.NullTime
	err := db.QueryRow("SELECT status, parameters, finished_at FROM operations WHERE operation = 'Login'").Scan(&status, &params, &finished)
	if err != nil {
		t.Fatalf("read operation: %v", err)
	}
	if status != "running" || params != "" || finished.Valid {
		t.Errorf("defaults = (%q, %q, %v), want (running, \"\", NULL)", status, params, finished)
	}
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}
