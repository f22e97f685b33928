// Package migrations owns the schema of the client state database.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed files/*.sql
var schemaFiles embed.FS

var (
	// ErrUnversioned means the state database was never migrated.
	ErrUnversioned = errors.New("state database has no schema version")
	// ErrDirty means a previous migration stopped half way.
	ErrDirty = errors.New("state database schema is dirty")
	// ErrBehind means the binary knows newer migrations than the database.
	ErrBehind = errors.New("state database schema is out of date")
	// ErrAhead means the database was written by a newer client.
	ErrAhead = errors.New("state database schema is newer than this client")
)

// Status describes where a database sits relative to the embedded schema.
type Status struct {
	Version uint
	Latest  uint
	Dirty   bool
}

// Err maps s to one of the package errors, or nil when the schema is current.
func (s Status) Err() error {
	switch {
	case s.Dirty:
		return fmt.Errorf("%w at version %d", ErrDirty, s.Version)
	case s.Version == 0:
		return ErrUnversioned
	case s.Version < s.Latest:
		return fmt.Errorf("%w: version %d, client expects %d", ErrBehind, s.Version, s.Latest)
	case s.Version > s.Latest:
		return fmt.Errorf("%w: version %d, client knows %d", ErrAhead, s.Version, s.Latest)
	}
	return nil
}

// Inspect reads the schema version of db without changing it.
func Inspect(db *sql.DB) (Status, error) {
	m, err := open(db)
	if err != nil {
		return Status{}, err
	}
	// m is not closed: closing it would close db, which the caller owns.

	var st Status
	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
	case err != nil:
		return Status{}, fmt.Errorf("reading schema version: %w", err)
	default:
		st.Version, st.Dirty = version, dirty
	}

	src, err := iofs.New(schemaFiles, "files")
	if err != nil {
		return Status{}, fmt.Errorf("reading embedded schema: %w", err)
	}
	defer src.Close()

	if st.Latest, err = latest(src); err != nil {
		return Status{}, fmt.Errorf("reading embedded schema: %w", err)
	}
	return st, nil
}

// Check returns nil when db is at the embedded schema version.
func Check(db *sql.DB) error {
	st, err := Inspect(db)
	if err != nil {
		return err
	}
	return st.Err()
}

// Up applies every pending migration. A current database is left untouched.
func Up(db *sql.DB) error {
	m, err := open(db)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

func open(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(schemaFiles, "files")
	if err != nil {
		return nil, fmt.Errorf("reading embedded schema: %w", err)
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("wrapping state database: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("preparing migrations: %w", err)
	}
	return m, nil
}

// latest walks src to its last migration.
func latest(src source.Driver) (uint, error) {
	v, err := src.First()
	if err != nil {
		return 0, err
	}
	for {
		next, err := src.Next(v)
		if err != nil {
			return v, nil
		}
		v = next
	}
}
