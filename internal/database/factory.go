package database

import (
	"fmt"
	"os"
	"path/filepath"

	"docs-go/internal/config"
	"docs-go/internal/docs"
)

// NewDatabaseFromConfig creates a database based on the database config type.
func NewDatabaseFromConfig(cfg config.DatabaseConfig, clock docs.Clock) (*SQLiteDatabase, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		return NewSQLiteDatabase(filepath.Join(cfg.DataDir, "docs.db"), clock)
	case "memory":
		return NewSQLiteDatabase(":memory:", clock)
	default:
		return nil, fmt.Errorf("database %q: %w", cfg.Type, config.ErrUnknownType)
	}
}
