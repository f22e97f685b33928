package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Environment variables that override default locations and secrets.
const (
	EnvConfigPath        = "DOCS_CONFIG_PATH"
	EnvHome              = "DOCS_HOME"
	EnvPassphrase        = "DOCS_PASSPHRASE"
	EnvS3AccessKeyID     = "DOCS_S3_ACCESS_KEY_ID"
	EnvS3SecretAccessKey = "DOCS_S3_SECRET_ACCESS_KEY"
)

// LoadEnv reads KEY=value pairs from path into the process environment.
// Variables that are already set win. A missing file is not an error.
func LoadEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - DOCS_CONFIG_PATH: config file location (default: ~/.config/docs.toml)
//   - DOCS_HOME: base directory for docs data (default: ~/.local/share/docs)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking DOCS_CONFIG_PATH first,
// then falling back to the default ~/.config/docs.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "docs.toml"), nil
}

// getBaseDir returns the base directory for docs data, checking DOCS_HOME first,
// then falling back to the XDG default ~/.local/share/docs.
func getBaseDir() (string, error) {
	if path := os.Getenv(EnvHome); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "docs"), nil
}
