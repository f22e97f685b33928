package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		BaseURL:  "https://docs.example.com/api",
		Timeout:  Duration{15 * time.Second},
		BaseDir:  "/home/user/.local/share/docs",
		LogDir:   "/home/user/.local/share/docs/log",
		Database: DatabaseConfig{Type: "sqlite", DataDir: "/home/user/.local/share/docs/db"},
		Encryption: EncryptionConfig{
			Type:         "age",
			IdentityPath: "/home/user/.local/share/docs/keys/docs.key",
		},
		Vault:    VaultConfig{Type: "s3", S3Bucket: "team-docs", S3Prefix: "exports", S3Region: "eu-west-1"},
		Upload:   UploadConfig{Ignore: []string{"*.tmp", ".git"}, ChunkSize: 1024, ChunkThreshold: 4096},
		Download: DownloadConfig{Concurrency: 8},
		Metrics:  MetricsConfig{TextfilePath: "/var/lib/node_exporter/docs.prom"},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.BaseURL != original.BaseURL {
		t.Errorf("BaseURL = %q, want %q", got.BaseURL, original.BaseURL)
	}
	if got.Timeout.Duration != 15*time.Second {
		t.Errorf("Timeout = %v, want %v", got.Timeout.Duration, 15*time.Second)
	}
	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if got.Database.Type != "sqlite" {
		t.Errorf("Database.Type = %q, want %q", got.Database.Type, "sqlite")
	}
	if got.Encryption.IdentityPath != original.Encryption.IdentityPath {
		t.Errorf("Encryption.IdentityPath = %q, want %q", got.Encryption.IdentityPath, original.Encryption.IdentityPath)
	}
	if got.Vault.Type != "s3" || got.Vault.S3Bucket != "team-docs" || got.Vault.S3Region != "eu-west-1" {
		t.Errorf("Vault = %+v, want s3/team-docs/eu-west-1", got.Vault)
	}
	if len(got.Upload.Ignore) != 2 {
		t.Fatalf("len(Upload.Ignore) = %d, want 2", len(got.Upload.Ignore))
	}
	if got.Upload.ChunkSize != 1024 {
		t.Errorf("Upload.ChunkSize = %d, want %d", got.Upload.ChunkSize, 1024)
	}
	if got.Download.Concurrency != 8 {
		t.Errorf("Download.Concurrency = %d, want %d", got.Download.Concurrency, 8)
	}
	if got.Metrics.TextfilePath != original.Metrics.TextfilePath {
		t.Errorf("Metrics.TextfilePath = %q, want %q", got.Metrics.TextfilePath, original.Metrics.TextfilePath)
	}
}

func TestManager_Read_AppliesDefaults(t *testing.T) {
	m := &Manager{}
	got, err := m.Read(strings.NewReader(`base_dir = "/data/docs"`))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", got.BaseURL, DefaultBaseURL)
	}
	if got.Timeout.Duration != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", got.Timeout.Duration)
	}
	if got.Upload.ChunkSize != 2<<20 {
		t.Errorf("Upload.ChunkSize = %d, want %d", got.Upload.ChunkSize, 2<<20)
	}
	if got.Download.Concurrency != 4 {
		t.Errorf("Download.Concurrency = %d, want 4", got.Download.Concurrency)
	}
}

func TestManager_Read_InvalidDuration(t *testing.T) {
	m := &Manager{}
	if _, err := m.Read(strings.NewReader(`timeout = "soon"`)); err == nil {
		t.Error("Read() expected error for invalid duration")
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("", "/data/docs")

	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, DefaultBaseURL)
	}
	if cfg.BaseDir != "/data/docs" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/data/docs")
	}
	if cfg.LogDir != "/data/docs/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/docs/log")
	}
	if cfg.Database.DataDir != "/data/docs/db" {
		t.Errorf("Database.DataDir = %q, want %q", cfg.Database.DataDir, "/data/docs/db")
	}
	if cfg.Encryption.IdentityPath != "/data/docs/keys/docs.key" {
		t.Errorf("Encryption.IdentityPath = %q, want %q", cfg.Encryption.IdentityPath, "/data/docs/keys/docs.key")
	}
	if cfg.Vault.FSVaultRoot != "/data/docs/downloads" {
		t.Errorf("Vault.FSVaultRoot = %q, want %q", cfg.Vault.FSVaultRoot, "/data/docs/downloads")
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "docs.toml")
		cfg := NewConfig("", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "docs.toml")
		cfg := NewConfig("", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "docs.toml")
		cfg := NewConfig("https://read-test.example.com/api", dir)
		cfg.Database = DatabaseConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.BaseURL != "https://read-test.example.com/api" {
			t.Errorf("BaseURL = %q, want %q", got.BaseURL, "https://read-test.example.com/api")
		}
		if got.Database.Type != "memory" {
			t.Errorf("Database.Type = %q, want %q", got.Database.Type, "memory")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/docs.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
