package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultBaseURL is the API root used when none is configured.
const DefaultBaseURL = "http://localhost:8080/api"

// ErrUnknownType is returned by the backend factories for an unrecognised
// type in the database, encryption or vault section.
var ErrUnknownType = errors.New("unknown backend type")

// Config represents the main configuration for docs.
type Config struct {
	BaseURL    string           `toml:"base_url"`
	Timeout    Duration         `toml:"timeout"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Database   DatabaseConfig   `toml:"database"`
	Encryption EncryptionConfig `toml:"encryption"`
	Vault      VaultConfig      `toml:"vault"`
	Upload     UploadConfig     `toml:"upload"`
	Download   DownloadConfig   `toml:"download"`
	Metrics    MetricsConfig    `toml:"metrics"`
}

// Duration is a time.Duration that reads and writes as a TOML string ("10s").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// DatabaseConfig represents configuration for the local state database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// EncryptionConfig controls sealing of stored tokens.
type EncryptionConfig struct {
	Type         string `toml:"type"`                    // "age" (default) or "none"
	IdentityPath string `toml:"identity_path,omitempty"` // age X25519 identity file
}

// VaultConfig represents configuration for where downloads are written.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "filesystem", "memory" or "s3"

	// S3-specific fields (only used when Type == "s3")
	S3Bucket   string `toml:"s3_bucket,omitempty"`
	S3Prefix   string `toml:"s3_prefix,omitempty"`
	S3Region   string `toml:"s3_region,omitempty"`
	S3Endpoint string `toml:"s3_endpoint,omitempty"` // S3-compatible services such as MinIO

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// UploadConfig holds upload-related settings.
type UploadConfig struct {
	Ignore         []string `toml:"ignore"`
	ChunkSize      int64    `toml:"chunk_size"`      // bytes per chunk for chunked uploads
	ChunkThreshold int64    `toml:"chunk_threshold"` // files larger than this use chunked upload
}

// DownloadConfig holds download-related settings.
type DownloadConfig struct {
	Concurrency int `toml:"concurrency"`
}

// MetricsConfig holds client metrics settings.
type MetricsConfig struct {
	TextfilePath string `toml:"textfile_path,omitempty"` // written on exit when set
}

// NewConfig creates a new Config with the provided values and defaults under baseDir.
func NewConfig(baseURL, baseDir string) *Config {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Config{
		BaseURL: baseURL,
		Timeout: Duration{10 * time.Second},
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Encryption: EncryptionConfig{
			Type:         "age",
			IdentityPath: filepath.Join(baseDir, "keys", "docs.key"),
		},
		Vault: VaultConfig{
			Type:        "filesystem",
			FSVaultRoot: filepath.Join(baseDir, "downloads"),
		},
		Upload: UploadConfig{
			ChunkSize:      2 << 20,
			ChunkThreshold: 20 << 20,
		},
		Download: DownloadConfig{Concurrency: 4},
	}
}

// ApplyDefaults fills zero-valued settings that older config files may lack.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout.Duration <= 0 {
		c.Timeout = Duration{10 * time.Second}
	}
	if c.Upload.ChunkSize <= 0 {
		c.Upload.ChunkSize = 2 << 20
	}
	if c.Upload.ChunkThreshold <= 0 {
		c.Upload.ChunkThreshold = 20 << 20
	}
	if c.Download.Concurrency <= 0 {
		c.Download.Concurrency = 4
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
