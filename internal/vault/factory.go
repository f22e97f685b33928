package vault

import (
	"context"
	"errors"
	"fmt"

	"docs-go/internal/config"
	"docs-go/internal/docs"
)

// NewVaultFromConfig returns the vault downloads and archives are written to.
// An empty type means the filesystem vault.
func NewVaultFromConfig(ctx context.Context, cfg config.VaultConfig, creds S3Credentials) (docs.Vault, error) {
	switch cfg.Type {
	case "filesystem", "":
		if cfg.FSVaultRoot == "" {
			return nil, errors.New("filesystem vault: fs_vault_root is required")
		}
		v, err := NewFileSystemVault(cfg.FSVaultRoot)
		if err != nil {
			return nil, err
		}
		return v, nil
	case "s3":
		v, err := NewS3Vault(ctx, cfg, creds)
		if err != nil {
			return nil, err
		}
		return v, nil
	case "memory":
		return NewMemoryVault(), nil
	}
	return nil, fmt.Errorf("vault %q: %w", cfg.Type, config.ErrUnknownType)
}
