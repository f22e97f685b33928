package encryption

import (
	"fmt"

	"docs-go/internal/config"
	"docs-go/internal/docs"
)

// NewEncryptorFromConfig returns the encryptor that seals stored tokens.
// The passphrase protects the age identity and may be empty.
// Type "none" yields a nil Encryptor, which Seal treats as pass-through.
func NewEncryptorFromConfig(cfg config.EncryptionConfig, passphrase string) (docs.Encryptor, error) {
	switch cfg.Type {
	case "age", "":
		return NewAgeEncryptor(cfg, passphrase), nil
	case "none":
		return nil, nil
	case "test":
		return NewTestEncryptor(), nil
	}
	return nil, fmt.Errorf("encryption %q: %w", cfg.Type, config.ErrUnknownType)
}
