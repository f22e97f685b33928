package docs

import "io"

// Encryptor seals values before they are written to local storage.
// Encryption only needs the public half of the key. Decryption needs the
// identity, which may itself be protected by a passphrase.
type Encryptor interface {
	// Setup performs one-time key generation. Called during `docs config init`.
	// It is a no-op when keys already exist.
	Setup() error

	// Encrypt encrypts data read from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock loads the identity and returns a DecryptionContext for the
	// rest of the process lifetime.
	Unlock() (DecryptionContext, error)

	// IsConfigured reports whether keys exist at the configured paths.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked identity in memory. It is never
// written back to disk.
type DecryptionContext interface {
	// Decrypt decrypts data read from r and writes plaintext to w.
	Decrypt(r io.Reader, w io.Writer) error
}
