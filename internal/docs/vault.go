package docs

import "io"

// Vault is a destination for downloaded documents and archives.
// All operations stream through io.Reader so large downloads are never
// buffered in memory by the vault itself.
type Vault interface {
	// Put stores the object under name, replacing any existing object.
	// size is the number of bytes that will be read from r, or -1 if unknown.
	Put(name string, r io.Reader, size int64) error

	// Get writes the named object to w.
	Get(name string, w io.Writer) error

	// Location returns a human-readable location for name (a path or URL).
	Location(name string) string

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup() error
}
