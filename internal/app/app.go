package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"docs-go/internal/client"
	"docs-go/internal/config"
	"docs-go/internal/database"
	"docs-go/internal/docs"
	"docs-go/internal/encryption"
	"docs-go/internal/state"
	"docs-go/internal/vault"
)

// Options carry per-invocation settings that do not belong in the config file.
type Options struct {
	// Operation names the command being run (e.g. "Login", "UploadDocuments").
	Operation string

	// Route is the guard route of the command; the navigator starts there.
	Route string

	// Passphrase unlocks a passphrase-protected age identity.
	Passphrase string

	// S3Credentials are static keys for an s3 vault. Empty uses the AWS chain.
	S3Credentials vault.S3Credentials

	// Verbose writes debug records to the log file.
	Verbose bool

	// Stderr receives warnings, notifications and redirect hints.
	// Defaults to os.Stderr.
	Stderr io.Writer

	// Clock stamps the operation history. Defaults to the real clock.
	Clock docs.Clock
}

// DocsApp is the application layer between the CLI and the API client.
// It constructs all dependencies from config, exposes high-level operations,
// and records mutating operations in the local history.
type DocsApp struct {
	cfg       *config.Config
	db        *database.SQLiteDatabase
	encryptor docs.Encryptor
	ids       docs.IDGenerator
	session   *docs.Session
	client    *client.Client
	vault     docs.Vault
	documents *state.DocumentStore
	folders   *state.FolderStore
	navigator *TerminalNavigator
	registry  *prometheus.Registry
	logger    docs.Logger
	op        *Operation
	logFile   *os.File
}

// NewDocsApp creates a fully wired DocsApp from the given config.
// The caller must call Close when done.
func NewDocsApp(cfg *config.Config, opts Options) (*DocsApp, error) {
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	logger, logFile, err := newLogger(cfg.LogDir, newOpID(), opts.Verbose, stderr)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	log := &slogAdapter{l: logger}

	a := &DocsApp{
		cfg:       cfg,
		ids:       docs.UUIDGenerator{},
		documents: state.NewDocumentStore(),
		folders:   state.NewFolderStore(),
		navigator: NewTerminalNavigator(opts.Route, stderr),
		registry:  prometheus.NewRegistry(),
		logger:    log,
		op:        NewOperation(opts.Operation, ""),
		logFile:   logFile,
	}

	if err := a.open(opts, stderr); err != nil {
		a.closeResources()
		return nil, err
	}
	return a, nil
}

func (a *DocsApp) open(opts Options, stderr io.Writer) error {
	db, err := database.NewDatabaseFromConfig(a.cfg.Database, opts.Clock)
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	a.db = db

	if err := db.CheckMigrations(); err != nil {
		return fmt.Errorf("database schema out of date: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(a.cfg.Encryption, opts.Passphrase)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}
	if enc != nil {
		if err := enc.Setup(); err != nil {
			return fmt.Errorf("setting up encryption: %w", err)
		}
	}
	a.encryptor = enc

	local := encryption.Seal(db.Store(database.ScopeLocal), enc)
	scoped := encryption.Seal(db.Store(database.ScopeSession), enc)
	session, err := docs.NewSession(local, scoped, a.logger)
	if err != nil {
		return fmt.Errorf("restoring session: %w", err)
	}
	a.session = session

	v, err := vault.NewVaultFromConfig(context.Background(), a.cfg.Vault, opts.S3Credentials)
	if err != nil {
		return fmt.Errorf("creating vault: %w", err)
	}
	a.vault = v

	a.client = client.NewClient(session,
		client.WithBaseURL(a.cfg.BaseURL),
		client.WithTimeout(a.cfg.Timeout.Duration),
		client.WithNavigator(a.navigator),
		client.WithNotifier(NewTerminalNotifier(stderr)),
		client.WithLogger(a.logger),
		client.WithRegisterer(a.registry),
		client.WithChunkSize(a.cfg.Upload.ChunkSize),
	)

	a.logger.Debug("app ready", "operation", a.op.Operation, "base_url", a.cfg.BaseURL)
	return nil
}

// Session returns the signed-in user's session.
func (a *DocsApp) Session() *docs.Session {
	return a.session
}

// Client returns the underlying API client.
func (a *DocsApp) Client() *client.Client {
	return a.client
}

// Vault returns where downloads are written.
func (a *DocsApp) Vault() docs.Vault {
	return a.vault
}

// Documents returns the document snapshot of this invocation.
func (a *DocsApp) Documents() *state.DocumentStore {
	return a.documents
}

// Folders returns the folder snapshot of this invocation.
func (a *DocsApp) Folders() *state.FolderStore {
	return a.folders
}

// Redirected returns the route the session-expiry handling asked for, if any.
func (a *DocsApp) Redirected() *Redirect {
	return a.navigator.Redirected()
}

// persistOperation saves the operation to the database, giving it an auto-increment ID.
// This should only be called by mutating commands.
func (a *DocsApp) persistOperation(parameters string) error {
	if a.op.Persisted() {
		return nil
	}
	a.op.Parameters = parameters
	id, err := a.db.CreateOperation(a.op.Operation, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = id
	return nil
}

// History returns the most recent operations, newest first.
func (a *DocsApp) History(limit int) ([]*database.Operation, error) {
	return a.db.ListOperations(limit)
}

// Close finalizes the operation record, writes metrics when configured,
// and closes all resources.
func (a *DocsApp) Close() error {
	var firstErr error

	if a.op.Persisted() {
		if err := a.db.FinishOperation(a.op.ID, a.op.Status); err != nil {
			firstErr = fmt.Errorf("finishing operation: %w", err)
		}
	}

	if path := a.cfg.Metrics.TextfilePath; path != "" {
		if err := prometheus.WriteToTextfile(path, a.registry); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("writing metrics: %w", err)
		}
	}

	if err := a.closeResources(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (a *DocsApp) closeResources() error {
	var firstErr error
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			firstErr = fmt.Errorf("closing database: %w", err)
		}
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
