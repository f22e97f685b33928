package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"docs-go/internal/app"
	"docs-go/internal/config"
	"docs-go/internal/docs"
	"docs-go/internal/encryption"
	"docs-go/internal/guard"
	"docs-go/internal/vault"
)

// Command annotations read by the route guard.
const (
	annotationRoute         = "route"
	annotationRequiresAuth  = "requires_auth"
	annotationRequiresAdmin = "requires_admin"
)

var (
	authRequired  = map[string]string{annotationRequiresAuth: "true"}
	adminRequired = map[string]string{annotationRequiresAuth: "true", annotationRequiresAdmin: "true"}
)

func main() {
	if err := app.LoadEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// newApp reads the config, creates a DocsApp and runs the route guard for cmd.
// The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Login", "UploadDocuments").
func newApp(cmd *cobra.Command, args []string, operation string) (*app.DocsApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	route := routeFor(cmd, args)

	// Login routes are reported by name so a failed login is not sent back to itself.
	current := route.Path
	if route.Name == docs.RouteLogin || route.Name == docs.RouteRegister {
		current = route.Name
	}

	a, err := app.NewDocsApp(cfg, app.Options{
		Operation:  operation,
		Route:      current,
		Passphrase: os.Getenv(app.EnvPassphrase),
		S3Credentials: vault.S3Credentials{
			AccessKeyID:     os.Getenv(app.EnvS3AccessKeyID),
			SecretAccessKey: os.Getenv(app.EnvS3SecretAccessKey),
		},
		Verbose: verbose,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	if err := a.Enter(route); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// routeFor describes cmd as a guard route. The path is the command line
// without the binary name, so it can be retried after logging in.
func routeFor(cmd *cobra.Command, args []string) guard.Route {
	command := strings.TrimPrefix(cmd.CommandPath(), cmd.Root().Name()+" ")
	path := strings.Join(append([]string{command}, args...), " ")

	name := cmd.Annotations[annotationRoute]
	if name == "" {
		name = command
	}
	return guard.Route{
		Name:          name,
		Path:          path,
		RequiresAuth:  cmd.Annotations[annotationRequiresAuth] == "true",
		RequiresAdmin: cmd.Annotations[annotationRequiresAdmin] == "true",
	}
}

func prompter() *app.Prompter {
	return app.NewPrompter(os.Stdin, os.Stderr)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// optionalID returns the value of an int64 flag, or nil when it was not given.
func optionalID(cmd *cobra.Command, name string) *int64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	id, _ := cmd.Flags().GetInt64(name)
	return &id
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func formatTime(ts docs.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Format("2006-01-02 15:04:05")
}

func printDocuments(list []docs.Document) {
	if len(list) == 0 {
		fmt.Println("No documents.")
		return
	}
	for _, d := range list {
		folder := ""
		if d.FolderName != "" {
			folder = "  [" + d.FolderName + "]"
		}
		fmt.Printf("#%-6d  %-40s  %-5s  %10s  %s%s\n",
			d.ID, d.Filename, d.FileType, formatSize(d.FileSize), formatTime(d.CreatedAt), folder)
	}
}

func printBatchResult(verb string, r *docs.BatchOperationResult) {
	fmt.Printf("%s %d, failed %d\n", verb, r.SuccessCount, r.FailureCount)
	for _, e := range r.Errors {
		fmt.Printf("  #%d: %s\n", e.ID, e.Message)
	}
}

var rootCmd = &cobra.Command{
	Use:          "docs",
	Short:        "Document assistant client",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration and encryption keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		baseURL, _ := cmd.Flags().GetString("base-url")

		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(baseURL, defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption, os.Getenv(app.EnvPassphrase))
		if err != nil {
			return err
		}
		if enc != nil {
			if err := enc.Setup(); err != nil {
				return fmt.Errorf("failed to set up encryption: %w", err)
			}
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("API:      %s\n", cfg.BaseURL)
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("API:        %s\n", cfg.BaseURL)
		fmt.Printf("Timeout:    %s\n", cfg.Timeout)
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Database:   %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Printf("Encryption: %s %s\n", cfg.Encryption.Type, cfg.Encryption.IdentityPath)
		switch cfg.Vault.Type {
		case "s3":
			fmt.Printf("Vault:      s3://%s/%s\n", cfg.Vault.S3Bucket, cfg.Vault.S3Prefix)
		default:
			fmt.Printf("Vault:      %s %s\n", cfg.Vault.Type, cfg.Vault.FSVaultRoot)
		}
		fmt.Printf("Chunking:   %s chunks above %s\n", formatSize(cfg.Upload.ChunkSize), formatSize(cfg.Upload.ChunkThreshold))
		fmt.Printf("Downloads:  %d at a time\n", cfg.Download.Concurrency)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, args, "GetHistory")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt.Valid {
				d := op.FinishedAt.Time.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-20s  %s  %-8s  %-10s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
				op.Parameters,
			)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Write debug records to the log file")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().String("base-url", config.DefaultBaseURL, "API root URL")
	configCmd.AddCommand(configListCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(docCmd)
	rootCmd.AddCommand(folderCmd)
	rootCmd.AddCommand(adminCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
}
