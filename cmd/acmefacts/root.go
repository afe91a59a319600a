package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sensiblebit/acmefacts/internal"
	"github.com/sensiblebit/acmefacts/internal/certstore"
)

var (
	configPath string
	logLevel   string
	resultsDir string
	missingCN  string
	factName   string
	factFormat string
	dbPath     string

	// cfg is the effective configuration: defaults, then the config file,
	// then flags set on the command line.
	cfg internal.Config
)

var rootCmd = &cobra.Command{
	Use:   "acmefacts",
	Short: "ACME certificate fact provider",
	Long: `Scan an ACME client's results directory for <name>.pem / <name>.ca pairs and
print them as the acme_certs external fact for Facter.`,
	Example: `  acmefacts
  acmefacts --dir /etc/acme.sh/results --format yaml
  acmefacts --db /var/lib/acmefacts/inventory.db`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runFacts,
}

func init() {
	// Assigned here rather than in the literal: loadSettings refers to
	// rootCmd, which would otherwise be an initialization cycle.
	rootCmd.PersistentPreRunE = loadSettings

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (overridden by $"+internal.ConfigEnv+")")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&resultsDir, "dir", certstore.DefaultDir, "ACME results directory")
	rootCmd.PersistentFlags().StringVar(&missingCN, "missing-cn", string(certstore.MissingCNError), "Certificates without a CN: error, empty, skip")
	rootCmd.PersistentFlags().StringVar(&factName, "fact-name", internal.DefaultFactName, "Top-level fact name")

	rootCmd.Flags().StringVar(&factFormat, "format", "json", "Fact output format: json or yaml")
	rootCmd.Flags().StringVarP(&dbPath, "db", "d", "", "Record the scan in this SQLite inventory")

	registerCompletion(rootCmd, completionInput{"config", fileCompletion})
	registerCompletion(rootCmd, completionInput{"log-level", fixedCompletion("debug", "info", "warn", "error")})
	registerCompletion(rootCmd, completionInput{"dir", directoryCompletion})
	registerCompletion(rootCmd, completionInput{"missing-cn", fixedCompletion("error", "empty", "skip")})
	registerCompletion(rootCmd, completionInput{"format", fixedCompletion("json", "yaml")})
	registerCompletion(rootCmd, completionInput{"db", fileCompletion})

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(historyCmd)
}

// loadSettings builds cfg for every command and configures logging.
func loadSettings(cmd *cobra.Command, _ []string) error {
	loaded := internal.DefaultConfig()
	if path := internal.ConfigPath(configPath); path != "" {
		var err error
		loaded, err = internal.LoadConfig(path)
		if err != nil {
			return err
		}
	}

	applyFlagOverrides(cmd.Flags(), &loaded, cmd == rootCmd)
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	cfg = loaded

	internal.SetupLogger(cfg.LogLevel)
	return nil
}

// applyFlagOverrides copies flags set on the command line into c. The root
// command's --format selects the fact format; subcommands use --format for
// their own output and leave it alone.
func applyFlagOverrides(flags *pflag.FlagSet, c *internal.Config, factCommand bool) {
	overrides := map[string]*string{
		"dir":          &c.Directory,
		"fact-name":    &c.FactName,
		"missing-cn":   &c.MissingCN,
		"log-level":    &c.LogLevel,
		"db":           &c.Database,
		"trust-store":  &c.TrustStore,
		"custom-roots": &c.CustomRoots,
		"expiry":       &c.ExpiryWindow,
	}
	if factCommand {
		overrides["format"] = &c.Format
	}
	flags.Visit(func(f *pflag.Flag) {
		if dst, ok := overrides[f.Name]; ok {
			*dst = f.Value.String()
		}
	})
}

// scan runs the directory scanner with the effective settings.
func scan(ctx context.Context) (certstore.ResultSet, error) {
	return certstore.NewScanner(cfg.Directory, certstore.WithMissingCN(cfg.MissingCNPolicy())).Scan(ctx)
}

func runFacts(cmd *cobra.Command, _ []string) error {
	rs, err := scan(cmd.Context())
	if err != nil {
		return err
	}

	if cfg.Database != "" {
		if err := recordScan(rs); err != nil {
			return err
		}
	}

	out, err := internal.FormatFacts(rs, cfg.FactName, cfg.Format)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

func recordScan(rs certstore.ResultSet) error {
	db, err := internal.OpenInventory(cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if _, err := db.RecordScan(internal.RecordScanInput{Results: rs, Directory: cfg.Directory}); err != nil {
		return err
	}
	return db.SaveToDisk(cfg.Database)
}
