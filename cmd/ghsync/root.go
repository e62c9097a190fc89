package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"ghsync/pkg/auth"
	"ghsync/pkg/config"
	"ghsync/pkg/logger"
)

var (
	// Version information, overridable at build time
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile  string
	logLevel    string
	dryRun      bool
	metricsAddr string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ghsync",
	Short: "Keep your GitHub social graph reciprocal",
	Long: `ghsync analyzes your GitHub followers and following lists, finds
non-reciprocal relationships, and performs bulk follow/unfollow
operations within the API's rate limits.

Features:
  - Follower/following diff with case-insensitive identity matching
  - Bulk unfollow of accounts that don't follow back
  - Follow-back runs for followers you don't follow yet
  - Whitelist/blacklist, language, keyword and account-age filters
  - Account enrichment at selectable cost tiers
  - Persistent run records in JSON, JSONL, CSV or XML with backups
  - Secure token storage in the system keychain`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is $HOME/.ghsync.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "report what would happen without mutating anything")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address (e.g. :9090)")

	rootCmd.SetVersionTemplate(`ghsync {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig layers configuration from all sources, resolves the token
// through the credential stores, and initializes logging.
func loadConfig(extraFlags map[string]interface{}) (*config.Config, error) {
	flags := map[string]interface{}{}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if dryRun {
		flags["dry-run"] = true
	}
	if metricsAddr != "" {
		flags["metrics-addr"] = metricsAddr
	}
	for k, v := range extraFlags {
		flags[k] = v
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}

	if cfg.GitHub.Token == "" {
		token, source, err := auth.NewManager().Token()
		if err != nil {
			if errors.Is(err, auth.ErrTokenNotFound) {
				return nil, errors.New("no GitHub token configured: run 'ghsync auth set' or export GITHUB_TOKEN")
			}
			return nil, err
		}
		cfg.GitHub.Token = token
		logger.GetLogger().DebugWithFields("token resolved", map[string]interface{}{
			"source": source,
		})
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	return cfg, nil
}
