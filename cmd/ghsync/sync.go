package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ghsync/pkg/filter"
)

var (
	syncWorkers  int
	syncMaxOps   int
	syncDelay    time.Duration
	syncStrategy string
	syncOutput   string
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync [target...]",
	Short: "Follow back your followers",
	Long: `Follow accounts that follow you but you don't follow yet. With
explicit targets as arguments, the followers of those accounts or
organizations become the candidate set instead of your own follow-back
list. Filters apply either way, and accounts you already follow are
skipped.`,
	Example: `  # Follow back everyone (after filters)
  ghsync sync

  # Preview first
  ghsync sync --dry-run

  # Follow the followers of an organization
  ghsync sync golang

  # Gentler run
  ghsync sync --workers 2 --delay 5s --max-ops 50`,
	Run: runSync,
}

func init() {
	syncCmd.Flags().IntVar(&syncWorkers, "workers", 0, "number of concurrent workers")
	syncCmd.Flags().IntVar(&syncMaxOps, "max-ops", 0, "cap on operations per run")
	syncCmd.Flags().DurationVar(&syncDelay, "delay", 0, "pause between operations per worker")
	syncCmd.Flags().StringVar(&syncStrategy, "strategy", "", "enrichment strategy (fast, balanced, comprehensive)")
	syncCmd.Flags().StringVarP(&syncOutput, "output", "o", "", "run record output file")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) {
	flags := map[string]interface{}{}
	if syncWorkers > 0 {
		flags["workers"] = syncWorkers
	}
	if syncMaxOps > 0 {
		flags["max-ops"] = syncMaxOps
	}
	if syncDelay > 0 {
		flags["delay"] = syncDelay
	}
	if syncStrategy != "" {
		flags["strategy"] = syncStrategy
	}
	if syncOutput != "" {
		flags["output"] = syncOutput
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if len(args) > 0 {
		cfg.Run.TargetAccounts = args
	}

	os.Exit(executeRun(cfg, filter.WorkflowFollowBack))
}
