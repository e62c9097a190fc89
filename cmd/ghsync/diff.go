package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ghsync/pkg/analyzer"
	"ghsync/pkg/filter"
	"ghsync/pkg/github"
	"ghsync/pkg/logger"
	"ghsync/pkg/ui"
)

var (
	diffExportPath string
	diffUnfollow   bool
	diffShowAll    bool
)

// diffCmd represents the diff command
var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show who doesn't follow you back",
	Long: `Compare your followers and following lists and report the
difference in both directions. With --unfollow, run a batch unfollow of
the accounts that don't follow back, honoring the configured filters.`,
	Example: `  # Just report
  ghsync diff

  # Save the non-reciprocal list to a file
  ghsync diff --export not-following-back.csv

  # Unfollow everyone who doesn't follow back (respects filters)
  ghsync diff --unfollow

  # See what an unfollow run would do first
  ghsync diff --unfollow --dry-run`,
	Run: runDiff,
}

func init() {
	diffCmd.Flags().StringVar(&diffExportPath, "export", "", "write the non-reciprocal list to this CSV file")
	diffCmd.Flags().BoolVar(&diffUnfollow, "unfollow", false, "unfollow accounts that don't follow back")
	diffCmd.Flags().BoolVar(&diffShowAll, "all", false, "list every account instead of the first 25")
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig(nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if diffUnfollow {
		os.Exit(executeRun(cfg, filter.WorkflowUnfollow))
	}

	log := logger.GetLogger()
	printer := ui.NewPrinter(nil)

	client := github.NewClient(github.Options{
		Token:             cfg.GitHub.Token,
		BaseURL:           cfg.GitHub.BaseURL,
		Timeout:           cfg.GitHub.Timeout,
		MaxRetries:        cfg.RateLimit.MaxRetries,
		RetryDelay:        cfg.RateLimit.RetryDelay,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.BurstSize,
		SecondaryCooldown: cfg.RateLimit.SecondaryCooldown,
	}, log)
	client.SetHeader("User-Agent", "ghsync/"+version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	me, err := client.AuthenticatedUser(ctx)
	if err != nil {
		printer.Error("authentication failed: %v", err)
		os.Exit(1)
	}

	graph := analyzer.New(client, me.Login, cfg.GitHub.MaxPages, log)

	stats, err := graph.Stats(ctx)
	if err != nil {
		printer.Error("failed to analyze relationships: %v", err)
		os.Exit(1)
	}

	printer.Summary(fmt.Sprintf("Relationship summary for %s", me.Login), []ui.SummaryRow{
		{Label: "Followers", Value: fmt.Sprint(stats.Followers)},
		{Label: "Following", Value: fmt.Sprint(stats.Following)},
		{Label: "Mutual", Value: fmt.Sprint(stats.Mutual)},
		{Label: "Not following back", Value: fmt.Sprint(stats.NonReciprocal)},
		{Label: "You don't follow back", Value: fmt.Sprint(stats.FollowBack)},
		{Label: "Follower ratio", Value: fmt.Sprintf("%.2f", stats.Ratio)},
	})

	nonReciprocal, err := graph.NonReciprocal(ctx)
	if err != nil {
		printer.Error("failed to compute diff: %v", err)
		os.Exit(1)
	}

	if len(nonReciprocal) > 0 {
		printer.Header("\nNot following you back:")
		shown := len(nonReciprocal)
		if !diffShowAll && shown > 25 {
			shown = 25
		}
		for _, u := range nonReciprocal[:shown] {
			printer.Info("%s (%s)", u.Login, u.HTMLURL)
		}
		if shown < len(nonReciprocal) {
			printer.Warn("%d more, rerun with --all to list everyone", len(nonReciprocal)-shown)
		}
	} else {
		printer.Success("everyone you follow follows you back")
	}

	if diffExportPath != "" {
		if err := analyzer.ExportCSV(diffExportPath, nonReciprocal); err != nil {
			printer.Error("export failed: %v", err)
			os.Exit(1)
		}
		printer.Success("exported %d accounts to %s", len(nonReciprocal), diffExportPath)
	}
}
