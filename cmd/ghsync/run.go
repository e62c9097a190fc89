package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ghsync/internal/runner"
	"ghsync/pkg/analyzer"
	"ghsync/pkg/config"
	"ghsync/pkg/enrich"
	"ghsync/pkg/filter"
	"ghsync/pkg/github"
	"ghsync/pkg/logger"
	"ghsync/pkg/metrics"
	"ghsync/pkg/storage"
	"ghsync/pkg/ui"
)

// executeRun wires the collaborators for one batch run and drives it to
// completion, returning the process exit code.
func executeRun(cfg *config.Config, workflow filter.Workflow) int {
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

	// Authentication must work before any candidate is touched.
	me, err := client.AuthenticatedUser(ctx)
	if err != nil {
		printer.Error("authentication failed: %v", err)
		return 1
	}
	printer.Info("authenticated as %s", me.Login)

	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.MetricsAddr, log)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	store, err := storage.NewEngine(storage.Options{
		Path:             cfg.Storage.OutputFile,
		BackupStrategy:   storage.BackupStrategy(cfg.Storage.BackupStrategy),
		MaxBackups:       cfg.Storage.MaxBackups,
		Autosave:         cfg.Storage.Autosave,
		AutosaveInterval: cfg.Storage.AutosaveInterval,
		FallbackFormats:  cfg.Storage.FallbackFormats,
	}, log)
	if err != nil {
		printer.Error("storage setup failed: %v", err)
		return 1
	}
	if err := store.Load(); err != nil {
		printer.Error("storage load failed: %v", err)
		return 1
	}

	graph := analyzer.New(client, me.Login, cfg.GitHub.MaxPages, log)
	enricher := enrich.New(client, enrich.ParseLevel(cfg.Run.Strategy), log)
	filters := filter.New(cfg.Filter, workflow, log)

	run := runner.New(cfg, workflow, client, graph, enricher, filters, store, log)

	runErr := run.Run(ctx)

	// Flush exactly once; a clean run earns a backup of the result.
	clean := runErr == nil && run.ExitCode() == 0
	if err := store.Close(clean); err != nil {
		log.ErrorWithFields("final save failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if runErr != nil {
		printer.Error("run failed: %v", runErr)
		return 1
	}

	printSummary(printer, run, cfg)
	return run.ExitCode()
}

func printSummary(printer *ui.Printer, run *runner.Runner, cfg *config.Config) {
	snap := run.Metrics().Snapshot()
	title := "Run summary"
	if cfg.Run.DryRun {
		title = "Run summary (dry run)"
	}
	printer.Summary(title, []ui.SummaryRow{
		{Label: "Candidates", Value: ui.Count(snap.TotalCandidates)},
		{Label: "Processed", Value: ui.Count(snap.Processed)},
		{Label: "Acted on", Value: ui.Count(snap.ActedOn)},
		{Label: "Skipped", Value: ui.Count(snap.Skipped)},
		{Label: "Already in desired state", Value: ui.Count(snap.AlreadyDesired)},
		{Label: "Failed", Value: ui.Count(snap.Failed)},
		{Label: "Elapsed", Value: ui.Elapsed(snap.Elapsed)},
	})

	if snap.Failed > 0 {
		printer.Warn("%s failed operations, see the log for details", fmt.Sprint(snap.Failed))
	}
}
