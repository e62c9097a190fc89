// Package logger provides the structured logging interface used across the tool.
//
// It wraps the zerolog library to provide a clean API with support for:
// - Multiple log levels (Debug, Info, Warn, Error, Fatal)
// - Structured logging with fields
// - Pretty console output with colors
// - Optional file output alongside the console
// - Global logger instance for easy access
//
// Basic Usage:
//
//	import "ghsync/pkg/logger"
//
//	// Initialize the global logger
//	cfg := &config.LoggingConfig{
//	    Level: "info",
//	    File:  "/var/log/ghsync.log",
//	}
//	err := logger.Initialize(cfg)
//
//	// Use the global logger
//	log := logger.GetLogger()
//	log.Info("run started")
//	log.WithField("login", "octocat").Info("candidate accepted")
//	log.WithError(err).Error("follow failed")
//
// Tests use NewTestLogger, which buffers entries in memory and exposes
// HasMessage for assertions.
package logger
