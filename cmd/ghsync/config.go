package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ghsync/pkg/config"
	"ghsync/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage ghsync configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables
  - .env file
  - Configuration file
  - Default values (lowest priority)`,
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create a configuration file pre-filled with the defaults.

The file is written to 'ghsync.yaml' in the current directory unless a
different path is given with --config.`,
	Run: runConfigInit,
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging every source. The token is
masked.`,
	Run: runConfigShow,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	printer := ui.NewPrinter(nil)

	path := configFile
	if path == "" {
		path = "ghsync.yaml"
	}
	if _, err := os.Stat(path); err == nil {
		printer.Error("%s already exists, refusing to overwrite", path)
		os.Exit(1)
	}

	data, err := yaml.Marshal(config.DefaultConfig())
	if err != nil {
		printer.Error("failed to render config: %v", err)
		os.Exit(1)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		printer.Error("failed to write %s: %v", path, err)
		os.Exit(1)
	}
	printer.Success("wrote %s", path)
	printer.Info("set your token with 'ghsync auth set' rather than in the file")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	printer := ui.NewPrinter(nil)

	cfg, err := loadConfig(nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	shown := *cfg
	if shown.GitHub.Token != "" {
		shown.GitHub.Token = "***"
	}

	data, err := yaml.Marshal(&shown)
	if err != nil {
		printer.Error("failed to render config: %v", err)
		os.Exit(1)
	}
	fmt.Print(string(data))
}
