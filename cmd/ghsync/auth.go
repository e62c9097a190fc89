package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ghsync/pkg/auth"
	"ghsync/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the GitHub API token",
	Long: `Manage the stored GitHub API token.

The token is stored in:
  - System keychain (when available)
  - GITHUB_TOKEN environment variable (read-only fallback)

Create a token at https://github.com/settings/tokens with the
user:follow scope. Never commit the token to a repository.`,
}

var authSetCmd = &cobra.Command{
	Use:   "set [token]",
	Short: "Store the GitHub token securely",
	Example: `  # Paste interactively
  ghsync auth set

  # Pass directly (beware shell history)
  ghsync auth set ghp_xxxxxxxxxxxx`,
	Args: cobra.MaximumNArgs(1),
	Run:  runAuthSet,
}

var authRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the stored token",
	Run:   runAuthRemove,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show where a token is configured",
	Run:   runAuthStatus,
}

func init() {
	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authRemoveCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthSet(cmd *cobra.Command, args []string) {
	printer := ui.NewPrinter(nil)

	var token string
	if len(args) == 1 {
		token = strings.TrimSpace(args[0])
	} else {
		fmt.Print("GitHub token: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			printer.Error("failed to read token: %v", err)
			os.Exit(1)
		}
		token = strings.TrimSpace(line)
	}

	if token == "" {
		printer.Error("empty token")
		os.Exit(1)
	}

	if err := auth.NewManager().Store(token); err != nil {
		printer.Error("failed to store token: %v", err)
		os.Exit(1)
	}
	printer.Success("token stored")
}

func runAuthRemove(cmd *cobra.Command, args []string) {
	printer := ui.NewPrinter(nil)
	if err := auth.NewManager().Delete(); err != nil {
		printer.Error("failed to remove token: %v", err)
		os.Exit(1)
	}
	printer.Success("token removed")
}

func runAuthStatus(cmd *cobra.Command, args []string) {
	printer := ui.NewPrinter(nil)
	status := auth.NewManager().Status()

	rows := make([]ui.SummaryRow, 0, len(status))
	for name, present := range status {
		value := "not set"
		if present {
			value = "token present"
		}
		rows = append(rows, ui.SummaryRow{Label: name, Value: value})
	}
	printer.Summary("Token stores", rows)
}
