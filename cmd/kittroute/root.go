package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "kittroute",
	Short: "Tiered request router with escalation control and budget caps",
	Long: `kittroute routes requests across execution tiers (local, research,
frontier), starting at the cheapest tier that satisfies the request's
required capabilities and falling back to cheaper tiers when an attempt
is refused or fails.

Escalations to approval-gated tiers pass through a permission gate
(auto-approve, interactive prompt, or override credential), and every
dispatch is accounted against a per-task budget cap with two-phase
reserve/commit bookkeeping. Permission decisions and routing outcomes
are persisted for audit.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
