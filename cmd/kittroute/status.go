package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Jmi2020/KITT-sub006/internal/audit"
	"github.com/Jmi2020/KITT-sub006/internal/config"
	"github.com/Jmi2020/KITT-sub006/internal/ledger"
	"github.com/Jmi2020/KITT-sub006/pkg/models"
)

var statusRecent int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show budget usage and recent routing outcomes",
	Long: `Display per-task budget usage from the ledger snapshot and the most
recent routing outcomes from the audit store.

Shows:
  - Each task's cap, committed spend, and remaining headroom
  - Leaked reservations from crashed runs, if any
  - Recent routing outcomes with the tier that served each request`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusRecent, "recent", 10, "Number of recent outcomes to show")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := displayBudgets(cfg); err != nil {
		return err
	}
	fmt.Println()
	return displayRecentOutcomes(cfg)
}

func displayBudgets(cfg *config.Config) error {
	if _, err := os.Stat(cfg.Paths.LedgerDB); os.IsNotExist(err) {
		fmt.Println("No budget ledger yet. Run 'kittroute route <payload>' to start.")
		return nil
	}

	snapshots, err := ledger.NewSnapshotStore(cfg.Paths.LedgerDB)
	if err != nil {
		return fmt.Errorf("open ledger snapshots: %w", err)
	}
	defer snapshots.Close()

	entries, err := snapshots.Load()
	if err != nil {
		return fmt.Errorf("load ledger entries: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("No budget entries recorded.")
		return nil
	}

	fmt.Println("Task budgets:")
	for _, e := range entries {
		pct := 0
		if e.CapUSD > 0 {
			pct = int((e.CommittedUSD * 100) / e.CapUSD)
		}
		fmt.Printf("  %s: $%.4f / $%.2f committed (%d%%), $%.4f remaining\n",
			e.TaskID, e.CommittedUSD, e.CapUSD, pct, e.RemainingUSD())
		if e.ReservedUSD > 0 {
			fmt.Printf("    %s $%.4f still reserved, likely leaked by an aborted run\n",
				color.YellowString("⚠"), e.ReservedUSD)
		}
	}
	return nil
}

func displayRecentOutcomes(cfg *config.Config) error {
	if _, err := os.Stat(cfg.Paths.AuditDB); os.IsNotExist(err) {
		return nil
	}

	store, err := audit.Open(cfg.Paths.AuditDB)
	if err != nil {
		return fmt.Errorf("open audit store: %w", err)
	}
	defer store.Close()

	outcomes, err := store.RecentOutcomes(statusRecent)
	if err != nil {
		return fmt.Errorf("load recent outcomes: %w", err)
	}

	if len(outcomes) == 0 {
		fmt.Println("No routing outcomes recorded.")
		return nil
	}

	fmt.Println("Recent outcomes:")
	for _, o := range outcomes {
		marker := color.RedString("✗")
		detail := string(o.Status)
		if o.Status == models.RoutingSuccess {
			marker = color.GreenString("✓")
			detail = fmt.Sprintf("%s ($%.4f)", o.TierUsed, o.CommittedCostUSD)
		}
		fmt.Printf("  %s %s task=%s %s (%s ago)\n",
			marker, o.RequestID, o.TaskID, detail, formatDuration(time.Since(o.CreatedAt)))
	}
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	days := int(d.Hours()) / 24
	return fmt.Sprintf("%dd", days)
}
