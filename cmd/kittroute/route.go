package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Jmi2020/KITT-sub006/internal/audit"
	"github.com/Jmi2020/KITT-sub006/internal/catalog"
	"github.com/Jmi2020/KITT-sub006/internal/config"
	"github.com/Jmi2020/KITT-sub006/internal/gate"
	"github.com/Jmi2020/KITT-sub006/internal/ledger"
	"github.com/Jmi2020/KITT-sub006/internal/logging"
	"github.com/Jmi2020/KITT-sub006/internal/notify"
	"github.com/Jmi2020/KITT-sub006/internal/router"
	"github.com/Jmi2020/KITT-sub006/internal/tierclient"
	"github.com/Jmi2020/KITT-sub006/internal/tui"
	"github.com/Jmi2020/KITT-sub006/pkg/models"
)

var (
	routeTask         string
	routeCapabilities []string
	routeTier         string
	routeFresh        bool
	routeMaxCost      float64
	routeCap          float64
	routeCredential   string
)

var routeCmd = &cobra.Command{
	Use:   "route <payload>",
	Short: "Route a request through the tier pipeline",
	Long: `Route a request to the cheapest tier that satisfies its required
capabilities, escalating through the permission gate and budget ledger.

The payload is the request text sent to the serving tier's backend.

Examples:
  kittroute route "summarize this design doc"
  kittroute route --capability fresh-web-data "what changed this week?"
  kittroute route --tier frontier --task research-42 "deep analysis"
  kittroute route --max-cost 0.10 "cheap answer only"`,
	Args: cobra.ExactArgs(1),
	RunE: runRoute,
}

func init() {
	routeCmd.Flags().StringVar(&routeTask, "task", "default", "Task ID for budget accounting")
	routeCmd.Flags().StringSliceVar(&routeCapabilities, "capability", nil, "Required capability (repeatable): fresh-web-data, long-context, offline")
	routeCmd.Flags().StringVar(&routeTier, "tier", "", "Force the initial tier (local, research, frontier)")
	routeCmd.Flags().BoolVar(&routeFresh, "fresh", false, "Require fresh web data")
	routeCmd.Flags().Float64Var(&routeMaxCost, "max-cost", 0, "Per-request cost ceiling in USD (0 = no override)")
	routeCmd.Flags().Float64Var(&routeCap, "cap", 0, "Set the task's budget cap in USD before routing (0 = keep current)")
	routeCmd.Flags().StringVar(&routeCredential, "credential", "", "Override credential for gated escalations")
}

func runRoute(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Paths.DebugLog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: debug log unavailable: %v\n", err)
		logger, _ = logging.New("")
	}
	defer logger.Close()

	cat, err := buildCatalog(cfg)
	if err != nil {
		return err
	}

	led := ledger.New(cfg.Budget.DefaultTaskCapUSD)
	snapshots, err := ledger.NewSnapshotStore(cfg.Paths.LedgerDB)
	if err != nil {
		return fmt.Errorf("open ledger snapshots: %w", err)
	}
	defer snapshots.Close()

	if persisted, err := snapshots.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: ledger snapshot unreadable: %v\n", err)
	} else {
		led.Restore(persisted)
	}
	if routeCap > 0 {
		if err := led.SetCap(routeTask, routeCap); err != nil {
			return err
		}
	}

	auditStore, err := audit.Open(cfg.Paths.AuditDB)
	if err != nil {
		return fmt.Errorf("open audit store: %w", err)
	}
	defer auditStore.Close()

	permGate, err := buildGate(cfg, logger)
	if err != nil {
		return err
	}

	clients := buildClients(cfg)

	r, err := router.New(router.Config{
		Catalog: cat,
		Gate:    permGate,
		Ledger:  led,
		Clients: clients,
		Audit:   auditStore,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	// An out-of-band cancel file aborts the route; in-flight reservations
	// unwind through the router.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher, err := notify.NewSignalWatcher(cfg.Paths.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: cancel signals unavailable: %v\n", err)
	} else {
		watcher.Clear()
		watcher.OnCancel(cancel)
		defer watcher.Close()
	}

	req := models.NewRequest(routeTask, args[0])
	for _, c := range routeCapabilities {
		req.RequiredCapabilities = append(req.RequiredCapabilities, models.Capability(c))
	}
	req.ForcedTier = models.TierID(routeTier)
	req.FreshnessRequired = routeFresh
	req.MaxCostOverrideUSD = routeMaxCost

	outcome, routeErr := r.Route(ctx, req)

	if err := snapshots.Save(led.Entries()); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: saving ledger snapshot: %v\n", err)
	}

	if outcome != nil {
		displayOutcome(outcome)
		announceOutcome(cfg, outcome)
	}
	if routeErr != nil {
		return routeErr
	}
	if !outcome.Succeeded() {
		return fmt.Errorf("routing failed: %s", outcome.Status)
	}
	return nil
}

// buildCatalog loads the configured tier catalog, falling back to the
// built-in three-tier catalog.
func buildCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.Catalog.Path == "" {
		return catalog.Default(), nil
	}
	cat, err := catalog.LoadFile(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("load tier catalog: %w", err)
	}
	return cat, nil
}

// buildGate constructs the permission gate from the configured policy. The
// interactive policy gets a terminal prompt surface.
func buildGate(cfg *config.Config, logger *logging.Logger) (*gate.Gate, error) {
	policy := models.PermissionPolicy(cfg.Gate.Policy)

	opts := []gate.Option{gate.WithLogger(logger)}
	if policy == models.PolicyInteractivePrompt {
		opts = append(opts, gate.WithSurface(tui.NewTerminalSurface()))
	}
	if routeCredential != "" {
		opts = append(opts, gate.WithSuppliedCredential(routeCredential))
	}

	return gate.New(gate.Config{
		Policy:             policy,
		PromptTimeout:      cfg.Gate.PromptTimeout,
		OverrideCredential: cfg.Gate.OverrideCredential,
	}, opts...)
}

// buildClients registers a backend per tier. A tier whose backend cannot be
// constructed stays unregistered; the router treats its dispatch as failed
// and falls back.
func buildClients(cfg *config.Config) *router.Registry {
	registry := router.NewRegistry()

	local, err := tierclient.NewLocalClient(tierclient.LocalConfig{
		Endpoint: cfg.Local.Endpoint,
		Model:    cfg.Local.Model,
		Timeout:  cfg.Local.Timeout,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: local tier unavailable: %v\n", err)
	} else {
		registry.Register(models.TierLocal, local)
	}

	apiKey, _ := config.GetAPIKey(cfg)
	base := tierclient.AnthropicConfig{
		APIKey:           apiKey,
		MaxTokens:        int64(cfg.Anthropic.MaxTokens),
		UseAWSBedrock:    cfg.Anthropic.UseAWSBedrock,
		AWSRegion:        cfg.Anthropic.AWSRegion,
		AWSProfile:       cfg.Anthropic.AWSProfile,
		InputUSDPerMTok:  cfg.Anthropic.InputUSDPerMTok,
		OutputUSDPerMTok: cfg.Anthropic.OutputUSDPerMTok,
	}

	research := base
	research.Model = anthropicModel(cfg.Anthropic.ResearchModel)
	if client, err := tierclient.NewAnthropicClient(research); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: research tier unavailable: %v\n", err)
	} else {
		registry.Register(models.TierResearch, client)
	}

	frontier := base
	frontier.Model = anthropicModel(cfg.Anthropic.FrontierModel)
	if client, err := tierclient.NewAnthropicClient(frontier); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: frontier tier unavailable: %v\n", err)
	} else {
		registry.Register(models.TierFrontier, client)
	}

	return registry
}

func anthropicModel(name string) anthropic.Model {
	return anthropic.Model(name)
}

// displayOutcome prints the routing outcome with the attempt chain.
func displayOutcome(outcome *models.RoutingOutcome) {
	switch outcome.Status {
	case models.RoutingSuccess:
		fmt.Printf("%s served by tier %s (committed $%.4f)\n",
			color.GreenString("✓"), outcome.TierUsed, outcome.CommittedCostUSD)
	case models.RoutingPermissionDenied:
		fmt.Printf("%s %s\n", color.RedString("✗"), "every attempted tier was refused at the permission gate")
	case models.RoutingBudgetExceeded:
		fmt.Printf("%s %s\n", color.RedString("✗"), "no affordable tier remained under the task budget")
	default:
		fmt.Printf("%s %s\n", color.RedString("✗"), "all candidate tiers failed")
	}

	if len(outcome.Attempts) > 0 {
		fmt.Println("Attempts:")
		for i, a := range outcome.Attempts {
			line := fmt.Sprintf("  %d. %s [%s] %s", i+1, a.Tier, a.Stage, a.Reason)
			if a.Reason == "success" {
				fmt.Println(color.GreenString(line))
			} else {
				fmt.Println(color.YellowString(line))
			}
		}
	}
}

// announceOutcome records the terminal outcome on the notification channel.
func announceOutcome(cfg *config.Config, outcome *models.RoutingOutcome) {
	notifier, err := notify.NewFileNotifier(cfg.Paths.NotificationsLog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: notifications unavailable: %v\n", err)
		return
	}

	title := "route " + string(outcome.Status)
	message := fmt.Sprintf("task %s request %s", outcome.TaskID, outcome.RequestID)
	if outcome.Succeeded() {
		message = fmt.Sprintf("task %s served by %s for $%.4f", outcome.TaskID, outcome.TierUsed, outcome.CommittedCostUSD)
	}

	attempts := make([]string, len(outcome.Attempts))
	for i, a := range outcome.Attempts {
		attempts[i] = fmt.Sprintf("%s/%s: %s", a.Tier, a.Stage, a.Reason)
	}

	if err := notifier.Notify(title, message, map[string]interface{}{
		"request_id": outcome.RequestID,
		"attempts":   strings.Join(attempts, "; "),
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: notification failed: %v\n", err)
	}
}
