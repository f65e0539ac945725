package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Jmi2020/KITT-sub006/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify kittroute configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/kittroute/config.yaml
Project-specific overrides can be placed in .kittroute.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a .kittroute.yaml template in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := writeProjectConfigTemplate(".")
		if err != nil {
			return err
		}
		if path == "" {
			fmt.Println(".kittroute.yaml already exists, not overwriting")
			return nil
		}
		fmt.Printf("Created %s\n", path)
		return nil
	},
}

// writeProjectConfigTemplate creates a commented .kittroute.yaml in dir.
// Returns the empty string if one already exists.
func writeProjectConfigTemplate(dir string) (string, error) {
	path := filepath.Join(dir, ".kittroute.yaml")
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	template := `# kittroute project configuration
# This file overrides defaults from ~/.config/kittroute/config.yaml

# gate:
#   policy: interactive_prompt   # auto_approve | interactive_prompt | override_credential
#   prompt_timeout: 60s

# budget:
#   default_task_cap_usd: 25.0

# catalog:
#   path: tiers.yaml

# local:
#   endpoint: http://127.0.0.1:11434
#   model: llama3.2

# anthropic:
#   research_model: claude-sonnet-4-5
#   frontier_model: claude-opus-4-1
#   use_aws_bedrock: false
`

	if err := os.WriteFile(path, []byte(template), 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("anthropic.api_key: %s\n", config.MaskAPIKey(cfg.Anthropic.APIKey))
	fmt.Printf("anthropic.research_model: %s\n", cfg.Anthropic.ResearchModel)
	fmt.Printf("anthropic.frontier_model: %s\n", cfg.Anthropic.FrontierModel)
	fmt.Printf("anthropic.use_aws_bedrock: %t\n", cfg.Anthropic.UseAWSBedrock)
	fmt.Printf("local.endpoint: %s\n", cfg.Local.Endpoint)
	fmt.Printf("local.model: %s\n", cfg.Local.Model)
	fmt.Printf("gate.policy: %s\n", cfg.Gate.Policy)
	fmt.Printf("gate.prompt_timeout: %s\n", cfg.Gate.PromptTimeout)
	fmt.Printf("budget.default_task_cap_usd: %.2f\n", cfg.Budget.DefaultTaskCapUSD)
	fmt.Printf("catalog.path: %s\n", displayOrUnset(cfg.Catalog.Path))
	fmt.Printf("paths.data_dir: %s\n", cfg.Paths.DataDir)
}

func displayOrUnset(v string) string {
	if v == "" {
		return "(not set)"
	}
	return v
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		return config.MaskAPIKey(cfg.Anthropic.APIKey), nil
	case "anthropic.research_model":
		return cfg.Anthropic.ResearchModel, nil
	case "anthropic.frontier_model":
		return cfg.Anthropic.FrontierModel, nil
	case "anthropic.use_aws_bedrock":
		return strconv.FormatBool(cfg.Anthropic.UseAWSBedrock), nil
	case "local.endpoint":
		return cfg.Local.Endpoint, nil
	case "local.model":
		return cfg.Local.Model, nil
	case "gate.policy":
		return cfg.Gate.Policy, nil
	case "gate.prompt_timeout":
		return cfg.Gate.PromptTimeout.String(), nil
	case "budget.default_task_cap_usd":
		return strconv.FormatFloat(cfg.Budget.DefaultTaskCapUSD, 'f', 2, 64), nil
	case "catalog.path":
		return displayOrUnset(cfg.Catalog.Path), nil
	case "paths.data_dir":
		return cfg.Paths.DataDir, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "anthropic.research_model":
		cfg.Anthropic.ResearchModel = value
	case "anthropic.frontier_model":
		cfg.Anthropic.FrontierModel = value
	case "anthropic.use_aws_bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for use_aws_bedrock: %w", err)
		}
		cfg.Anthropic.UseAWSBedrock = b
	case "local.endpoint":
		cfg.Local.Endpoint = value
	case "local.model":
		cfg.Local.Model = value
	case "gate.policy":
		switch value {
		case "auto_approve", "interactive_prompt", "override_credential":
			cfg.Gate.Policy = value
		default:
			return fmt.Errorf("invalid gate policy %q: want auto_approve, interactive_prompt, or override_credential", value)
		}
	case "gate.prompt_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for prompt_timeout: %w", err)
		}
		cfg.Gate.PromptTimeout = d
	case "budget.default_task_cap_usd":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid number for default_task_cap_usd: %w", err)
		}
		if f < 0 {
			return fmt.Errorf("default_task_cap_usd must not be negative")
		}
		cfg.Budget.DefaultTaskCapUSD = f
	case "catalog.path":
		cfg.Catalog.Path = value
	case "paths.data_dir":
		cfg.Paths.DataDir = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
