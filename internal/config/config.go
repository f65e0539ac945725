// Package config handles configuration loading and management for kittroute.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for kittroute.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Local     LocalConfig     `mapstructure:"local"`
	Gate      GateConfig      `mapstructure:"gate"`
	Budget    BudgetConfig    `mapstructure:"budget"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Paths     PathsConfig     `mapstructure:"paths"`
}

// AnthropicConfig holds settings for the paid tier backends.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	// ResearchModel serves the research tier.
	ResearchModel string `mapstructure:"research_model"`
	// FrontierModel serves the frontier tier.
	FrontierModel string `mapstructure:"frontier_model"`
	MaxTokens     int    `mapstructure:"max_tokens"`
	// UseAWSBedrock routes API calls through Bedrock instead of the
	// Anthropic API directly.
	UseAWSBedrock bool   `mapstructure:"use_aws_bedrock"`
	AWSRegion     string `mapstructure:"aws_region"`
	AWSProfile    string `mapstructure:"aws_profile"`
	// InputUSDPerMTok and OutputUSDPerMTok meter actual dispatch cost.
	InputUSDPerMTok  float64 `mapstructure:"input_usd_per_mtok"`
	OutputUSDPerMTok float64 `mapstructure:"output_usd_per_mtok"`
}

// LocalConfig holds settings for the local offline tier backend.
type LocalConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Model    string        `mapstructure:"model"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// GateConfig holds permission gate settings.
type GateConfig struct {
	// Policy is auto_approve, interactive_prompt, or override_credential.
	Policy string `mapstructure:"policy"`
	// PromptTimeout bounds interactive approval waits.
	PromptTimeout time.Duration `mapstructure:"prompt_timeout"`
	// OverrideCredential is the expected credential for the
	// override_credential policy.
	OverrideCredential string `mapstructure:"override_credential"`
}

// BudgetConfig holds spend ledger settings.
type BudgetConfig struct {
	// DefaultTaskCapUSD caps tasks with no explicit budget entry.
	DefaultTaskCapUSD float64 `mapstructure:"default_task_cap_usd"`
}

// CatalogConfig holds tier catalog settings.
type CatalogConfig struct {
	// Path points to a YAML tier catalog. Empty uses the built-in catalog.
	Path string `mapstructure:"path"`
}

// PathsConfig holds filesystem locations for persistent state.
type PathsConfig struct {
	// DataDir is the base directory for databases, logs, and signals.
	DataDir string `mapstructure:"data_dir"`
	// DebugLog enables the debug logger when set.
	DebugLog string `mapstructure:"debug_log"`
	// NotificationsLog is where terminal outcomes are announced.
	NotificationsLog string `mapstructure:"notifications_log"`
	// LedgerDB persists budget ledger snapshots.
	LedgerDB string `mapstructure:"ledger_db"`
	// AuditDB persists permission decisions and routing outcomes.
	AuditDB string `mapstructure:"audit_db"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, KITTROUTE_GATE_CREDENTIAL)
// 2. Project config (.kittroute.yaml in current directory or parent)
// 3. User config (~/.config/kittroute/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("gate.override_credential", "KITTROUTE_GATE_CREDENTIAL")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	cfg.applyPathDefaults()

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	cfg.applyPathDefaults()

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.research_model", cfg.Anthropic.ResearchModel)
	v.Set("anthropic.frontier_model", cfg.Anthropic.FrontierModel)
	v.Set("anthropic.max_tokens", cfg.Anthropic.MaxTokens)
	v.Set("anthropic.use_aws_bedrock", cfg.Anthropic.UseAWSBedrock)
	v.Set("anthropic.aws_region", cfg.Anthropic.AWSRegion)
	v.Set("anthropic.aws_profile", cfg.Anthropic.AWSProfile)
	v.Set("anthropic.input_usd_per_mtok", cfg.Anthropic.InputUSDPerMTok)
	v.Set("anthropic.output_usd_per_mtok", cfg.Anthropic.OutputUSDPerMTok)
	v.Set("local.endpoint", cfg.Local.Endpoint)
	v.Set("local.model", cfg.Local.Model)
	v.Set("local.timeout", cfg.Local.Timeout.String())
	v.Set("gate.policy", cfg.Gate.Policy)
	v.Set("gate.prompt_timeout", cfg.Gate.PromptTimeout.String())
	v.Set("budget.default_task_cap_usd", cfg.Budget.DefaultTaskCapUSD)
	v.Set("catalog.path", cfg.Catalog.Path)
	v.Set("paths.data_dir", cfg.Paths.DataDir)
	v.Set("paths.debug_log", cfg.Paths.DebugLog)
	v.Set("paths.notifications_log", cfg.Paths.NotificationsLog)
	v.Set("paths.ledger_db", cfg.Paths.LedgerDB)
	v.Set("paths.audit_db", cfg.Paths.AuditDB)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.research_model", "claude-sonnet-4-5")
	v.SetDefault("anthropic.frontier_model", "claude-opus-4-1")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.use_aws_bedrock", false)
	v.SetDefault("anthropic.input_usd_per_mtok", 3.0)
	v.SetDefault("anthropic.output_usd_per_mtok", 15.0)

	v.SetDefault("local.endpoint", "http://127.0.0.1:11434")
	v.SetDefault("local.model", "llama3.2")
	v.SetDefault("local.timeout", "2m")

	v.SetDefault("gate.policy", "interactive_prompt")
	v.SetDefault("gate.prompt_timeout", "60s")

	v.SetDefault("budget.default_task_cap_usd", 25.0)

	v.SetDefault("catalog.path", "")
}

// applyPathDefaults fills in path settings derived from the data directory.
func (cfg *Config) applyPathDefaults() {
	if cfg.Paths.DataDir == "" {
		cfg.Paths.DataDir = getUserDataDir()
	}
	if cfg.Paths.NotificationsLog == "" {
		cfg.Paths.NotificationsLog = filepath.Join(cfg.Paths.DataDir, "notifications.log")
	}
	if cfg.Paths.LedgerDB == "" {
		cfg.Paths.LedgerDB = filepath.Join(cfg.Paths.DataDir, "ledger.db")
	}
	if cfg.Paths.AuditDB == "" {
		cfg.Paths.AuditDB = filepath.Join(cfg.Paths.DataDir, "audit.db")
	}
}

// getUserConfigDir returns the XDG config directory for kittroute.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "kittroute")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "kittroute")
	}
	return filepath.Join(home, ".config", "kittroute")
}

// getUserDataDir returns the XDG data directory for kittroute.
func getUserDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "kittroute")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".local", "share", "kittroute")
	}
	return filepath.Join(home, ".local", "share", "kittroute")
}

// findProjectConfig searches for .kittroute.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".kittroute.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	cfg := &Config{
		Anthropic: AnthropicConfig{
			ResearchModel:    "claude-sonnet-4-5",
			FrontierModel:    "claude-opus-4-1",
			MaxTokens:        4096,
			InputUSDPerMTok:  3.0,
			OutputUSDPerMTok: 15.0,
		},
		Local: LocalConfig{
			Endpoint: "http://127.0.0.1:11434",
			Model:    "llama3.2",
			Timeout:  2 * time.Minute,
		},
		Gate: GateConfig{
			Policy:        "interactive_prompt",
			PromptTimeout: 60 * time.Second,
		},
		Budget: BudgetConfig{
			DefaultTaskCapUSD: 25.0,
		},
	}
	cfg.applyPathDefaults()
	return cfg
}
