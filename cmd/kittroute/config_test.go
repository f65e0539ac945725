package main

import (
	"testing"
	"time"

	"github.com/Jmi2020/KITT-sub006/internal/config"
)

func TestSetConfigValue(t *testing.T) {
	cfg := config.Default()

	tests := []struct {
		key     string
		value   string
		wantErr bool
	}{
		{"gate.policy", "auto_approve", false},
		{"gate.policy", "ask_nicely", true},
		{"gate.prompt_timeout", "45s", false},
		{"gate.prompt_timeout", "soon", true},
		{"budget.default_task_cap_usd", "12.50", false},
		{"budget.default_task_cap_usd", "-3", true},
		{"anthropic.use_aws_bedrock", "true", false},
		{"anthropic.use_aws_bedrock", "maybe", true},
		{"local.model", "qwen2.5", false},
		{"no.such.key", "x", true},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			err := setConfigValue(cfg, tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("setConfigValue(%q, %q) error = %v, wantErr %v", tt.key, tt.value, err, tt.wantErr)
			}
		})
	}

	if cfg.Gate.Policy != "auto_approve" {
		t.Errorf("Gate.Policy = %q", cfg.Gate.Policy)
	}
	if cfg.Gate.PromptTimeout != 45*time.Second {
		t.Errorf("Gate.PromptTimeout = %v", cfg.Gate.PromptTimeout)
	}
	if cfg.Budget.DefaultTaskCapUSD != 12.50 {
		t.Errorf("DefaultTaskCapUSD = %v", cfg.Budget.DefaultTaskCapUSD)
	}
}

func TestGetConfigValue(t *testing.T) {
	cfg := config.Default()
	cfg.Anthropic.APIKey = "sk-ant-REDACTED"

	got, err := getConfigValue(cfg, "anthropic.api_key")
	if err != nil {
		t.Fatalf("getConfigValue: %v", err)
	}
	if got != "sk-ant-...1234" {
		t.Errorf("api_key displayed unmasked: %q", got)
	}

	got, err = getConfigValue(cfg, "gate.policy")
	if err != nil {
		t.Fatalf("getConfigValue: %v", err)
	}
	if got != "interactive_prompt" {
		t.Errorf("gate.policy = %q", got)
	}

	if _, err := getConfigValue(cfg, "bogus"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestWriteProjectConfigTemplate(t *testing.T) {
	dir := t.TempDir()

	path, err := writeProjectConfigTemplate(dir)
	if err != nil {
		t.Fatalf("writeProjectConfigTemplate: %v", err)
	}
	if path == "" {
		t.Fatal("expected template to be created")
	}

	// A second call must not overwrite.
	path, err = writeProjectConfigTemplate(dir)
	if err != nil {
		t.Fatalf("writeProjectConfigTemplate: %v", err)
	}
	if path != "" {
		t.Error("expected existing template to be left alone")
	}
}
