package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chanmujie/ner-using-llms/internal/llm"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: \"\"\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != "8002" {
		t.Errorf("Port = %q, want 8002", cfg.Server.Port)
	}
	if cfg.Database.Path != "./data/runs.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Evaluation.BatchSize != 5 {
		t.Errorf("BatchSize = %d, want 5", cfg.Evaluation.BatchSize)
	}
	if cfg.Evaluation.PromptTag != "p1" {
		t.Errorf("PromptTag = %q, want p1", cfg.Evaluation.PromptTag)
	}
	if cfg.MaxFailuresBeforeSwitch != 3 {
		t.Errorf("MaxFailuresBeforeSwitch = %d, want 3", cfg.MaxFailuresBeforeSwitch)
	}
	if got := cfg.Evaluation.Labels; len(got) != 11 {
		t.Fatalf("default Labels = %v, want 11 entries", got)
	}
	seen := map[string]bool{}
	for _, l := range cfg.Evaluation.Labels {
		seen[l] = true
	}
	for _, l := range []string{"salutation", "country", "airport_code", "id", "plate"} {
		if !seen[l] {
			t.Errorf("default Labels missing %q: %v", l, cfg.Evaluation.Labels)
		}
	}
}

func TestLoadConfigProvidersAndEnvExpansion(t *testing.T) {
	t.Setenv("TEST_GROQ_KEY", "gsk_secret")

	path := writeConfig(t, `
server:
  port: "9001"
providers:
  - type: groq
    api_key: ${TEST_GROQ_KEY}
    model_name: llama-3.3-70b-versatile
    requests_per_minute: 30
evaluation:
  labels: [name, email, phone_number]
  batch_size: 10
  prompt_tag: p2
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if len(cfg.Providers) != 1 {
		t.Fatalf("providers = %d, want 1", len(cfg.Providers))
	}
	p := cfg.Providers[0]
	if p.Type != llm.ProviderGroq {
		t.Errorf("Type = %q, want groq", p.Type)
	}
	if p.APIKey != "gsk_secret" {
		t.Errorf("APIKey = %q, env var not expanded", p.APIKey)
	}
	if p.RequestsPerMinute != 30 {
		t.Errorf("RequestsPerMinute = %d, want 30", p.RequestsPerMinute)
	}

	if got := cfg.Evaluation.Labels; len(got) != 3 || got[0] != "name" {
		t.Errorf("Labels = %v", got)
	}
	if cfg.Evaluation.BatchSize != 10 {
		t.Errorf("BatchSize = %d, want 10", cfg.Evaluation.BatchSize)
	}
	if cfg.Evaluation.PromptTag != "p2" {
		t.Errorf("PromptTag = %q, want p2", cfg.Evaluation.PromptTag)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
