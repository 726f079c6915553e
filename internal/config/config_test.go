package config

import (
	"os"
	"testing"
)

const sampleConfig = `
llm:
  provider: openai
  base_url: https://api.example.com
  api_key: dummy
  model: gpt-4o
server:
  host: 0.0.0.0
  port: "8080"
admin:
  username: admin
  password: s3cret
risk:
  categories:
    - name: "tự hại"
      keywords: ["muốn chết", "tự tử"]
    - name: "bạo lực"
      keywords: ["bị đánh"]
`

// TestLoad verifies that Load unmarshals the full configuration tree.
func TestLoad(t *testing.T) {
	tmp, err := os.CreateTemp(t.TempDir(), "cfg-*.yaml")
	if err != nil {
		t.Fatalf("temp file: %v", err)
	}
	if _, err := tmp.WriteString(sampleConfig); err != nil {
		t.Fatalf("write: %v", err)
	}
	tmp.Close()

	t.Setenv("CONFIG_PATH", tmp.Name())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.APIKey != "dummy" {
		t.Fatalf("unexpected api key: %s", cfg.LLM.APIKey)
	}
	if cfg.Database.Path != "assistant.db" {
		t.Fatalf("expected default database path, got %s", cfg.Database.Path)
	}
	if cfg.Admin.Password != "s3cret" {
		t.Fatalf("unexpected admin password: %s", cfg.Admin.Password)
	}
	if len(cfg.Risk.Categories) != 2 {
		t.Fatalf("expected 2 risk categories, got %d", len(cfg.Risk.Categories))
	}
	if cfg.Risk.Categories[0].Name != "tự hại" {
		t.Fatalf("category order not preserved: %v", cfg.Risk.Categories)
	}
}

// TestValidate_MissingAPIKey ensures startup fails fast without LLM credentials.
func TestValidate_MissingAPIKey(t *testing.T) {
	cfg := Config{Database: DatabaseConfig{Path: "x.db"}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for missing api key")
	}
}
