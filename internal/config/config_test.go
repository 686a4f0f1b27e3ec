package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSelectedBackend_SearchAndCrawlWinsOverSearchOnly(t *testing.T) {
	cfg := PipelineConfig{SearchOnly: true, SearchAndCrawl: true}
	if got := cfg.SelectedBackend(); got != BackendSearchAndCrawl {
		t.Fatalf("expected SearchAndCrawl to win when both selectors are set, got %q", got)
	}
}

func TestSelectedBackend_SearchOnlyWhenOnlyOneSet(t *testing.T) {
	cfg := PipelineConfig{SearchOnly: true}
	if got := cfg.SelectedBackend(); got != BackendSearchOnly {
		t.Fatalf("expected SearchOnly, got %q", got)
	}
}

func TestSelectedBackend_ReferenceFallbackWhenNoneSet(t *testing.T) {
	cfg := PipelineConfig{}
	if got := cfg.SelectedBackend(); got != BackendReference {
		t.Fatalf("expected Reference fallback, got %q", got)
	}
}

func TestLoad_FlagsFileEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	fcPath := filepath.Join(dir, "config.yaml")
	yamlBody := "backend:\n  url: https://file-backend.example\nllm:\n  model: file-model\n"
	if err := os.WriteFile(fcPath, []byte(yamlBody), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("LLM_MODEL", "env-model")

	fs := NewFlagSet("test")
	cfg, err := Load(fs, []string{"-search-only", "-dry-run"}, fcPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.BackendBaseURL != "https://file-backend.example" {
		t.Fatalf("expected file config to supply backend URL, got %q", cfg.BackendBaseURL)
	}
	if cfg.LLMModel != "env-model" {
		t.Fatalf("expected env var to outrank file config, got %q", cfg.LLMModel)
	}
	if !cfg.SearchOnly || !cfg.DryRun {
		t.Fatalf("expected explicit flags to be honored: %+v", cfg)
	}
}

func TestLoad_MissingBackendURLFailsValidation(t *testing.T) {
	fs := NewFlagSet("test")
	if _, err := Load(fs, []string{"-dry-run"}, ""); err == nil {
		t.Fatal("expected validation error for missing backend URL")
	}
}

func TestApplyEnvOverrides_DurationParsing(t *testing.T) {
	t.Setenv("CRAWL_TIMEOUT", "30s")
	cfg := Defaults()
	ApplyEnvOverrides(&cfg)
	if cfg.CrawlTimeout != 30*time.Second {
		t.Fatalf("expected crawl timeout overridden to 30s, got %v", cfg.CrawlTimeout)
	}
}
