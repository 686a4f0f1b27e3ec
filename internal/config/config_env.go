package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides forcefully overrides cfg fields with environment
// variables when the corresponding env var is set and non-empty, mirroring
// the teacher's internal/app.ApplyEnvOverrides. It replaces whatever cfg
// already holds, including values from a config file or an explicitly-set
// flag; Load and cmd/deepresearch apply it after flags and the file.
func ApplyEnvOverrides(cfg *PipelineConfig) {
	if cfg == nil {
		return
	}

	if v := os.Getenv("BACKEND_URL"); v != "" {
		cfg.BackendBaseURL = v
	}
	if v := os.Getenv("BACKEND_KEY"); v != "" {
		cfg.BackendAPIKey = v
	}

	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLMBaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLMModel = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLMAPIKey = v
	}

	if v := os.Getenv("CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("CACHE_MAX_AGE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheMaxAge = d
		}
	}

	if v := os.Getenv("DISPATCH_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.InterQueryDelay = d
		}
	}
	if v := os.Getenv("CRAWL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CrawlTimeout = d
		}
	}
	if v := os.Getenv("SUMMARIZE_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.SummarizeMaxRetries = n
		}
	}

	setBool := func(dst *bool, envKey string) {
		s := strings.ToLower(strings.TrimSpace(os.Getenv(envKey)))
		switch s {
		case "1", "true", "yes", "on":
			*dst = true
		case "0", "false", "no", "off":
			*dst = false
		}
	}
	setBool(&cfg.SearchOnly, "SEARCH_ONLY")
	setBool(&cfg.SearchAndCrawl, "SEARCH_AND_CRAWL")
	setBool(&cfg.UseReference, "REFERENCE_BACKEND")
	setBool(&cfg.EnableRAG, "ENABLE_RAG")
	setBool(&cfg.CacheClear, "CACHE_CLEAR")
	setBool(&cfg.DryRun, "DRY_RUN")
	setBool(&cfg.Verbose, "VERBOSE")
}
