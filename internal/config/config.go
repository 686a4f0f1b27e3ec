// Package config loads and validates pipeline runtime configuration,
// adapted from the teacher's internal/app/config*.go. Environment variables
// are applied last and override any value, including one set by an explicit
// flag; flags win over an optional YAML/JSON config file, which fills in
// fields still at their built-in defaults.
package config

import (
	"errors"
	"flag"
	"time"
)

// ErrConfiguration is returned by Load when required settings are missing
// or invalid; it is fatal and must fail the process before dispatch.
var ErrConfiguration = errors.New("config: invalid configuration")

// PipelineConfig holds everything the pipeline orchestrator and its
// adapters need to run one search.
type PipelineConfig struct {
	// Backend selection (spec Open Question (a)): when both SearchOnly and
	// SearchAndCrawl are true, SearchAndCrawl wins, since it already
	// supplies raw content and makes the separate Crawl Enricher stage
	// redundant for URLs it touched.
	SearchOnly     bool
	SearchAndCrawl bool
	UseReference   bool

	BackendBaseURL string
	BackendAPIKey  string

	// LLM
	LLMBaseURL string
	LLMModel   string
	LLMAPIKey  string

	// Dispatcher / crawl / summarizer timing
	InterQueryDelay time.Duration
	CrawlTimeout    time.Duration
	SummarizeMaxRetries int

	// RAG
	EnableRAG bool

	CacheDir string
	// CacheMaxAge purges HTTP/LLM cache entries older than this at startup
	// (0 disables age-based purging). CacheClear wipes the cache directory
	// entirely before the run starts.
	CacheMaxAge time.Duration
	CacheClear  bool
	DryRun      bool
	Verbose     bool
}

// BackendKind names which Adapter cmd/deepresearch constructs (via
// SelectedBackend), resolving the Open Question (a) precedence rule in one
// place.
type BackendKind string

const (
	BackendSearchAndCrawl BackendKind = "search_and_crawl"
	BackendSearchOnly     BackendKind = "search_only"
	BackendReference      BackendKind = "reference"
)

// SelectedBackend applies the Open Question (a) precedence: SearchAndCrawl
// wins when both SearchOnly and SearchAndCrawl are requested.
func (c PipelineConfig) SelectedBackend() BackendKind {
	switch {
	case c.SearchAndCrawl:
		return BackendSearchAndCrawl
	case c.SearchOnly:
		return BackendSearchOnly
	default:
		return BackendReference
	}
}

const (
	defaultInterQueryDelay     = 5 * time.Second
	defaultCrawlTimeout        = 15 * time.Second
	defaultSummarizeMaxRetries = 2
	defaultCacheDir            = ".deepresearch-cache"
)

// Defaults returns a PipelineConfig populated with the spec's documented
// defaults (§4.2 5s pacing, §4.3 15s crawl timeout).
func Defaults() PipelineConfig {
	return PipelineConfig{
		SearchOnly:          true,
		InterQueryDelay:     defaultInterQueryDelay,
		CrawlTimeout:        defaultCrawlTimeout,
		SummarizeMaxRetries: defaultSummarizeMaxRetries,
		CacheDir:            defaultCacheDir,
	}
}

// FlagSet describes the CLI surface mirrored by cmd/deepresearch, split out
// from flag.CommandLine so tests can parse an isolated set.
type FlagSet struct {
	fs  *flag.FlagSet
	cfg *PipelineConfig
}

// NewFlagSet registers pipeline flags against a fresh *PipelineConfig
// seeded with Defaults(), mirroring the teacher's cmd/goresearch flag
// wiring style (flat flag.*Var calls, not a subcommand framework).
func NewFlagSet(name string) *FlagSet {
	cfg := Defaults()
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	fs.BoolVar(&cfg.SearchOnly, "search-only", cfg.SearchOnly, "use the search-only backend (Tavily-compatible, no crawl)")
	fs.BoolVar(&cfg.SearchAndCrawl, "search-and-crawl", cfg.SearchAndCrawl, "use the search-and-crawl backend (wins over -search-only if both set)")
	fs.BoolVar(&cfg.UseReference, "reference-backend", cfg.UseReference, "use the reference fallback backend")
	fs.StringVar(&cfg.BackendBaseURL, "backend-url", cfg.BackendBaseURL, "search backend base URL")
	fs.StringVar(&cfg.BackendAPIKey, "backend-key", cfg.BackendAPIKey, "search backend API key")

	fs.StringVar(&cfg.LLMBaseURL, "llm-base", cfg.LLMBaseURL, "OpenAI-compatible LLM base URL")
	fs.StringVar(&cfg.LLMModel, "llm-model", cfg.LLMModel, "summarizer/RAG model name")
	fs.StringVar(&cfg.LLMAPIKey, "llm-key", cfg.LLMAPIKey, "LLM API key")

	fs.DurationVar(&cfg.InterQueryDelay, "dispatch-delay", cfg.InterQueryDelay, "pacing delay between dispatched queries")
	fs.DurationVar(&cfg.CrawlTimeout, "crawl-timeout", cfg.CrawlTimeout, "per-URL crawl timeout")
	fs.IntVar(&cfg.SummarizeMaxRetries, "summarize-retries", cfg.SummarizeMaxRetries, "max structured-output retries per summary")

	fs.BoolVar(&cfg.EnableRAG, "enable-rag", cfg.EnableRAG, "set EnableRAG in the config (cmd/deepresearch does not run the RAG workflow)")

	fs.StringVar(&cfg.CacheDir, "cache-dir", cfg.CacheDir, "on-disk HTTP/LLM cache directory")
	fs.DurationVar(&cfg.CacheMaxAge, "cache-max-age", cfg.CacheMaxAge, "purge cache entries older than this at startup (0 disables)")
	fs.BoolVar(&cfg.CacheClear, "cache-clear", cfg.CacheClear, "wipe the cache directory before running")
	fs.BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "replace the LLM with a canned response (search backend and crawl still run)")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "verbose logging")

	return &FlagSet{fs: fs, cfg: &cfg}
}

// Parse parses args (excluding the program name) into the FlagSet's config.
func (f *FlagSet) Parse(args []string) error {
	return f.fs.Parse(args)
}

// Config returns the flag-populated config; callers still need to layer
// ApplyEnvOverrides/ApplyFileConfig and Validate on top.
func (f *FlagSet) Config() PipelineConfig {
	return *f.cfg
}

// Underlying exposes the wrapped *flag.FlagSet so callers (cmd/ entrypoints)
// can register command-specific flags, e.g. -query, alongside the shared
// pipeline flags.
func (f *FlagSet) Underlying() *flag.FlagSet {
	return f.fs
}

// Validate performs minimal schema validation, mirroring the teacher's
// ValidateConfig: dry-run tolerates a missing model, a live run does not.
func Validate(cfg PipelineConfig) error {
	if !cfg.SearchOnly && !cfg.SearchAndCrawl && !cfg.UseReference {
		return errors.New("config: no search backend selected")
	}
	if trim(cfg.BackendBaseURL) == "" {
		return errors.New("config: backend-url is required")
	}
	if !cfg.DryRun && trim(cfg.LLMModel) == "" {
		return errors.New("config: llm-model is required (or set LLM_MODEL), unless -dry-run")
	}
	if cfg.InterQueryDelay < 0 || cfg.CrawlTimeout < 0 || cfg.SummarizeMaxRetries < 0 {
		return errors.New("config: negative durations/retries are not allowed")
	}
	return nil
}

func trim(s string) string {
	i, j := 0, len(s)
	for i < j && isSpace(s[i]) {
		i++
	}
	for j > i && isSpace(s[j-1]) {
		j--
	}
	return s[i:j]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
