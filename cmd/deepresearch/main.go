package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/deepresearch/internal/backend"
	"github.com/hyperifyio/deepresearch/internal/cache"
	"github.com/hyperifyio/deepresearch/internal/config"
	"github.com/hyperifyio/deepresearch/internal/crawl"
	"github.com/hyperifyio/deepresearch/internal/dispatch"
	"github.com/hyperifyio/deepresearch/internal/llm"
	"github.com/hyperifyio/deepresearch/internal/pipeline"
	"github.com/hyperifyio/deepresearch/internal/search"
	"github.com/hyperifyio/deepresearch/internal/summarize"
)

// queryFlag collects repeated -query flags in the order they were given,
// mirroring the teacher's flat flag.*Var style rather than a subcommand
// framework.
type queryFlag []string

func (q *queryFlag) String() string { return strings.Join(*q, ",") }
func (q *queryFlag) Set(v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("query must not be empty")
	}
	*q = append(*q, v)
	return nil
}

// Cache maintenance bounds enforced at startup regardless of -cache-max-age,
// keeping a long-lived cache directory from growing unbounded across runs.
const (
	maxCacheBytes   = 512 * 1024 * 1024
	maxCacheEntries = 5000
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	fs := config.NewFlagSet("deepresearch")

	var queries queryFlag
	var topic string
	var configFile string
	fs.Underlying().Var(&queries, "query", "a search query; repeat for multiple queries")
	fs.Underlying().StringVar(&topic, "topic", string(search.TopicGeneral), "query topic: general, news, or finance")
	fs.Underlying().StringVar(&configFile, "config", "", "optional YAML/JSON config file overlaying flag defaults")

	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Error().Err(err).Msg("parse flags")
		os.Exit(2)
	}

	cfg := fs.Config()
	if configFile != "" {
		if _, statErr := os.Stat(configFile); statErr == nil {
			fc, loadErr := config.LoadConfigFile(configFile)
			if loadErr != nil {
				log.Error().Err(loadErr).Msg("load config file")
				os.Exit(2)
			}
			config.ApplyFileConfig(&cfg, fc)
		}
	}
	config.ApplyEnvOverrides(&cfg)

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		os.Exit(2)
	}

	if len(queries) == 0 {
		if rest := fs.Underlying().Args(); len(rest) > 0 {
			queries = append(queries, strings.Join(rest, " "))
		}
	}
	if len(queries) == 0 {
		log.Error().Msg("no queries given; pass -query one or more times")
		os.Exit(2)
	}

	searchQueries := make([]search.Query, 0, len(queries))
	for _, q := range queries {
		searchQueries = append(searchQueries, search.Query{
			Text:              q,
			Topic:             search.Topic(topic),
			MaxResults:        5,
			IncludeRawContent: cfg.SelectedBackend() == config.BackendSearchAndCrawl,
		})
	}

	ctx := context.Background()
	if err := run(ctx, cfg, searchQueries); err != nil {
		log.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}

// run builds the adapter selected by cfg.SelectedBackend(), wires it into a
// Pipeline, and executes it once for the given queries.
func run(ctx context.Context, cfg config.PipelineConfig, queries []search.Query) error {
	// HTTPCache and LLMCache share cfg.CacheDir: invalidate.go's
	// PurgeLLMCacheByAge/EnforceLLMCacheLimits already distinguish HTTP
	// entries (.meta.json/.body) from LLM entries (plain .json) by suffix.
	httpCache := &cache.HTTPCache{Dir: cfg.CacheDir}
	adapter, err := buildAdapter(cfg, httpCache)
	if err != nil {
		return fmt.Errorf("build backend adapter: %w", err)
	}
	defer adapter.Close()

	dispatcher := dispatch.New(adapter, cfg.InterQueryDelay)

	var enricher *crawl.Enricher
	if cfg.SelectedBackend() != config.BackendSearchAndCrawl {
		browser := crawl.NewHTTPBrowser()
		enricher = crawl.New(browser)
		enricher.Timeout = cfg.CrawlTimeout
	}

	_ = os.MkdirAll(cfg.CacheDir, 0o755) // cache maintenance below expects the dir to exist, even on a fresh run

	if cfg.CacheClear {
		if err := cache.ClearDir(cfg.CacheDir); err != nil {
			log.Warn().Err(err).Msg("clear cache dir")
		}
	} else if cfg.CacheMaxAge > 0 {
		if n, err := cache.PurgeHTTPCacheByAge(cfg.CacheDir, cfg.CacheMaxAge); err != nil {
			log.Warn().Err(err).Msg("purge http cache by age")
		} else if n > 0 {
			log.Debug().Int("removed", n).Msg("purged aged-out http cache entries")
		}
		if n, err := cache.PurgeLLMCacheByAge(cfg.CacheDir, cfg.CacheMaxAge); err != nil {
			log.Warn().Err(err).Msg("purge llm cache by age")
		} else if n > 0 {
			log.Debug().Int("removed", n).Msg("purged aged-out llm cache entries")
		}
	}
	if n, err := cache.EnforceHTTPCacheLimits(cfg.CacheDir, maxCacheBytes, maxCacheEntries); err != nil {
		log.Warn().Err(err).Msg("enforce http cache limits")
	} else if n > 0 {
		log.Debug().Int("evicted", n).Msg("evicted http cache entries over limit")
	}
	if n, err := cache.EnforceLLMCacheLimits(cfg.CacheDir, maxCacheBytes, maxCacheEntries); err != nil {
		log.Warn().Err(err).Msg("enforce llm cache limits")
	} else if n > 0 {
		log.Debug().Int("evicted", n).Msg("evicted llm cache entries over limit")
	}

	llmCache := &cache.LLMCache{Dir: cfg.CacheDir}

	var chatClient llm.Client
	if cfg.DryRun {
		chatClient = dryRunClient{}
	} else {
		transportCfg := openai.DefaultConfig(cfg.LLMAPIKey)
		if cfg.LLMBaseURL != "" {
			transportCfg.BaseURL = cfg.LLMBaseURL
		}
		chatClient = &llm.OpenAIProvider{Inner: openai.NewClientWithConfig(transportCfg)}
	}

	summarizer := summarize.New(chatClient, llmCache)

	p := pipeline.New(adapter, dispatcher, enricher, summarizer)
	p.SummarizeModel = cfg.LLMModel
	p.SummarizeMaxRetries = cfg.SummarizeMaxRetries

	output, runErr := p.Run(ctx, queries)
	fmt.Println(output)
	return runErr
}

func buildAdapter(cfg config.PipelineConfig, httpCache *cache.HTTPCache) (backend.Adapter, error) {
	switch cfg.SelectedBackend() {
	case config.BackendSearchAndCrawl:
		a := backend.NewSearchAndCrawl(cfg.BackendBaseURL)
		a.HTTPCache = httpCache
		return a, nil
	case config.BackendSearchOnly:
		a := backend.NewSearchOnly(cfg.BackendBaseURL, cfg.BackendAPIKey)
		a.HTTPCache = httpCache
		return a, nil
	default:
		a := backend.NewReference(cfg.BackendBaseURL, cfg.BackendAPIKey)
		a.HTTPCache = httpCache
		return a, nil
	}
}

// dryRunClient never calls a network model; it echoes a minimal valid
// structured response so -dry-run can exercise the full pipeline shape.
type dryRunClient struct{}

func (dryRunClient) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Content: `{"summary":"dry-run: no model called","key_excerpts":""}`},
		}},
	}, nil
}
