package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig is the on-disk schema, nested the same way the teacher's
// internal/app.FileConfig groups related settings for readability.
type FileConfig struct {
	Backend struct {
		SearchOnly     bool   `yaml:"searchOnly" json:"searchOnly"`
		SearchAndCrawl bool   `yaml:"searchAndCrawl" json:"searchAndCrawl"`
		Reference      bool   `yaml:"reference" json:"reference"`
		URL            string `yaml:"url" json:"url"`
		Key            string `yaml:"key" json:"key"`
	} `yaml:"backend" json:"backend"`

	LLM struct {
		BaseURL string `yaml:"base" json:"base"`
		Model   string `yaml:"model" json:"model"`
		APIKey  string `yaml:"key" json:"key"`
	} `yaml:"llm" json:"llm"`

	Dispatch struct {
		Delay time.Duration `yaml:"delay" json:"delay"`
	} `yaml:"dispatch" json:"dispatch"`

	Crawl struct {
		Timeout time.Duration `yaml:"timeout" json:"timeout"`
	} `yaml:"crawl" json:"crawl"`

	Summarize struct {
		MaxRetries int `yaml:"maxRetries" json:"maxRetries"`
	} `yaml:"summarize" json:"summarize"`

	RAG struct {
		Enable bool `yaml:"enable" json:"enable"`
	} `yaml:"rag" json:"rag"`

	Cache struct {
		Dir    string        `yaml:"dir" json:"dir"`
		MaxAge time.Duration `yaml:"maxAge" json:"maxAge"`
		Clear  bool          `yaml:"clear" json:"clear"`
	} `yaml:"cache" json:"cache"`

	DryRun  bool `yaml:"dryRun" json:"dryRun"`
	Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig, dispatching on
// extension the same way the teacher's internal/app.LoadConfigFile does.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays FileConfig values into cfg wherever cfg still
// holds its Defaults()-supplied value, so flags (already parsed into cfg)
// win over the file. Boolean switches set to true in the file
// (searchAndCrawl, reference, rag.enable, and the other true-only toggles
// below) are applied regardless of flags.
func ApplyFileConfig(cfg *PipelineConfig, fc FileConfig) {
	if cfg == nil {
		return
	}
	defaults := Defaults()

	if cfg.SearchOnly == defaults.SearchOnly && fc.Backend.SearchOnly {
		cfg.SearchOnly = true
	}
	if fc.Backend.SearchAndCrawl {
		cfg.SearchAndCrawl = true
	}
	if fc.Backend.Reference {
		cfg.UseReference = true
	}
	if cfg.BackendBaseURL == "" && fc.Backend.URL != "" {
		cfg.BackendBaseURL = fc.Backend.URL
	}
	if cfg.BackendAPIKey == "" && fc.Backend.Key != "" {
		cfg.BackendAPIKey = fc.Backend.Key
	}

	if cfg.LLMBaseURL == "" && fc.LLM.BaseURL != "" {
		cfg.LLMBaseURL = fc.LLM.BaseURL
	}
	if cfg.LLMModel == "" && fc.LLM.Model != "" {
		cfg.LLMModel = fc.LLM.Model
	}
	if cfg.LLMAPIKey == "" && fc.LLM.APIKey != "" {
		cfg.LLMAPIKey = fc.LLM.APIKey
	}

	if cfg.InterQueryDelay == defaults.InterQueryDelay && fc.Dispatch.Delay > 0 {
		cfg.InterQueryDelay = fc.Dispatch.Delay
	}
	if cfg.CrawlTimeout == defaults.CrawlTimeout && fc.Crawl.Timeout > 0 {
		cfg.CrawlTimeout = fc.Crawl.Timeout
	}
	if cfg.SummarizeMaxRetries == defaults.SummarizeMaxRetries && fc.Summarize.MaxRetries > 0 {
		cfg.SummarizeMaxRetries = fc.Summarize.MaxRetries
	}
	if fc.RAG.Enable {
		cfg.EnableRAG = true
	}
	if cfg.CacheDir == defaults.CacheDir && fc.Cache.Dir != "" {
		cfg.CacheDir = fc.Cache.Dir
	}
	if cfg.CacheMaxAge == defaults.CacheMaxAge && fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = fc.Cache.MaxAge
	}
	if fc.Cache.Clear {
		cfg.CacheClear = true
	}
	if fc.DryRun {
		cfg.DryRun = true
	}
	if fc.Verbose {
		cfg.Verbose = true
	}
}
