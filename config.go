package schemagen

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/brunobiangulo/schemagen/fetch"
)

// Config holds all configuration for a schemagen engine.
type Config struct {
	LLM   LLMConfig   `json:"llm" yaml:"llm"`
	Fetch FetchConfig `json:"fetch" yaml:"fetch"`
	Run   RunConfig   `json:"run" yaml:"run"`
	Store StoreConfig `json:"store" yaml:"store"`
}

// LLMConfig configures the model endpoint used for generation and repair.
type LLMConfig struct {
	Provider        string `json:"provider" yaml:"provider"` // anthropic, openai, groq, openrouter, xai, gemini, ollama, lmstudio, custom
	Model           string `json:"model" yaml:"model"`
	BaseURL         string `json:"base_url" yaml:"base_url"`
	APIKey          string `json:"api_key" yaml:"api_key"`
	MaxTokens       int    `json:"max_tokens" yaml:"max_tokens"`
	RepairMaxTokens int    `json:"repair_max_tokens" yaml:"repair_max_tokens"`
}

// FetchConfig configures page scraping.
type FetchConfig struct {
	Enabled        bool   `json:"enabled" yaml:"enabled"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
	UserAgent      string `json:"user_agent" yaml:"user_agent"`
	MaxBytes       int64  `json:"max_bytes" yaml:"max_bytes"`
	DelayMS        int    `json:"delay_ms" yaml:"delay_ms"` // pause between page fetches

	// AllowHTTP permits plain-http pages; AllowPrivate permits hosts that
	// resolve to loopback or private ranges.
	AllowHTTP    bool `json:"allow_http" yaml:"allow_http"`
	AllowPrivate bool `json:"allow_private" yaml:"allow_private"`
}

// RunConfig tunes the batch pipeline.
type RunConfig struct {
	GenerationDelayMS int  `json:"generation_delay_ms" yaml:"generation_delay_ms"`
	GraphWiring       bool `json:"graph_wiring" yaml:"graph_wiring"`   // run the batch repair pass
	OrgDiscovery      bool `json:"org_discovery" yaml:"org_discovery"` // scrape the homepage for organization context
}

// StoreConfig controls where runs are persisted.
type StoreConfig struct {
	// DBPath is the full path to the SQLite database file.
	// If empty, defaults to ~/.schemagen/<DBName>.db
	DBPath string `json:"db_path" yaml:"db_path"`

	// DBName is the database name used when DBPath is empty.
	DBName string `json:"db_name" yaml:"db_name"`

	// StorageDir is "home" (default, ~/.schemagen/) or "local" (the
	// working directory).
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// Disabled skips persistence entirely.
	Disabled bool `json:"disabled" yaml:"disabled"`
}

// DefaultConfig returns a Config that generates with Anthropic, scrapes
// pages politely and stores runs in ~/.schemagen/schemagen.db.
func DefaultConfig() Config {
	return Config{
		LLM: LLMConfig{
			Provider:        "anthropic",
			Model:           "claude-sonnet-4-20250514",
			MaxTokens:       4096,
			RepairMaxTokens: 16000,
		},
		Fetch: FetchConfig{
			Enabled:        true,
			TimeoutSeconds: 15,
			UserAgent:      fetch.DefaultUserAgent,
			MaxBytes:       5 << 20,
			DelayMS:        500,
			AllowHTTP:      true,
		},
		Run: RunConfig{
			GenerationDelayMS: 300,
			GraphWiring:       true,
			OrgDiscovery:      true,
		},
		Store: StoreConfig{
			DBName:     "schemagen",
			StorageDir: "home",
		},
	}
}

// LoadConfig reads a YAML or JSON config file over the defaults and then
// applies environment overrides. An empty path yields the defaults plus
// the environment.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(data, &cfg)
		case ".json":
			err = json.Unmarshal(data, &cfg)
		default:
			return cfg, fmt.Errorf("%w: config file %s must be .yaml, .yml or .json", ErrInvalidConfig, path)
		}
		if err != nil {
			return cfg, fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, path, err)
		}
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from SCHEMAGEN_* variables and fills a missing
// API key from the provider's well-known variable.
func (c *Config) ApplyEnv(getenv func(string) string) {
	strs := []struct {
		key string
		dst *string
	}{
		{"SCHEMAGEN_LLM_PROVIDER", &c.LLM.Provider},
		{"SCHEMAGEN_LLM_MODEL", &c.LLM.Model},
		{"SCHEMAGEN_LLM_BASE_URL", &c.LLM.BaseURL},
		{"SCHEMAGEN_LLM_API_KEY", &c.LLM.APIKey},
		{"SCHEMAGEN_DB_PATH", &c.Store.DBPath},
		{"SCHEMAGEN_USER_AGENT", &c.Fetch.UserAgent},
	}
	for _, s := range strs {
		if v := getenv(s.key); v != "" {
			*s.dst = v
		}
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"SCHEMAGEN_FETCH_ENABLED", &c.Fetch.Enabled},
		{"SCHEMAGEN_GRAPH_WIRING", &c.Run.GraphWiring},
		{"SCHEMAGEN_ORG_DISCOVERY", &c.Run.OrgDiscovery},
	}
	for _, b := range bools {
		if v, err := strconv.ParseBool(getenv(b.key)); err == nil {
			*b.dst = v
		}
	}

	if c.LLM.APIKey == "" {
		switch strings.ToLower(c.LLM.Provider) {
		case "anthropic":
			c.LLM.APIKey = getenv("ANTHROPIC_API_KEY")
		case "openai":
			c.LLM.APIKey = getenv("OPENAI_API_KEY")
		case "groq":
			c.LLM.APIKey = getenv("GROQ_API_KEY")
		}
	}
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	if strings.TrimSpace(c.LLM.Provider) == "" {
		return fmt.Errorf("%w: llm.provider is required", ErrInvalidConfig)
	}
	if c.LLM.MaxTokens < 0 || c.LLM.RepairMaxTokens < 0 {
		return fmt.Errorf("%w: llm token limits must not be negative", ErrInvalidConfig)
	}
	if c.Fetch.TimeoutSeconds < 0 || c.Fetch.DelayMS < 0 || c.Fetch.MaxBytes < 0 {
		return fmt.Errorf("%w: fetch limits must not be negative", ErrInvalidConfig)
	}
	if c.Run.GenerationDelayMS < 0 {
		return fmt.Errorf("%w: run.generation_delay_ms must not be negative", ErrInvalidConfig)
	}
	switch c.Store.StorageDir {
	case "", "home", "local", "cwd":
	default:
		return fmt.Errorf("%w: store.storage_dir %q (want home or local)", ErrInvalidConfig, c.Store.StorageDir)
	}
	return nil
}

func (c FetchConfig) options() fetch.Options {
	return fetch.Options{
		Timeout:      time.Duration(c.TimeoutSeconds) * time.Second,
		UserAgent:    c.UserAgent,
		MaxBytes:     c.MaxBytes,
		AllowHTTP:    c.AllowHTTP,
		AllowPrivate: c.AllowPrivate,
	}
}

// resolveDBPath computes the final database path from config fields.
func (c *StoreConfig) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "schemagen"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db"
		}
		return filepath.Join(home, ".schemagen", name+".db")
	}
}
