// Package config loads deedscout configuration from a JSON file with
// DEEDSCOUT_* environment overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/biddeed/deedscout/internal/routing"
)

// Config holds all configuration for the service.
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Scrape    ScrapeConfig    `mapstructure:"scrape"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

func (s ServerConfig) Validate() error {
	if s.Address == "" {
		return fmt.Errorf("server.address required")
	}
	return nil
}

// LLMConfig configures the text-generation and embedding provider.
type LLMConfig struct {
	Provider       string        `mapstructure:"provider"` // openai, anthropic, gemini
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	Model          string        `mapstructure:"model"`
	EmbeddingModel string        `mapstructure:"embedding_model"`
	Temperature    float64       `mapstructure:"temperature"`
	MaxTokens      int           `mapstructure:"max_tokens"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

func (l LLMConfig) Validate() error {
	if l.Provider == "" {
		return fmt.Errorf("llm.provider required")
	}
	if l.APIKey == "" {
		return fmt.Errorf("llm.api_key required")
	}
	return nil
}

// SourceConfig describes one acquisition target and the traits that drive
// strategy selection.
type SourceConfig struct {
	Name                    string `mapstructure:"name"`
	URL                     string `mapstructure:"url"`
	HasDirectAPI            bool   `mapstructure:"has_direct_api"`
	RequiresAuth            bool   `mapstructure:"requires_auth"`
	HasComplexNavigation    bool   `mapstructure:"has_complex_navigation"`
	HasDynamicContent       bool   `mapstructure:"has_dynamic_content"`
	NeedsVisualConfirmation bool   `mapstructure:"needs_visual_confirmation"`
}

// SourcesConfig lists acquisition targets and the property-data API.
type SourcesConfig struct {
	DirectAPIBaseURL string         `mapstructure:"direct_api_base_url"`
	DirectAPIToken   string         `mapstructure:"direct_api_token"`
	Targets          []SourceConfig `mapstructure:"targets"`
}

// Descriptors converts the configured targets into routing descriptors.
// With no targets configured the built-in Brevard set is used.
func (s SourcesConfig) Descriptors() []routing.Descriptor {
	if len(s.Targets) == 0 {
		return routing.DefaultDescriptors()
	}
	descs := make([]routing.Descriptor, 0, len(s.Targets))
	for _, t := range s.Targets {
		descs = append(descs, routing.Descriptor{
			Name:                    t.Name,
			HasDirectAPI:            t.HasDirectAPI,
			RequiresAuth:            t.RequiresAuth,
			HasComplexNavigation:    t.HasComplexNavigation,
			HasDynamicContent:       t.HasDynamicContent,
			NeedsVisualConfirmation: t.NeedsVisualConfirmation,
		})
	}
	return descs
}

// Validate rejects source sets that would fail on every acquisition. A
// direct-API source (including the built-in defaults) without a configured
// base URL must fail here, not as a per-request upstream fault.
func (s SourcesConfig) Validate() error {
	for _, d := range s.Descriptors() {
		if d.HasDirectAPI && s.DirectAPIBaseURL == "" {
			return fmt.Errorf("sources.direct_api_base_url required: %s has a direct api", d.Name)
		}
	}
	return nil
}

// URLs maps source names to their configured entry URLs.
func (s SourcesConfig) URLs() map[string]string {
	m := map[string]string{}
	for _, t := range s.Targets {
		if t.URL != "" {
			m[t.Name] = t.URL
		}
	}
	return m
}

// ScrapeConfig selects and configures the browser-automation backend.
type ScrapeConfig struct {
	Backend  string        `mapstructure:"backend"` // firecrawl or chromedp
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	MaxChars int           `mapstructure:"max_chars"`
}

func (s ScrapeConfig) Validate() error {
	switch s.Backend {
	case "", "firecrawl", "chromedp":
	default:
		return fmt.Errorf("scrape.backend must be firecrawl or chromedp, got %q", s.Backend)
	}
	if s.Backend == "firecrawl" && s.APIKey == "" {
		return fmt.Errorf("scrape.api_key required for firecrawl backend")
	}
	return nil
}

// PostgresConfig for the case store.
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

func (p PostgresConfig) Validate() error {
	if p.DSN == "" {
		return fmt.Errorf("storage.postgres.dsn required")
	}
	return nil
}

// RedisConfig for the optional session cache. Empty addr disables it.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	MaxTurns int           `mapstructure:"max_turns"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// StorageConfig groups the persistence backends.
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// TelemetryConfig controls the metrics endpoint.
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load reads config from path (or the default search paths when empty),
// applies DEEDSCOUT_* environment overrides and validates every section.
// Missing required credentials fail here, before any outbound call.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.SetDefault("server.address", ":10001")
	v.SetDefault("general.default_timeout", "30s")
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.timeout", "30s")
	v.SetDefault("scrape.backend", "chromedp")
	v.SetDefault("scrape.timeout", "45s")
	v.SetDefault("storage.redis.max_turns", 20)
	v.SetDefault("storage.redis.ttl", "30m")
	v.SetDefault("telemetry.enabled", true)

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("DEEDSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine when the environment carries everything.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Server.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.LLM.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Scrape.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Sources.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Storage.Postgres.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
