package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the TVL tracker.
type Config struct {
	// Base URLs for the data provider endpoints (configurable for testing)
	DefiLlamaBaseURL   string `mapstructure:"defillama_base_url"`
	DefiLlamaYieldsURL string `mapstructure:"defillama_yields_url"`
	KingdomSubgraphURL string `mapstructure:"kingdom_subgraph_url"`
	SwapXSubgraphURL   string `mapstructure:"swapx_subgraph_url"`

	// GraphAPIKey authenticates against The Graph's gateway. Optional:
	// without it the SwapX provider still works against open mirrors,
	// but the gateway itself rejects anonymous queries.
	GraphAPIKey string `mapstructure:"graph_api_key"`

	// Fetch behavior
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
	CacheTTLSeconds       int `mapstructure:"cache_ttl_seconds"`
	FetchRetries          int `mapstructure:"fetch_retries"`
	RetryBackoffMillis    int `mapstructure:"retry_backoff_ms"`
}

// RequestTimeout returns the per-request timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// CacheTTL returns the cache entry lifetime as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// RetryBackoff returns the base retry backoff as a duration.
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMillis) * time.Millisecond
}

// Load reads configuration from a .env file (when present), environment
// variables, and an optional config file. Environment variables take
// precedence over config file values.
//
// Expected environment variables (all optional):
//   - DEFILLAMA_BASE_URL
//   - DEFILLAMA_YIELDS_URL
//   - KINGDOM_SUBGRAPH_URL
//   - SWAPX_SUBGRAPH_URL
//   - GRAPH_API_KEY
//   - REQUEST_TIMEOUT_SECONDS
//   - CACHE_TTL_SECONDS
//   - FETCH_RETRIES
//   - RETRY_BACKOFF_MS
func Load() (*Config, error) {
	// Pull in a .env file when one exists; missing files are fine.
	_ = godotenv.Load()

	v := viper.New()

	// Set up environment variable support
	v.SetEnvPrefix("") // No prefix, use full names
	v.AutomaticEnv()

	// Set defaults
	v.SetDefault("defillama_base_url", "https://api.llama.fi")
	v.SetDefault("defillama_yields_url", "https://yields.llama.fi")
	v.SetDefault("kingdom_subgraph_url", "https://sonic.kingdomsubgraph.com/subgraphs/name/exp")
	v.SetDefault("swapx_subgraph_url", "https://gateway.thegraph.com/api/subgraphs/id/Gw1DrPbd1pBNorCWEfyb9i8txJ962qYqqPtuyX6iEH8u")
	v.SetDefault("request_timeout_seconds", 10)
	v.SetDefault("cache_ttl_seconds", 300)
	v.SetDefault("fetch_retries", 2)
	v.SetDefault("retry_backoff_ms", 500)

	// Optionally read from config file if it exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.tvltracker")

	// Read config file (ignore if not found)
	_ = v.ReadInConfig()

	// Bind environment variables
	v.BindEnv("defillama_base_url", "DEFILLAMA_BASE_URL")
	v.BindEnv("defillama_yields_url", "DEFILLAMA_YIELDS_URL")
	v.BindEnv("kingdom_subgraph_url", "KINGDOM_SUBGRAPH_URL")
	v.BindEnv("swapx_subgraph_url", "SWAPX_SUBGRAPH_URL")
	v.BindEnv("graph_api_key", "GRAPH_API_KEY")
	v.BindEnv("request_timeout_seconds", "REQUEST_TIMEOUT_SECONDS")
	v.BindEnv("cache_ttl_seconds", "CACHE_TTL_SECONDS")
	v.BindEnv("fetch_retries", "FETCH_RETRIES")
	v.BindEnv("retry_backoff_ms", "RETRY_BACKOFF_MS")

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate values
	var invalid []string
	if config.DefiLlamaBaseURL == "" {
		invalid = append(invalid, "DEFILLAMA_BASE_URL must not be empty")
	}
	if config.DefiLlamaYieldsURL == "" {
		invalid = append(invalid, "DEFILLAMA_YIELDS_URL must not be empty")
	}
	if config.KingdomSubgraphURL == "" {
		invalid = append(invalid, "KINGDOM_SUBGRAPH_URL must not be empty")
	}
	if config.SwapXSubgraphURL == "" {
		invalid = append(invalid, "SWAPX_SUBGRAPH_URL must not be empty")
	}
	if config.RequestTimeoutSeconds <= 0 {
		invalid = append(invalid, "REQUEST_TIMEOUT_SECONDS must be positive")
	}
	if config.CacheTTLSeconds <= 0 {
		invalid = append(invalid, "CACHE_TTL_SECONDS must be positive")
	}
	if config.FetchRetries < 0 {
		invalid = append(invalid, "FETCH_RETRIES must not be negative")
	}
	if config.RetryBackoffMillis <= 0 {
		invalid = append(invalid, "RETRY_BACKOFF_MS must be positive")
	}

	if len(invalid) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(invalid, ", "))
	}

	return config, nil
}
