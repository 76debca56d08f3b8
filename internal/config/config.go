// Package config loads daemon configuration from YAML with sensible
// defaults. Flags and environment variables override file values in main.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration for YAML fields written as "2m" or "1h".
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the root daemon configuration.
type Config struct {
	Server   Server   `yaml:"server"`
	Storage  Storage  `yaml:"storage"`
	Feed     Feed     `yaml:"feed"`
	Detector Detector `yaml:"detector"`
	Monitor  Monitor  `yaml:"monitor"`
	Gate     Gate     `yaml:"gate"`
	Executor Executor `yaml:"executor"`
	Health   Health   `yaml:"health"`
	Logging  Logging  `yaml:"logging"`
}

// Server holds HTTP listener settings.
type Server struct {
	// Addr serves /health, /metrics, and /status.
	Addr string `yaml:"addr"`
}

// Storage selects the persistence backends.
type Storage struct {
	// UseMemory runs everything against in-process stores.
	UseMemory     bool   `yaml:"use_memory"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
	// RedisAddr enables the Redis feed cache when set.
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

// Feed holds market data provider settings.
type Feed struct {
	BaseURL           string   `yaml:"base_url"`
	SearchQuery       string   `yaml:"search_query"`
	MinRequestSpacing Duration `yaml:"min_request_spacing"`
	CacheTTL          Duration `yaml:"cache_ttl"`
	MaxRetries        int      `yaml:"max_retries"`
	// StreamEndpoint enables the websocket pair stream when set.
	StreamEndpoint string `yaml:"stream_endpoint"`
}

// Detector holds launch detection settings.
type Detector struct {
	Interval     Duration `yaml:"interval"`
	MinMarketCap float64  `yaml:"min_market_cap"`
	MaxMarketCap float64  `yaml:"max_market_cap"`
	MinAbsChange float64  `yaml:"min_abs_change"`
	MinVolume    float64  `yaml:"min_volume"`
	FirstSeenTTL Duration `yaml:"first_seen_ttl"`
}

// Monitor holds observation window settings.
type Monitor struct {
	Interval Duration `yaml:"interval"`
	Window   Duration `yaml:"window"`
}

// Gate holds strategy gate settings.
type Gate struct {
	// Interval is the standalone re-evaluation cadence. The executor
	// additionally evaluates the gate on demand each tick.
	Interval Duration `yaml:"interval"`
}

// Executor holds execution settings.
type Executor struct {
	Interval        Duration `yaml:"interval"`
	CandidateLimit  int      `yaml:"candidate_limit"`
	MinTradeSize    float64  `yaml:"min_trade_size"`
	EntryConfidence float64  `yaml:"entry_confidence"`
}

// Health holds market health signal settings.
type Health struct {
	CacheTTL               Duration `yaml:"cache_ttl"`
	ConservativeMultiplier float64  `yaml:"conservative_multiplier"`
}

// Logging holds log output settings.
type Logging struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `yaml:"level"`
	// Pretty switches from JSON to console output.
	Pretty bool `yaml:"pretty"`
}

// Default returns the standard configuration.
func Default() Config {
	return Config{
		Server: Server{Addr: ":9090"},
		Feed: Feed{
			BaseURL:           "https://api.dexscreener.com",
			SearchQuery:       "SOL",
			MinRequestSpacing: Duration(5 * time.Second),
			CacheTTL:          Duration(3 * time.Minute),
			MaxRetries:        3,
		},
		Detector: Detector{
			Interval:     Duration(2 * time.Minute),
			MinMarketCap: 10_000,
			MaxMarketCap: 50_000_000,
			MinAbsChange: 0.10,
			MinVolume:    500,
			FirstSeenTTL: Duration(6 * time.Hour),
		},
		Monitor: Monitor{
			Interval: Duration(2 * time.Minute),
			Window:   Duration(time.Hour),
		},
		Gate: Gate{
			Interval: Duration(time.Minute),
		},
		Executor: Executor{
			Interval:        Duration(30 * time.Second),
			CandidateLimit:  10,
			MinTradeSize:    50,
			EntryConfidence: 0.6,
		},
		Health: Health{
			CacheTTL:               Duration(5 * time.Minute),
			ConservativeMultiplier: 0.5,
		},
		Logging: Logging{Level: "info"},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
