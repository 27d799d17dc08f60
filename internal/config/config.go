// Package config loads runtime configuration from an optional YAML file and
// NUMDOX_* environment variables, with production-safe defaults for every
// key.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ScanConfig controls pacing and result limits for a scan.
type ScanConfig struct {
	// DefaultRegion is the ISO region used to parse numbers without a
	// leading country code.
	DefaultRegion string
	// MaxHits caps deduplicated hits per number.
	MaxHits int
	// QueryDelay is the minimum wall-clock spacing between queries.
	QueryDelay time.Duration
	// NumberDelay is the spacing between numbers. It defaults to
	// QueryDelay when not set explicitly.
	NumberDelay time.Duration
	// Jitter extends each delay by a random fraction of itself, 0 to 1.
	Jitter float64
	// SocialVariants overrides the keyword expansions appended to each
	// number. Nil keeps the built-in list.
	SocialVariants []string
}

// SearchConfig controls the outbound search client.
type SearchConfig struct {
	BaseURL     string
	Timeout     time.Duration
	Fingerprint string
	// UserAgents overrides the rotated User-Agent pool. Nil keeps the
	// built-in browser set.
	UserAgents []string
}

// HistoryConfig selects the scan-history backend. An empty backend disables
// persistence.
type HistoryConfig struct {
	Backend string // "", "ndjson", "sqlite" or "postgres"
	DSN     string
}

// MetricsConfig controls the Prometheus endpoint. Port 0 disables it.
type MetricsConfig struct {
	Port int
}

// LogConfig controls log output.
type LogConfig struct {
	Level string // "debug", "info", "warn" or "error"
}

// Config is the full runtime configuration.
type Config struct {
	Scan    ScanConfig
	Search  SearchConfig
	History HistoryConfig
	Metrics MetricsConfig
	Log     LogConfig
}

const (
	defaultRegion     = "ES"
	defaultMaxHits    = 5
	defaultQueryDelay = time.Second
	defaultTimeout    = 15 * time.Second
	defaultBaseURL    = "https://html.duckduckgo.com/html/"
)

// Load reads configuration from path (optional; empty means look for
// config.yaml in the working directory) and from NUMDOX_* environment
// variables. Environment variables override file values; defaults fill the
// rest. The result is validated before being returned.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("NUMDOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		// File is optional when no explicit path was given.
		_ = v.ReadInConfig()
	}

	cfg := &Config{
		Scan: ScanConfig{
			DefaultRegion:  v.GetString("scan.default_region"),
			MaxHits:        v.GetInt("scan.max_hits"),
			QueryDelay:     v.GetDuration("scan.query_delay"),
			Jitter:         v.GetFloat64("scan.jitter"),
			SocialVariants: v.GetStringSlice("scan.social_variants"),
		},
		Search: SearchConfig{
			BaseURL:     v.GetString("search.base_url"),
			Timeout:     v.GetDuration("search.timeout"),
			Fingerprint: v.GetString("search.fingerprint"),
			UserAgents:  v.GetStringSlice("search.user_agents"),
		},
		History: HistoryConfig{
			Backend: v.GetString("history.backend"),
			DSN:     v.GetString("history.dsn"),
		},
		Metrics: MetricsConfig{
			Port: v.GetInt("metrics.port"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
	}

	// The inter-number delay tracks the query delay unless the operator
	// set it explicitly.
	if v.IsSet("scan.number_delay") {
		cfg.Scan.NumberDelay = v.GetDuration("scan.number_delay")
	} else {
		cfg.Scan.NumberDelay = cfg.Scan.QueryDelay
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scan", map[string]any{
		"default_region": defaultRegion,
		"max_hits":       defaultMaxHits,
		"query_delay":    defaultQueryDelay.String(),
		"jitter":         0.0,
	})

	v.SetDefault("search", map[string]any{
		"base_url":    defaultBaseURL,
		"timeout":     defaultTimeout.String(),
		"fingerprint": "chrome",
	})

	v.SetDefault("history", map[string]any{
		"backend": "",
		"dsn":     "",
	})

	v.SetDefault("metrics", map[string]any{
		"port": 0,
	})

	v.SetDefault("log", map[string]any{
		"level": "info",
	})
}

// Validate checks the configuration for values no run could make sense of.
func (c *Config) Validate() error {
	if c.Scan.MaxHits < 1 {
		return fmt.Errorf("config: scan.max_hits must be at least 1, got %d", c.Scan.MaxHits)
	}
	if c.Scan.QueryDelay < 0 {
		return fmt.Errorf("config: scan.query_delay must not be negative, got %v", c.Scan.QueryDelay)
	}
	if c.Scan.NumberDelay < 0 {
		return fmt.Errorf("config: scan.number_delay must not be negative, got %v", c.Scan.NumberDelay)
	}
	if c.Scan.Jitter < 0 || c.Scan.Jitter > 1 {
		return fmt.Errorf("config: scan.jitter must be between 0 and 1, got %v", c.Scan.Jitter)
	}
	if c.Search.Timeout <= 0 {
		return fmt.Errorf("config: search.timeout must be positive, got %v", c.Search.Timeout)
	}
	if c.Search.BaseURL == "" {
		return fmt.Errorf("config: search.base_url must not be empty")
	}

	switch c.History.Backend {
	case "", "ndjson", "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unknown history.backend %q", c.History.Backend)
	}
	if c.History.Backend != "" && c.History.DSN == "" {
		return fmt.Errorf("config: history.dsn required for backend %q", c.History.Backend)
	}

	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("config: metrics.port out of range: %d", c.Metrics.Port)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log.level %q", c.Log.Level)
	}

	return nil
}
