package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FallbackPolicy selects what a data source serves when a fetch fails.
type FallbackPolicy string

const (
	FallbackLastKnownGood  FallbackPolicy = "last_known_good"
	FallbackFixedDefault   FallbackPolicy = "fixed_default"
	FallbackPropagateError FallbackPolicy = "propagate_error"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Source     SourceConfig     `yaml:"source"`
	Mock       MockConfig       `yaml:"mock"`
	Poller     PollerConfig     `yaml:"poller"`
	Flags      FlagsConfig      `yaml:"flags"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port              int           `yaml:"port"`
	RateLimitPerSec   float64       `yaml:"rate_limit_per_sec"`
	RateLimitBurst    int           `yaml:"rate_limit_burst"`
	CacheTTLSeconds   int           `yaml:"cache_ttl_seconds"`
	CacheTTL          time.Duration `yaml:"-"`
	SessionTTLMinutes int           `yaml:"session_ttl_minutes"`
	SessionTTL        time.Duration `yaml:"-"`
	SecureCookies     bool          `yaml:"secure_cookies"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string `yaml:"level"`
}

// SourceConfig chooses where readings, transactions and balances come from.
type SourceConfig struct {
	// Kind is "mock" or "http".
	Kind         string               `yaml:"kind"`
	HTTP         HTTPSourceConfig     `yaml:"http"`
	Readings     FallbackPolicy       `yaml:"readings_fallback"`
	Transactions FallbackPolicy       `yaml:"transactions_fallback"`
	Balances     FallbackPolicy       `yaml:"balances_fallback"`
	Breaker      CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// HTTPSourceConfig describes the upstream API used when Kind is "http".
type HTTPSourceConfig struct {
	BaseURL        string            `yaml:"base_url"`
	Headers        map[string]string `yaml:"headers"`
	HTTPProxy      string            `yaml:"http_proxy"`
	TimeoutSeconds int               `yaml:"timeout_seconds"`
	Timeout        time.Duration     `yaml:"-"`
}

// CircuitBreakerConfig configures the breaker wrapped around the upstream API.
type CircuitBreakerConfig struct {
	MaxRequests      uint32        `yaml:"max_requests"`
	IntervalSeconds  int           `yaml:"interval_seconds"`
	Interval         time.Duration `yaml:"-"`
	TimeoutSeconds   int           `yaml:"timeout_seconds"`
	Timeout          time.Duration `yaml:"-"`
	MinRequests      uint32        `yaml:"min_requests"`
	FailureThreshold float64       `yaml:"failure_threshold"`
}

// MockConfig tunes the synthetic data generator.
type MockConfig struct {
	Jitter        float64       `yaml:"jitter"`
	Seed          uint64        `yaml:"seed"`
	LatencyMillis int           `yaml:"latency_millis"`
	Latency       time.Duration `yaml:"-"`
}

// PollerConfig holds the refresh periods.
type PollerConfig struct {
	ReadingsIntervalSeconds int           `yaml:"readings_interval_seconds"`
	ReadingsInterval        time.Duration `yaml:"-"`
	BalanceIntervalSeconds  int           `yaml:"balance_interval_seconds"`
	BalanceInterval         time.Duration `yaml:"-"`
}

// FlagsConfig selects the backend for persisted client flags.
type FlagsConfig struct {
	// Backend is "sql", "redis" or "memory".
	Backend string `yaml:"backend"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver                 string `yaml:"driver"`
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// RedisConfig is used when flags.backend is "redis".
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether alerts can be sent.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// WorkerPoolConfig holds the configuration for the alert worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// Load reads the configuration from the given path and applies defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied, used by tests and
// when running without a config file.
func Default() *Config {
	cfg := &Config{}
	// Defaults never fail on an empty config.
	_ = cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() error {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}
	cfg.Server.CacheTTL = seconds(cfg.Server.CacheTTLSeconds)
	if cfg.Server.SessionTTLMinutes <= 0 {
		cfg.Server.SessionTTLMinutes = 30
	}
	cfg.Server.SessionTTL = time.Duration(cfg.Server.SessionTTLMinutes) * time.Minute

	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		cfg.Log.Level = lvl
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	if cfg.Source.Kind == "" {
		cfg.Source.Kind = "mock"
	}
	if cfg.Source.Kind != "mock" && cfg.Source.Kind != "http" {
		return fmt.Errorf("source.kind must be mock or http, got %q", cfg.Source.Kind)
	}
	if cfg.Source.Kind == "http" && cfg.Source.HTTP.BaseURL == "" {
		return fmt.Errorf("source.http.base_url is required when source.kind is http")
	}
	if cfg.Source.HTTP.TimeoutSeconds <= 0 {
		cfg.Source.HTTP.TimeoutSeconds = 30
	}
	cfg.Source.HTTP.Timeout = seconds(cfg.Source.HTTP.TimeoutSeconds)

	for _, p := range []*FallbackPolicy{&cfg.Source.Readings, &cfg.Source.Transactions, &cfg.Source.Balances} {
		if *p == "" {
			*p = FallbackLastKnownGood
		}
		if err := p.validate(); err != nil {
			return err
		}
	}

	b := &cfg.Source.Breaker
	if b.MaxRequests == 0 {
		b.MaxRequests = 5
	}
	if b.IntervalSeconds <= 0 {
		b.IntervalSeconds = 30
	}
	b.Interval = seconds(b.IntervalSeconds)
	if b.TimeoutSeconds <= 0 {
		b.TimeoutSeconds = 60
	}
	b.Timeout = seconds(b.TimeoutSeconds)
	if b.MinRequests == 0 {
		b.MinRequests = 5
	}
	if b.FailureThreshold <= 0 || b.FailureThreshold > 1 {
		b.FailureThreshold = 0.8
	}

	cfg.Mock.Latency = time.Duration(cfg.Mock.LatencyMillis) * time.Millisecond

	if cfg.Poller.ReadingsIntervalSeconds <= 0 {
		cfg.Poller.ReadingsIntervalSeconds = 300
	}
	cfg.Poller.ReadingsInterval = seconds(cfg.Poller.ReadingsIntervalSeconds)
	if cfg.Poller.BalanceIntervalSeconds <= 0 {
		cfg.Poller.BalanceIntervalSeconds = 30
	}
	cfg.Poller.BalanceInterval = seconds(cfg.Poller.BalanceIntervalSeconds)

	cfg.Flags.Backend = strings.ToLower(cfg.Flags.Backend)
	if cfg.Flags.Backend == "" {
		cfg.Flags.Backend = "sql"
	}
	switch cfg.Flags.Backend {
	case "sql", "redis", "memory":
	default:
		return fmt.Errorf("flags.backend must be sql, redis or memory, got %q", cfg.Flags.Backend)
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "openair.db"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}
	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}
	return nil
}

func (p FallbackPolicy) validate() error {
	switch p {
	case FallbackLastKnownGood, FallbackFixedDefault, FallbackPropagateError:
		return nil
	}
	return fmt.Errorf("unknown fallback policy %q", string(p))
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
