// Package config loads the engine configuration from YAML with
// environment variable fallbacks.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	// Backend is the platform API the engine talks to.
	Backend BackendConfig `yaml:"backend"`

	// Chat tunes the message pipeline.
	Chat ChatConfig `yaml:"chat"`

	// Redis configures the optional session summary cache. Leave
	// Addr empty to use the in-memory cache.
	Redis RedisConfig `yaml:"redis"`

	// Observability configures metrics, health and tracing.
	Observability ObservabilityConfig `yaml:"observability"`

	// RefreshSchedule is a cron expression for the background
	// session listing refresh. Empty disables it.
	RefreshSchedule string `yaml:"refresh_schedule"`
}

// BackendConfig holds the platform API endpoint settings
type BackendConfig struct {
	URL            string        `yaml:"url"`
	AuthToken      string        `yaml:"auth_token"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// ChatConfig holds the message pipeline settings
type ChatConfig struct {
	// SendInterval is the minimum spacing between sends in one
	// conversation.
	SendInterval time.Duration `yaml:"send_interval"`
}

// RedisConfig holds the summary cache settings
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// ObservabilityConfig holds metrics and tracing settings
type ObservabilityConfig struct {
	EnableMetrics bool `yaml:"enable_metrics"`
	MetricsPort   int  `yaml:"metrics_port"`

	// TraceExporter selects the span exporter: otlp, stdout or
	// none.
	TraceExporter string `yaml:"trace_exporter"`
	TraceEndpoint string `yaml:"trace_endpoint"`
}

// maxConfigSize caps config files at 1MB.
const maxConfigSize = 1 << 20

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("config file too large: %d bytes", info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration built purely from environment
// variables and defaults, for running without a config file.
func Default() *Config {
	var cfg Config
	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyEnv() {
	if c.Backend.URL == "" {
		c.Backend.URL = os.Getenv("TUTORCHAT_BACKEND_URL")
	}
	if c.Backend.AuthToken == "" {
		c.Backend.AuthToken = os.Getenv("TUTORCHAT_AUTH_TOKEN")
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = os.Getenv("TUTORCHAT_REDIS_ADDR")
	}
	if c.Redis.Password == "" {
		c.Redis.Password = os.Getenv("TUTORCHAT_REDIS_PASSWORD")
	}
	if c.Observability.TraceExporter == "" {
		c.Observability.TraceExporter = os.Getenv("TUTORCHAT_TRACE_EXPORTER")
	}
	if c.Observability.TraceEndpoint == "" {
		c.Observability.TraceEndpoint = os.Getenv("TUTORCHAT_TRACE_ENDPOINT")
	}
	if c.Observability.MetricsPort == 0 {
		if port, err := strconv.Atoi(os.Getenv("TUTORCHAT_METRICS_PORT")); err == nil {
			c.Observability.MetricsPort = port
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Backend.RequestTimeout == 0 {
		c.Backend.RequestTimeout = 60 * time.Second
	}
	if c.Chat.SendInterval == 0 {
		c.Chat.SendInterval = time.Second
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = 24 * time.Hour
	}
	if c.Observability.MetricsPort == 0 {
		c.Observability.MetricsPort = 9090
	}
	if c.Observability.TraceExporter == "" {
		c.Observability.TraceExporter = "none"
	}
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Backend.URL == "" {
		return fmt.Errorf("backend.url is required")
	}
	u, err := url.Parse(c.Backend.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("backend.url must be an http(s) URL")
	}

	switch c.Observability.TraceExporter {
	case "otlp", "stdout", "none":
	default:
		return fmt.Errorf("observability.trace_exporter must be otlp, stdout or none")
	}

	return nil
}
