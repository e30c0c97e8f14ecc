// Package config loads and validates agentbridge configuration from YAML
// files with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// maxConfigSize bounds config file reads.
	maxConfigSize = 10 << 20

	envPrefix = "AGENTBRIDGE"
)

// Duration wraps time.Duration so YAML values can be written as Go
// duration strings ("250ms", "30s", "720h").
type Duration time.Duration

// UnmarshalYAML accepts duration strings and integer nanosecond counts.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case int:
		*d = Duration(time.Duration(v))
	case float64:
		*d = Duration(time.Duration(v))
	default:
		return fmt.Errorf("invalid duration value %v", raw)
	}
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the complete application configuration.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	NATS    NATSConfig    `yaml:"nats"`
	Cache   CacheConfig   `yaml:"cache"`
	Queue   QueueConfig   `yaml:"queue"`
	Engine  EngineConfig  `yaml:"engine"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Validate checks logging settings.
func (c *LoggingConfig) Validate() error {
	switch strings.ToLower(c.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Level)
	}
	switch strings.ToLower(c.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of text, json", c.Format)
	}
	return nil
}

// NATSConfig defines the NATS connection and the warm cache bucket. When
// Enabled is false the L2 cache tier is skipped entirely.
type NATSConfig struct {
	Enabled       bool     `yaml:"enabled"`
	URLs          []string `yaml:"urls"`
	Name          string   `yaml:"name"`
	MaxReconnects int      `yaml:"max_reconnects"`
	ReconnectWait Duration `yaml:"reconnect_wait"`
	Username      string   `yaml:"username,omitempty"`
	Password      string   `yaml:"password,omitempty"`
	Token         string   `yaml:"token,omitempty"`
}

// Validate checks NATS settings.
func (c *NATSConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if len(c.URLs) == 0 {
		return errors.New("nats.urls is required when nats is enabled")
	}
	for i, u := range c.URLs {
		if !strings.HasPrefix(u, "nats://") && !strings.HasPrefix(u, "tls://") {
			return fmt.Errorf("nats.urls[%d] %q must start with nats:// or tls://", i, u)
		}
	}
	return nil
}

// CacheConfig sizes the three cache tiers.
type CacheConfig struct {
	L1Capacity int      `yaml:"l1_capacity"`
	L2Bucket   string   `yaml:"l2_bucket"`
	L2TTL      Duration `yaml:"l2_ttl"`
	L3Path     string   `yaml:"l3_path"` // empty disables the durable tier
	L3TTL      Duration `yaml:"l3_ttl"`
	WarmLimit  int      `yaml:"warm_limit"` // L3 entries preloaded at startup
}

// Validate checks cache settings.
func (c *CacheConfig) Validate() error {
	if c.L1Capacity < 0 {
		return fmt.Errorf("cache.l1_capacity must be non-negative, got %d", c.L1Capacity)
	}
	if c.L2TTL < 0 {
		return errors.New("cache.l2_ttl must be non-negative")
	}
	if c.L3TTL < 0 {
		return errors.New("cache.l3_ttl must be non-negative")
	}
	if c.WarmLimit < 0 {
		return fmt.Errorf("cache.warm_limit must be non-negative, got %d", c.WarmLimit)
	}
	return nil
}

// QueueConfig sizes the priority queue.
type QueueConfig struct {
	MaxQueueSize int      `yaml:"max_queue_size"`
	BatchSize    int      `yaml:"batch_size"`
	BatchTimeout Duration `yaml:"batch_timeout"`
	Concurrency  int      `yaml:"concurrency"`
	MaxRetries   int      `yaml:"max_retries"`
	RetryBase    Duration `yaml:"retry_base"`
	RetryMax     Duration `yaml:"retry_max"`
}

// Validate checks queue settings.
func (c *QueueConfig) Validate() error {
	if c.MaxQueueSize < 0 {
		return fmt.Errorf("queue.max_queue_size must be non-negative, got %d", c.MaxQueueSize)
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("queue.batch_size must be non-negative, got %d", c.BatchSize)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("queue.concurrency must be non-negative, got %d", c.Concurrency)
	}
	return nil
}

// EngineConfig tunes the translation engine.
type EngineConfig struct {
	MinConfidence    float64  `yaml:"min_confidence"`
	MaxRetries       int      `yaml:"max_retries"`
	RetryBackoff     Duration `yaml:"retry_backoff"`
	RetryBackoffMax  Duration `yaml:"retry_backoff_max"`
	DisableFallbacks bool     `yaml:"disable_fallbacks"`
	Frameworks       []string `yaml:"frameworks"` // framework-specific adapters to register
}

// Validate checks engine settings.
func (c *EngineConfig) Validate() error {
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("engine.min_confidence must be within [0,1], got %v", c.MinConfidence)
	}
	return nil
}

// MetricsConfig controls the Prometheus HTTP endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// Validate checks metrics settings.
func (c *MetricsConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("metrics.port %d is out of range", c.Port)
	}
	return nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if err := c.NATS.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if err := c.Queue.Validate(); err != nil {
		return err
	}
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	return c.Metrics.Validate()
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		NATS: NATSConfig{
			Enabled:       true,
			URLs:          []string{"nats://localhost:4222"},
			Name:          "agentbridge",
			MaxReconnects: -1,
			ReconnectWait: Duration(2 * time.Second),
		},
		Cache: CacheConfig{
			L1Capacity: 1000,
			L2Bucket:   "agentbridge-translations",
			L2TTL:      Duration(time.Hour),
			L3Path:     "agentbridge.db",
			L3TTL:      Duration(30 * 24 * time.Hour),
			WarmLimit:  200,
		},
		Queue: QueueConfig{
			MaxQueueSize: 1000,
			BatchSize:    10,
			BatchTimeout: Duration(50 * time.Millisecond),
			Concurrency:  10,
			MaxRetries:   3,
			RetryBase:    Duration(100 * time.Millisecond),
			RetryMax:     Duration(5 * time.Second),
		},
		Engine: EngineConfig{
			MinConfidence:   0.5,
			MaxRetries:      2,
			RetryBackoff:    Duration(100 * time.Millisecond),
			RetryBackoffMax: Duration(2 * time.Second),
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}

// Load reads a YAML config file over the defaults and applies environment
// overrides. An empty path returns the defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := readBounded(path)
		if err != nil {
			return nil, fmt.Errorf("config load: %w", err)
		}
		dec := yaml.NewDecoder(strings.NewReader(string(data)))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("config parse %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// readBounded reads a file refusing anything over maxConfigSize.
func readBounded(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("%s exceeds %d byte limit", path, maxConfigSize)
	}
	return os.ReadFile(path)
}

// applyEnvOverrides maps AGENTBRIDGE_* variables onto the config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(envPrefix + "_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(envPrefix + "_NATS_URLS"); v != "" {
		cfg.NATS.URLs = strings.Split(v, ",")
	}
	if v := os.Getenv(envPrefix + "_NATS_USERNAME"); v != "" {
		cfg.NATS.Username = v
	}
	if v := os.Getenv(envPrefix + "_NATS_PASSWORD"); v != "" {
		cfg.NATS.Password = v
	}
	if v := os.Getenv(envPrefix + "_NATS_TOKEN"); v != "" {
		cfg.NATS.Token = v
	}
	if v := os.Getenv(envPrefix + "_NATS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.NATS.Enabled = b
		}
	}
	if v := os.Getenv(envPrefix + "_CACHE_L3_PATH"); v != "" {
		cfg.Cache.L3Path = v
	}
	if v := os.Getenv(envPrefix + "_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}
