// Package config holds the runtime configuration of agentchat binaries.
//
// Values are layered: Default, then an optional YAML file, then AGENTCHAT_*
// environment variables. Nested sections extend the variable name, so
// Model.Temperature is read from AGENTCHAT_MODEL_TEMPERATURE.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration.
type Config struct {
	Model   ModelConfig   `yaml:"model" env:"MODEL"`
	Log     LogConfig     `yaml:"log" env:"LOG"`
	Chat    ChatConfig    `yaml:"chat" env:"CHAT"`
	Store   StoreConfig   `yaml:"store" env:"STORE"`
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`
}

// ModelConfig selects and tunes the model provider.
type ModelConfig struct {
	// Provider is one of openai, anthropic, gemini, ollama or mock.
	Provider    string  `yaml:"provider" env:"PROVIDER"`
	Name        string  `yaml:"name" env:"NAME"`
	Temperature float64 `yaml:"temperature" env:"TEMPERATURE"`
	MaxTokens   int64   `yaml:"max_tokens" env:"MAX_TOKENS"`
	APIKey      string  `yaml:"api_key" env:"API_KEY"`
	BaseURL     string  `yaml:"base_url" env:"BASE_URL"`
	// RequestsPerSecond throttles model calls. 0 disables throttling.
	RequestsPerSecond float64 `yaml:"requests_per_second" env:"REQUESTS_PER_SECOND"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
	// Format is json or text.
	Format string `yaml:"format" env:"FORMAT"`
	// Backend is slog or zap.
	Backend string `yaml:"backend" env:"BACKEND"`
}

// ChatConfig holds conversation limits and function call policies.
type ChatConfig struct {
	MaxTurns      int `yaml:"max_turns" env:"MAX_TURNS"`
	MaxModelCalls int `yaml:"max_model_calls" env:"MAX_MODEL_CALLS"`
	// UnresolvedPolicy is halt, forward or fail.
	UnresolvedPolicy string `yaml:"unresolved_policy" env:"UNRESOLVED_POLICY"`
	Multicall        bool   `yaml:"multicall" env:"MULTICALL"`
	// MulticallMissing is omit or fail.
	MulticallMissing string `yaml:"multicall_missing" env:"MULTICALL_MISSING"`
}

// StoreConfig selects where transcripts are persisted.
type StoreConfig struct {
	// Type is memory, redis, sql or none.
	Type  string      `yaml:"type" env:"TYPE"`
	Redis RedisConfig `yaml:"redis" env:"REDIS"`
	SQL   SQLConfig   `yaml:"sql" env:"SQL"`
}

// RedisConfig configures the redis transcript store.
type RedisConfig struct {
	Addr      string        `yaml:"addr" env:"ADDR"`
	Password  string        `yaml:"password" env:"PASSWORD"`
	DB        int           `yaml:"db" env:"DB"`
	KeyPrefix string        `yaml:"key_prefix" env:"KEY_PREFIX"`
	TTL       time.Duration `yaml:"ttl" env:"TTL"`
}

// SQLConfig configures the gorm transcript store.
type SQLConfig struct {
	// Driver is sqlite, postgres or mysql.
	Driver string `yaml:"driver" env:"DRIVER"`
	DSN    string `yaml:"dsn" env:"DSN"`
}

// MetricsConfig configures the prometheus collector.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
	Listen    string `yaml:"listen" env:"LISTEN"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Provider:    "openai",
			Name:        "gpt-4",
			Temperature: 0,
			MaxTokens:   4096,
		},
		Log: LogConfig{
			Level:   "info",
			Format:  "text",
			Backend: "slog",
		},
		Chat: ChatConfig{
			MaxTurns:         50,
			UnresolvedPolicy: "halt",
			MulticallMissing: "omit",
		},
		Store: StoreConfig{
			Type: "memory",
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "agentchat",
			},
			SQL: SQLConfig{
				Driver: "sqlite",
				DSN:    "agentchat.db",
			},
		},
		Metrics: MetricsConfig{
			Namespace: "agentchat",
			Listen:    ":9090",
		},
	}
}

// Validate checks the configuration for values the runtime cannot use.
func (c *Config) Validate() error {
	var errs []error

	switch c.Model.Provider {
	case "openai", "anthropic", "gemini", "ollama", "mock":
	default:
		errs = append(errs, fmt.Errorf("model.provider %q is not supported", c.Model.Provider))
	}
	if c.Model.Provider != "mock" && c.Model.Name == "" {
		errs = append(errs, errors.New("model.name is required"))
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		errs = append(errs, errors.New("model.temperature must be between 0 and 2"))
	}
	if c.Model.MaxTokens < 0 {
		errs = append(errs, errors.New("model.max_tokens must not be negative"))
	}
	if c.Model.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("model.requests_per_second must not be negative"))
	}

	if !oneOf(c.Log.Format, "json", "text") {
		errs = append(errs, fmt.Errorf("log.format %q must be json or text", c.Log.Format))
	}
	if !oneOf(c.Log.Backend, "slog", "zap") {
		errs = append(errs, fmt.Errorf("log.backend %q must be slog or zap", c.Log.Backend))
	}

	if c.Chat.MaxTurns < 0 {
		errs = append(errs, errors.New("chat.max_turns must not be negative"))
	}
	if c.Chat.MaxModelCalls < 0 {
		errs = append(errs, errors.New("chat.max_model_calls must not be negative"))
	}
	if !oneOf(c.Chat.UnresolvedPolicy, "", "halt", "forward", "fail") {
		errs = append(errs, fmt.Errorf("chat.unresolved_policy %q is not supported", c.Chat.UnresolvedPolicy))
	}
	if !oneOf(c.Chat.MulticallMissing, "", "omit", "fail") {
		errs = append(errs, fmt.Errorf("chat.multicall_missing %q is not supported", c.Chat.MulticallMissing))
	}

	switch c.Store.Type {
	case "", "none", "memory":
	case "redis":
		if c.Store.Redis.Addr == "" {
			errs = append(errs, errors.New("store.redis.addr is required"))
		}
	case "sql":
		if !oneOf(c.Store.SQL.Driver, "sqlite", "postgres", "mysql") {
			errs = append(errs, fmt.Errorf("store.sql.driver %q is not supported", c.Store.SQL.Driver))
		}
		if c.Store.SQL.DSN == "" {
			errs = append(errs, errors.New("store.sql.dsn is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.type %q is not supported", c.Store.Type))
	}

	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		errs = append(errs, errors.New("metrics.namespace is required when metrics are enabled"))
	}

	return errors.Join(errs...)
}

func oneOf(v string, allowed ...string) bool {
	v = strings.ToLower(v)
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
