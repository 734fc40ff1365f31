package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/expertpanel/expert"
	"github.com/hupe1980/expertpanel/graph"
	"github.com/hupe1980/expertpanel/logging"
	"github.com/hupe1980/expertpanel/provider"
	"github.com/hupe1980/expertpanel/session"
)

// Config is the complete service configuration.
type Config struct {
	Server    ServerConfig               `yaml:"server" toml:"server"`
	Session   SessionConfig              `yaml:"session" toml:"session"`
	Chat      ChatConfig                 `yaml:"chat" toml:"chat"`
	Panel     PanelConfig                `yaml:"panel" toml:"panel"`
	Providers map[string]provider.Config `yaml:"providers" toml:"providers"`
	Logging   LoggingConfig              `yaml:"logging" toml:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Address         string        `yaml:"address" toml:"address"`
	ReadTimeout     time.Duration `yaml:"read_timeout" toml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" toml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64 `yaml:"max_body_bytes" toml:"max_body_bytes"`
}

// SessionConfig controls history windowing.
type SessionConfig struct {
	// WindowSize is the number of non-system messages kept; negative keeps all.
	WindowSize int `yaml:"window_size" toml:"window_size"`
}

// ChatConfig configures single-agent mode.
type ChatConfig struct {
	Provider     provider.Config `yaml:"provider" toml:"provider"`
	SystemPrompt string          `yaml:"system_prompt" toml:"system_prompt"`
	// Timezone is an IANA zone name used for the injected date and time.
	Timezone string `yaml:"timezone" toml:"timezone"`
}

// PanelConfig configures the expert graph.
type PanelConfig struct {
	Strategy string        `yaml:"strategy" toml:"strategy"`
	Timeout  time.Duration `yaml:"timeout" toml:"timeout"`
	// SynthesisPrompt replaces the built-in synthesis meta-prompt template.
	SynthesisPrompt string `yaml:"synthesis_prompt" toml:"synthesis_prompt"`
	// MaxConcurrentRequests caps in-flight requests; zero means unlimited.
	MaxConcurrentRequests int64 `yaml:"max_concurrent_requests" toml:"max_concurrent_requests"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level     string `yaml:"level" toml:"level"`
	Format    string `yaml:"format" toml:"format"`
	AddSource bool   `yaml:"add_source" toml:"add_source"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads path, choosing the decoder by extension (.yaml, .yml or .toml),
// then applies defaults and validates. An empty path yields Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg, err := Parse(filepath.Ext(path), data)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data in the format named by ext, applies defaults and validates.
func Parse(ext string, data []byte) (*Config, error) {
	var cfg Config
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	case "toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("decode toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 5 * time.Minute
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = 1 << 20
	}

	if c.Session.WindowSize == 0 {
		c.Session.WindowSize = session.DefaultWindowSize
	}

	c.Chat.Provider.Kind = c.Chat.Provider.Kind.Normalize()
	for role, p := range c.Providers {
		p.Kind = p.Kind.Normalize()
		c.Providers[role] = p
	}
	if c.Chat.Provider.Kind == "" {
		c.Chat.Provider.Kind = provider.KindGroq
		if c.Chat.Provider.Model == "" {
			c.Chat.Provider.Model = "llama-3.1-8b-instant"
		}
	}
	if c.Chat.Provider.Temperature == nil {
		c.Chat.Provider.Temperature = provider.Float(0.2)
	}
	if c.Chat.Timezone == "" {
		c.Chat.Timezone = "UTC"
	}

	if c.Panel.Strategy == "" {
		c.Panel.Strategy = string(graph.StrategySequential)
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if _, err := graph.ParseStrategy(c.Panel.Strategy); err != nil {
		errs = append(errs, fmt.Errorf("panel.strategy: %w", err))
	}
	if c.Panel.Timeout < 0 {
		errs = append(errs, errors.New("panel.timeout must not be negative"))
	}
	if c.Panel.MaxConcurrentRequests < 0 {
		errs = append(errs, errors.New("panel.max_concurrent_requests must not be negative"))
	}
	if _, err := time.LoadLocation(c.Chat.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("chat.timezone: %w", err))
	}
	if _, err := provider.ParseKind(string(c.Chat.Provider.Kind)); err != nil {
		errs = append(errs, fmt.Errorf("chat.provider: %w", err))
	}
	for role, p := range c.Providers {
		if p.Kind == "" {
			continue
		}
		if _, err := provider.ParseKind(string(p.Kind)); err != nil {
			errs = append(errs, fmt.Errorf("providers.%s: %w", role, err))
		}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format: unknown format %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// ApplyEnvOverrides applies EXPERTPANEL_* variables read through getenv.
//
// Supported variables:
//   - EXPERTPANEL_ADDRESS: server.address
//   - EXPERTPANEL_STRATEGY: panel.strategy
//   - EXPERTPANEL_WINDOW_SIZE: session.window_size
//   - EXPERTPANEL_TIMEZONE: chat.timezone
//   - EXPERTPANEL_LOG_LEVEL: logging.level
//   - EXPERTPANEL_LOG_FORMAT: logging.format
func (c *Config) ApplyEnvOverrides(getenv func(string) string) error {
	if v := getenv("EXPERTPANEL_ADDRESS"); v != "" {
		c.Server.Address = v
	}
	if v := getenv("EXPERTPANEL_STRATEGY"); v != "" {
		c.Panel.Strategy = v
	}
	if v := getenv("EXPERTPANEL_WINDOW_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("EXPERTPANEL_WINDOW_SIZE: %w", err)
		}
		c.Session.WindowSize = n
	}
	if v := getenv("EXPERTPANEL_TIMEZONE"); v != "" {
		c.Chat.Timezone = v
	}
	if v := getenv("EXPERTPANEL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := getenv("EXPERTPANEL_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	return c.Validate()
}

// ProviderDefaults returns the built-in default table overlaid with the
// configured providers. Role names are case-insensitive.
func (c *Config) ProviderDefaults() map[expert.Key]provider.Config {
	table := provider.DefaultTable()
	for role, p := range c.Providers {
		key := expert.Key(strings.ToUpper(strings.TrimSpace(role)))
		table[key] = provider.Merge(p, table[key])
	}
	return table
}

// Location returns the chat timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Chat.Timezone)
}

// WindowSize returns the session window in the form the session package
// expects: zero or less keeps everything.
func (c *Config) WindowSize() int {
	if c.Session.WindowSize < 0 {
		return 0
	}
	return c.Session.WindowSize
}

// NewLogger builds the structured logger described by the logging section.
func (c *Config) NewLogger() *logging.PanelLogger {
	return logging.NewSlogLogger(logging.ParseLevel(c.Logging.Level), strings.ToLower(c.Logging.Format), c.Logging.AddSource)
}
