package provider

import (
	"fmt"
	"strings"
)

// Kind enumerates the supported backend adapters.
type Kind string

const (
	KindGroq      Kind = "groq"
	KindOpenAI    Kind = "openai"
	KindGemini    Kind = "gemini"
	KindOllama    Kind = "ollama"
	KindAnthropic Kind = "anthropic"
)

// DefaultTemperature applies when neither the caller nor the default table sets one.
const DefaultTemperature = 0.7

// Kinds lists every supported kind.
func Kinds() []Kind {
	return []Kind{KindGroq, KindOpenAI, KindGemini, KindOllama, KindAnthropic}
}

// ParseKind parses a case-insensitive provider name.
func ParseKind(s string) (Kind, error) {
	k := Kind(s).Normalize()
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown provider kind %q", s)
}

// Normalize returns k lower-cased and trimmed. Unknown kinds are kept so
// that the factory can report them.
func (k Kind) Normalize() Kind { return Kind(strings.ToLower(strings.TrimSpace(string(k)))) }

// Remote reports whether the kind is a hosted service that needs an API key.
func (k Kind) Remote() bool { return k != KindOllama }

// Config selects and parameterizes a provider for one role. Zero values mean
// "unset" and are filled in during resolution.
type Config struct {
	Kind        Kind     `json:"type,omitempty" yaml:"type" toml:"type"`
	Model       string   `json:"model,omitempty" yaml:"model" toml:"model"`
	APIKey      string   `json:"apiKey,omitempty" yaml:"api_key" toml:"api_key"`
	BaseURL     string   `json:"baseUrl,omitempty" yaml:"base_url" toml:"base_url"`
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature" toml:"temperature"`
	MaxTokens   int64    `json:"maxTokens,omitempty" yaml:"max_tokens" toml:"max_tokens"`
}

// Float returns a pointer to v, for populating Config.Temperature.
func Float(v float64) *float64 { return &v }

// TemperatureOrDefault returns the configured temperature or DefaultTemperature.
func (c Config) TemperatureOrDefault() float64 {
	if c.Temperature == nil {
		return DefaultTemperature
	}
	return *c.Temperature
}

// IsZero reports whether no field is set.
func (c Config) IsZero() bool {
	return c.Kind == "" && c.Model == "" && c.APIKey == "" && c.BaseURL == "" && c.Temperature == nil && c.MaxTokens == 0
}

// String renders the config without its credential.
func (c Config) String() string {
	key := "unset"
	if c.APIKey != "" {
		key = "set"
	}
	return fmt.Sprintf("%s/%s (temperature=%.2f, api_key=%s)", c.Kind, c.Model, c.TemperatureOrDefault(), key)
}
