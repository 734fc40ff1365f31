package provider

import (
	"maps"
	"net/http"
	"os"
	"slices"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/hupe1980/expertpanel/core"
	"github.com/hupe1980/expertpanel/expert"
	"github.com/hupe1980/expertpanel/model"
	"github.com/hupe1980/expertpanel/model/ollama"
	"github.com/hupe1980/expertpanel/model/openai"
)

// Per-kind model fallbacks used when a resolved config names no model.
var defaultModels = map[Kind]string{
	KindGroq:      "llama-3.1-8b-instant",
	KindOpenAI:    "gpt-4o-mini",
	KindGemini:    "gemini-pro",
	KindOllama:    ollama.DefaultModel,
	KindAnthropic: string(anthropic.ModelClaude3_5HaikuLatest),
}

// DefaultModel returns the fallback model for kind.
func DefaultModel(kind Kind) string { return defaultModels[kind] }

// Environment variables consulted by EnvCredentials.
var credentialEnv = map[Kind]string{
	KindGroq:      "GROQ_API_KEY",
	KindOpenAI:    "OPENAI_API_KEY",
	KindGemini:    "GOOGLE_API_KEY",
	KindAnthropic: "ANTHROPIC_API_KEY",
}

// OllamaBaseURLEnv overrides the Ollama base URL when no config sets one.
const OllamaBaseURLEnv = "OLLAMA_BASE_URL"

// CredentialEnv returns the environment variable holding the API key for kind.
func CredentialEnv(kind Kind) string { return credentialEnv[kind] }

// Credentials supplies fallback API keys and base URLs for configs that do not
// carry their own. Either function may be nil.
type Credentials struct {
	APIKey  func(kind Kind) string
	BaseURL func(kind Kind) string
}

// EnvCredentials reads fallbacks through getenv, usually os.Getenv.
func EnvCredentials(getenv func(string) string) Credentials {
	return Credentials{
		APIKey: func(kind Kind) string {
			if name, ok := credentialEnv[kind]; ok {
				return getenv(name)
			}
			return ""
		},
		BaseURL: func(kind Kind) string {
			if kind == KindOllama {
				return getenv(OllamaBaseURLEnv)
			}
			return ""
		},
	}
}

// FactoryOptions configures a Factory.
type FactoryOptions struct {
	Credentials Credentials
	// HTTPClient is handed to adapters that accept one.
	HTTPClient *http.Client
}

// Factory maps a resolved Config to a model.Model.
type Factory struct {
	opts FactoryOptions
}

// NewFactory creates a Factory. Without options credentials fall back to the
// process environment.
func NewFactory(optFns ...func(o *FactoryOptions)) *Factory {
	opts := FactoryOptions{
		Credentials: EnvCredentials(os.Getenv),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Factory{opts: opts}
}

// Complete fills credential and model fallbacks into cfg without building a
// model. A remote kind that still lacks an API key yields
// *core.ConfigurationError.
func (f *Factory) Complete(role expert.Key, cfg Config) (Config, error) {
	cfg.Kind = cfg.Kind.Normalize()
	if cfg.Model == "" {
		cfg.Model = defaultModels[cfg.Kind]
	}
	if cfg.APIKey == "" && f.opts.Credentials.APIKey != nil {
		cfg.APIKey = f.opts.Credentials.APIKey(cfg.Kind)
	}
	if cfg.BaseURL == "" && f.opts.Credentials.BaseURL != nil {
		cfg.BaseURL = f.opts.Credentials.BaseURL(cfg.Kind)
	}
	if cfg.Temperature == nil {
		cfg.Temperature = Float(DefaultTemperature)
	}
	if cfg.Kind.Remote() && cfg.APIKey == "" {
		return cfg, core.NewConfigurationError(string(role), "no API key for provider %q (set %s or pass apiKey)", cfg.Kind, credentialEnv[cfg.Kind])
	}
	return cfg, nil
}

// New builds the model for role. Unknown kinds yield a *core.ProviderError of
// kind unsupported.
func (f *Factory) New(role expert.Key, cfg Config) (model.Model, error) {
	kind, err := ParseKind(string(cfg.Kind))
	if err != nil {
		return nil, &core.ProviderError{Kind: core.ProviderErrUnsupported, Provider: string(cfg.Kind), Message: "unsupported provider kind", Cause: err}
	}
	cfg.Kind = kind

	cfg, err = f.Complete(role, cfg)
	if err != nil {
		return nil, err
	}
	temperature := cfg.TemperatureOrDefault()

	switch cfg.Kind {
	case KindGroq, KindOpenAI, KindGemini:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			switch cfg.Kind {
			case KindGroq:
				baseURL = openai.GroqBaseURL
			case KindGemini:
				baseURL = openai.GeminiBaseURL
			}
		}
		return openai.NewModel(func(o *openai.Options) {
			o.Model = cfg.Model
			o.Temperature = temperature
			o.MaxCompletionTokens = cfg.MaxTokens
			o.APIKey = cfg.APIKey
			o.BaseURL = baseURL
			o.Provider = string(cfg.Kind)
		}), nil
	case KindAnthropic:
		return anthropicModel(cfg, temperature), nil
	case KindOllama:
		return ollama.NewModel(func(o *ollama.Options) {
			o.BaseURL = cfg.BaseURL
			o.Model = cfg.Model
			o.Temperature = temperature
			o.HTTPClient = f.opts.HTTPClient
		}), nil
	}
	return nil, &core.ProviderError{Kind: core.ProviderErrUnsupported, Provider: string(cfg.Kind), Message: "unsupported provider kind"}
}

// Build creates one model per resolved role, failing on the first role (in
// key order) that cannot be built.
func (f *Factory) Build(resolved Resolved) (map[expert.Key]model.Model, error) {
	out := make(map[expert.Key]model.Model, len(resolved))
	for _, role := range slices.Sorted(maps.Keys(resolved)) {
		m, err := f.New(role, resolved[role])
		if err != nil {
			return nil, err
		}
		out[role] = m
	}
	return out, nil
}
