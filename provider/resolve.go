package provider

import (
	"github.com/hupe1980/expertpanel/core"
	"github.com/hupe1980/expertpanel/expert"
)

// Resolved holds exactly one configuration per role.
type Resolved map[expert.Key]Config

// For returns the configuration resolved for role.
func (r Resolved) For(role expert.Key) (Config, error) {
	c, ok := r[role]
	if !ok {
		return Config{}, core.NewConfigurationError(string(role), "no resolved provider configuration")
	}
	return c, nil
}

// DefaultTable returns the built-in default configuration for the four
// default experts and the synthesis step.
func DefaultTable() map[expert.Key]Config {
	return map[expert.Key]Config{
		expert.Technical:     {Kind: KindGroq, Model: "llama-3.1-8b-instant", Temperature: Float(0.7)},
		expert.Creative:      {Kind: KindOpenAI, Model: "gpt-4o-mini", Temperature: Float(0.9)},
		expert.Analytical:    {Kind: KindGemini, Model: "gemini-pro", Temperature: Float(0.7)},
		expert.Communication: {Kind: KindGroq, Model: "llama-3.1-70b-versatile", Temperature: Float(0.7)},
		expert.Synthesis:     {Kind: KindGemini, Model: "gemini-pro", Temperature: Float(0.8)},
	}
}

// Merge overlays override on def field by field. When override switches to a
// different provider kind, the provider bound fields (model, API key, base
// URL) of def are not inherited; the factory's per-kind fallbacks apply instead.
// Kinds are compared case-insensitively and returned normalized.
func Merge(override, def Config) Config {
	override.Kind = override.Kind.Normalize()
	def.Kind = def.Kind.Normalize()
	out := def
	switchedKind := override.Kind != "" && def.Kind != "" && override.Kind != def.Kind
	if switchedKind {
		out.Model, out.APIKey, out.BaseURL = "", "", ""
	}
	if override.Kind != "" {
		out.Kind = override.Kind
	}
	if override.Model != "" {
		out.Model = override.Model
	}
	if override.APIKey != "" {
		out.APIKey = override.APIKey
	}
	if override.BaseURL != "" {
		out.BaseURL = override.BaseURL
	}
	if override.Temperature != nil {
		out.Temperature = Float(*override.Temperature)
	} else if def.Temperature != nil {
		out.Temperature = Float(*def.Temperature)
	}
	if override.MaxTokens != 0 {
		out.MaxTokens = override.MaxTokens
	}
	return out
}

// Resolve produces one configuration per role. Caller supplied overrides win
// field by field, unset fields fall back to defaults, and a role absent from
// overrides takes its default verbatim. A role without a default entry is a
// programmer error reported as *core.ConfigurationError. Overrides for roles
// outside roles are ignored.
func Resolve(overrides, defaults map[expert.Key]Config, roles []expert.Key) (Resolved, error) {
	out := make(Resolved, len(roles))
	for _, role := range roles {
		def, ok := defaults[role]
		if !ok {
			return nil, core.NewConfigurationError(string(role), "no default provider configuration")
		}
		cfg := Merge(overrides[role], def)
		if cfg.Kind == "" {
			return nil, core.NewConfigurationError(string(role), "provider kind is not set")
		}
		if cfg.Temperature == nil {
			cfg.Temperature = Float(DefaultTemperature)
		}
		out[role] = cfg
	}
	return out, nil
}
