// Package config loads expertpanel settings from YAML or TOML files, applies
// EXPERTPANEL_* environment overrides and turns the result into Panel options.
//
// Provider credentials are never required in the file: a provider entry
// without api_key falls back to GROQ_API_KEY, OPENAI_API_KEY, GOOGLE_API_KEY
// or ANTHROPIC_API_KEY, and Ollama to OLLAMA_BASE_URL.
package config
