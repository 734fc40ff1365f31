package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hupe1980/expertpanel"
	"github.com/hupe1980/expertpanel/core"
	"github.com/hupe1980/expertpanel/expert"
	"github.com/hupe1980/expertpanel/graph"
	"github.com/hupe1980/expertpanel/logging"
	"github.com/hupe1980/expertpanel/model"
	"github.com/hupe1980/expertpanel/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlConfig = `
server:
  address: ":9090"
  read_timeout: 5s
session:
  window_size: 10
chat:
  provider:
    type: ollama
    model: mistral
  timezone: Asia/Kolkata
  system_prompt: You are terse.
panel:
  strategy: parallel
  timeout: 45s
  max_concurrent_requests: 8
providers:
  technical:
    model: llama-3.3-70b-versatile
  synthesis:
    type: anthropic
    temperature: 0.5
logging:
  level: debug
  format: json
`

const tomlConfig = `
[server]
address = ":7070"

[panel]
strategy = "sequential"
timeout = "30s"

[providers.CREATIVE]
type = "ollama"
base_url = "http://gpu-box:11434"
`

func TestParse_YAML(t *testing.T) {
	cfg, err := Parse(".yaml", []byte(yamlConfig))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10, cfg.Session.WindowSize)
	assert.Equal(t, provider.KindOllama, cfg.Chat.Provider.Kind)
	assert.Equal(t, "mistral", cfg.Chat.Provider.Model)
	assert.InDelta(t, 0.2, cfg.Chat.Provider.TemperatureOrDefault(), 1e-9)
	assert.Equal(t, "parallel", cfg.Panel.Strategy)
	assert.Equal(t, 45*time.Second, cfg.Panel.Timeout)
	assert.Equal(t, "debug", cfg.Logging.Level)

	defaults := cfg.ProviderDefaults()
	assert.Equal(t, provider.KindGroq, defaults[expert.Technical].Kind)
	assert.Equal(t, "llama-3.3-70b-versatile", defaults[expert.Technical].Model)
	assert.Equal(t, provider.KindAnthropic, defaults[expert.Synthesis].Kind)
	assert.Empty(t, defaults[expert.Synthesis].Model, "switching kind drops the gemini model")
	assert.InDelta(t, 0.5, defaults[expert.Synthesis].TemperatureOrDefault(), 1e-9)
	assert.Equal(t, provider.DefaultTable()[expert.Creative], defaults[expert.Creative])
}

func TestParse_TOML(t *testing.T) {
	cfg, err := Parse("toml", []byte(tomlConfig))
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Address)
	assert.Equal(t, 30*time.Second, cfg.Panel.Timeout)
	assert.Equal(t, 20, cfg.Session.WindowSize)

	creative := cfg.ProviderDefaults()[expert.Creative]
	assert.Equal(t, provider.KindOllama, creative.Kind)
	assert.Equal(t, "http://gpu-box:11434", creative.BaseURL)
	assert.InDelta(t, 0.9, creative.TemperatureOrDefault(), 1e-9)
}

func TestParse_NormalizesProviderKinds(t *testing.T) {
	cfg, err := Parse(".yaml", []byte(`
chat:
  provider:
    type: OpenAI
providers:
  technical:
    type: GROQ
`))
	require.NoError(t, err)

	assert.Equal(t, provider.KindOpenAI, cfg.Chat.Provider.Kind)

	tech := cfg.ProviderDefaults()[expert.Technical]
	assert.Equal(t, provider.KindGroq, tech.Kind)
	assert.Equal(t, "llama-3.1-8b-instant", tech.Model)

	f := cfg.Factory(func(k string) string {
		if k == "OPENAI_API_KEY" {
			return "sk"
		}
		return ""
	})
	m, err := f.New(expertpanel.ChatRole, cfg.Chat.Provider)
	require.NoError(t, err)
	assert.Equal(t, "openai", m.Info().Provider)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		data string
	}{
		{"unknown extension", ".ini", "a=b"},
		{"broken yaml", ".yml", "server: [unclosed"},
		{"bad strategy", ".yaml", "panel:\n  strategy: random\n"},
		{"bad timezone", ".yaml", "chat:\n  timezone: Mars/Olympus\n"},
		{"bad provider kind", ".yaml", "providers:\n  technical:\n    type: mistral\n"},
		{"bad log format", ".toml", "[logging]\nformat = \"xml\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.ext, []byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "expertpanel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlConfig), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Address)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_EmptyPathIsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "UTC", cfg.Chat.Timezone)
	assert.Equal(t, provider.KindGroq, cfg.Chat.Provider.Kind)
	assert.Equal(t, "llama-3.1-8b-instant", cfg.Chat.Provider.Model)
}

func TestApplyEnvOverrides(t *testing.T) {
	env := map[string]string{
		"EXPERTPANEL_ADDRESS":     ":1234",
		"EXPERTPANEL_STRATEGY":    "parallel",
		"EXPERTPANEL_WINDOW_SIZE": "-1",
		"EXPERTPANEL_LOG_LEVEL":   "warn",
	}
	cfg := Default()
	require.NoError(t, cfg.ApplyEnvOverrides(func(k string) string { return env[k] }))

	assert.Equal(t, ":1234", cfg.Server.Address)
	assert.Equal(t, "parallel", cfg.Panel.Strategy)
	assert.Equal(t, 0, cfg.WindowSize())
	assert.Equal(t, "warn", cfg.Logging.Level)

	bad := Default()
	err := bad.ApplyEnvOverrides(func(k string) string {
		if k == "EXPERTPANEL_WINDOW_SIZE" {
			return "lots"
		}
		return ""
	})
	assert.Error(t, err)
}

func TestPanelOptions(t *testing.T) {
	cfg, err := Parse(".yaml", []byte(yamlConfig))
	require.NoError(t, err)

	var seen = map[expert.Key]provider.Config{}
	factory := expertpanel.ModelFactoryFunc(func(role expert.Key, c provider.Config) (model.Model, error) {
		seen[role] = c
		return model.NewMockModel(c.Model, string(c.Kind)), nil
	})

	optFn, err := cfg.PanelOptions(factory, logging.NoOpLogger{})
	require.NoError(t, err)

	var opts expertpanel.Options
	optFn(&opts)
	assert.Equal(t, graph.StrategyParallel, opts.Strategy)
	assert.Equal(t, 45*time.Second, opts.Timeout)
	assert.Equal(t, "Asia/Kolkata", opts.ChatLocation.String())
	assert.Equal(t, "You are terse.", opts.ChatSystemPrompt)
	assert.Equal(t, 10, opts.WindowSize)
	assert.EqualValues(t, 8, opts.MaxConcurrentRequests)

	p := expertpanel.New(optFn)
	reply, err := p.Ask(context.Background(), expertpanel.Request{
		Mode:     expertpanel.ModeChat,
		Messages: []core.Message{core.NewUserMessage("hi")},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, reply.Text)
	assert.Equal(t, provider.KindOllama, seen[expertpanel.ChatRole].Kind)
}

func TestPanelOptions_SynthesisPrompt(t *testing.T) {
	cfg := Default()
	cfg.Panel.SynthesisPrompt = "Merge:{{range .Sections}} [{{.Name}}]{{end}}"

	optFn, err := cfg.PanelOptions(nil, logging.NoOpLogger{})
	require.NoError(t, err)

	var opts expertpanel.Options
	optFn(&opts)
	require.NotNil(t, opts.SynthesisTemplate)

	cfg.Panel.SynthesisPrompt = "{{.Broken"
	_, err = cfg.PanelOptions(nil, logging.NoOpLogger{})
	assert.Error(t, err)
}

func TestFactory_UsesEnvCredentials(t *testing.T) {
	cfg := Default()
	f := cfg.Factory(func(k string) string {
		if k == "GROQ_API_KEY" {
			return "gsk"
		}
		return ""
	})

	_, err := f.New(expert.Technical, provider.Config{Kind: provider.KindGroq})
	assert.NoError(t, err)

	_, err = f.New(expert.Creative, provider.Config{Kind: provider.KindOpenAI})
	assert.Equal(t, core.CategoryConfiguration, core.CategoryOf(err))
}
