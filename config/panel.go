package config

import (
	"fmt"

	"github.com/hupe1980/expertpanel"
	"github.com/hupe1980/expertpanel/graph"
	"github.com/hupe1980/expertpanel/internal/util"
	"github.com/hupe1980/expertpanel/logging"
	"github.com/hupe1980/expertpanel/provider"
)

// Factory returns a provider factory whose credential fallbacks are read
// through getenv.
func (c *Config) Factory(getenv func(string) string) *provider.Factory {
	return provider.NewFactory(func(o *provider.FactoryOptions) {
		o.Credentials = provider.EnvCredentials(getenv)
	})
}

// PanelOptions converts the configuration into expertpanel options.
func (c *Config) PanelOptions(factory expertpanel.ModelFactory, logger logging.Logger) (func(o *expertpanel.Options), error) {
	strategy, err := graph.ParseStrategy(c.Panel.Strategy)
	if err != nil {
		return nil, err
	}
	loc, err := c.Location()
	if err != nil {
		return nil, fmt.Errorf("chat.timezone: %w", err)
	}

	var opts []func(o *expertpanel.Options)
	if c.Panel.SynthesisPrompt != "" {
		tmpl, err := util.ParseTemplate("synthesis", c.Panel.SynthesisPrompt)
		if err != nil {
			return nil, fmt.Errorf("panel.synthesis_prompt: %w", err)
		}
		opts = append(opts, func(o *expertpanel.Options) { o.SynthesisTemplate = tmpl })
	}

	defaults := c.ProviderDefaults()
	chat := c.Chat.Provider
	windowSize := c.WindowSize()

	return func(o *expertpanel.Options) {
		o.Defaults = defaults
		o.Factory = factory
		o.Strategy = strategy
		o.Timeout = c.Panel.Timeout
		o.Chat = chat
		o.ChatSystemPrompt = c.Chat.SystemPrompt
		o.ChatLocation = loc
		o.WindowSize = windowSize
		o.MaxConcurrentRequests = c.Panel.MaxConcurrentRequests
		o.Logger = logger
		for _, fn := range opts {
			fn(o)
		}
	}, nil
}
