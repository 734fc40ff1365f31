package provider

import (
	"github.com/anthropics/anthropic-sdk-go"
	anthropicmodel "github.com/hupe1980/expertpanel/model/anthropic"
)

func anthropicModel(cfg Config, temperature float64) *anthropicmodel.Model {
	return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
		o.Model = anthropic.Model(cfg.Model)
		o.Temperature = temperature
		o.APIKey = cfg.APIKey
		o.BaseURL = cfg.BaseURL
		if cfg.MaxTokens > 0 {
			o.MaxTokens = cfg.MaxTokens
		}
	})
}
