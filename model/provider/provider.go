// Package provider builds a model.Model from configuration.
package provider

import (
	"context"
	"fmt"
	"math"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"golang.org/x/time/rate"

	"github.com/hupe1980/agentchat/config"
	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/model"
	"github.com/hupe1980/agentchat/model/anthropic"
	"github.com/hupe1980/agentchat/model/gemini"
	"github.com/hupe1980/agentchat/model/ollama"
	"github.com/hupe1980/agentchat/model/openai"
)

// New creates the model selected by cfg.Provider. When RequestsPerSecond is
// set the model is wrapped with a token bucket limiter.
func New(ctx context.Context, cfg config.ModelConfig) (model.Model, error) {
	m, err := newModel(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.RequestsPerSecond > 0 {
		burst := int(math.Max(1, math.Ceil(cfg.RequestsPerSecond)))
		m = model.WithRateLimit(m, rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst))
	}

	return m, nil
}

func newModel(ctx context.Context, cfg config.ModelConfig) (model.Model, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return openai.NewModel(func(o *openai.Options) {
			setIf(&o.Model, cfg.Name)
			o.Temperature = cfg.Temperature
			if cfg.MaxTokens > 0 {
				o.MaxCompletionTokens = cfg.MaxTokens
			}
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
		}), nil
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			if cfg.Name != "" {
				o.Model = anthropicsdk.Model(cfg.Name)
			}
			o.Temperature = cfg.Temperature
			if cfg.MaxTokens > 0 {
				o.MaxTokens = cfg.MaxTokens
			}
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
		}), nil
	case "gemini":
		m, err := gemini.NewModel(ctx, func(o *gemini.Options) {
			setIf(&o.Model, cfg.Name)
			o.Temperature = float32(cfg.Temperature)
			if cfg.MaxTokens > 0 {
				o.MaxOutputTokens = int32(min(cfg.MaxTokens, math.MaxInt32))
			}
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
		})
		if err != nil {
			return nil, err
		}
		return m, nil
	case "ollama":
		m, err := ollama.NewModel(func(o *ollama.Options) {
			setIf(&o.Model, cfg.Name)
			o.Temperature = cfg.Temperature
			o.BaseURL = cfg.BaseURL
			if cfg.MaxTokens > 0 {
				o.Extra = map[string]any{"num_predict": cfg.MaxTokens}
			}
		})
		if err != nil {
			return nil, err
		}
		return m, nil
	case "mock":
		name := cfg.Name
		if name == "" {
			name = "echo"
		}
		return model.NewMockModelFunc(name, Echo), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}

// Echo is the responder of the mock provider. It repeats the last message and
// answers an empty history with a greeting.
func Echo(_ context.Context, req model.Request) (core.Content, error) {
	if len(req.Messages) == 0 {
		return core.Text(fmt.Sprintf("Hello %s, I am %s.", req.Counterpart, req.Speaker)), nil
	}
	return core.Text(req.Messages[len(req.Messages)-1].Content.String()), nil
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
