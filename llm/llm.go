// Package llm connects conversation windows to a chat model.
//
// Two clients are supported for the same OpenAI-compatible endpoint:
// langchaingo (the default) and go-openai. Both implement memory.Invoker,
// wrap failures in *ProviderError and, when the provider reports usage,
// attach it to the reply as the "prompt_tokens" and "completion_tokens"
// metadata keys.
package llm

import (
	"fmt"

	"github.com/sashabaranov/go-openai"
	"github.com/smallnest/convmem/config"
	"github.com/smallnest/convmem/log"
	"github.com/smallnest/convmem/memory"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
)

// Reply metadata keys for provider-reported usage
const (
	MetaPromptTokens     = memory.MetaPromptTokens
	MetaCompletionTokens = memory.MetaCompletionTokens
)

// ProviderError wraps a failed model call
type ProviderError struct {
	Op    string
	Model string
	Err   error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("llm %s (%s): %v", e.Op, e.Model, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

type options struct {
	temperature float64
	logger      log.Logger
}

// Option configures an invoker
type Option func(*options)

// WithTemperature sets the sampling temperature
func WithTemperature(t float64) Option {
	return func(o *options) {
		o.temperature = t
	}
}

// WithLogger sets the logger
func WithLogger(l log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func buildOptions(opts []Option) options {
	o := options{
		temperature: config.DefaultTemperature,
		logger:      &log.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New creates the invoker described by cfg
func New(cfg config.LLMConfig, opts ...Option) (memory.Invoker, error) {
	opts = append([]Option{WithTemperature(cfg.Temperature)}, opts...)

	switch cfg.Backend {
	case "", config.BackendLangchain:
		lcOpts := []lcopenai.Option{
			lcopenai.WithModel(cfg.Model),
			lcopenai.WithToken(cfg.APIKey),
		}
		if cfg.BaseURL != "" {
			lcOpts = append(lcOpts, lcopenai.WithBaseURL(cfg.BaseURL))
		}
		model, err := lcopenai.New(lcOpts...)
		if err != nil {
			return nil, &ProviderError{Op: "init", Model: cfg.Model, Err: err}
		}
		return NewLangchain(model, cfg.Model, opts...), nil

	case config.BackendOpenAI:
		oc := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			oc.BaseURL = cfg.BaseURL
		}
		return NewOpenAI(openai.NewClientWithConfig(oc), cfg.Model, opts...), nil

	default:
		return nil, fmt.Errorf("unknown llm backend %q", cfg.Backend)
	}
}

func usageMetadata(promptTokens, completionTokens int) map[string]any {
	return map[string]any{
		MetaPromptTokens:     promptTokens,
		MetaCompletionTokens: completionTokens,
	}
}
