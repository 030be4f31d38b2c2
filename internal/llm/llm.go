// Package llm wraps the text-generation providers behind one Generator interface.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"guidance-desk/internal/config"
)

// ErrNotConfigured is returned when the selected provider has no API key.
var ErrNotConfigured = errors.New("language model provider is not configured")

// Completion is the text a provider returned plus its token usage.
type Completion struct {
	Text         string
	Provider     string
	Model        string
	InputTokens  int
	OutputTokens int
}

func (c Completion) TotalTokens() int {
	return c.InputTokens + c.OutputTokens
}

// Generator turns a prompt into text. Implementations make exactly one upstream
// call per Generate and never retry.
type Generator interface {
	Generate(ctx context.Context, prompt string) (Completion, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (Completion, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (Completion, error) {
	return f(ctx, prompt)
}

// FromConfig builds the provider named by cfg.LLMProvider.
func FromConfig(ctx context.Context, cfg config.Config) (Generator, error) {
	timeout := cfg.LLMTimeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	switch strings.ToLower(strings.TrimSpace(cfg.LLMProvider)) {
	case "", "anthropic":
		return NewAnthropic(AnthropicOptions{
			APIKey:    cfg.AnthropicAPIKey,
			Model:     cfg.AnthropicModel,
			MaxTokens: cfg.LLMMaxTokens,
			Timeout:   timeout,
		})
	case "openai":
		return NewOpenAI(OpenAIOptions{
			APIKey:    cfg.OpenAIAPIKey,
			Model:     cfg.OpenAIModel,
			MaxTokens: cfg.LLMMaxTokens,
			Timeout:   timeout,
		})
	case "gemini":
		return NewGemini(ctx, GeminiOptions{
			APIKey:    cfg.GeminiAPIKey,
			Model:     cfg.GeminiModel,
			MaxTokens: cfg.LLMMaxTokens,
			Timeout:   timeout,
		})
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
}
