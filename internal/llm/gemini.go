package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

type GeminiOptions struct {
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

type Gemini struct {
	client    *genai.Client
	model     string
	maxTokens int
	timeout   time.Duration
}

func NewGemini(ctx context.Context, opts GeminiOptions) (*Gemini, error) {
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return nil, fmt.Errorf("gemini: %w", ErrNotConfigured)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Gemini{client: client, model: opts.Model, maxTokens: opts.MaxTokens, timeout: opts.Timeout}, nil
}

func (g *Gemini) Generate(ctx context.Context, prompt string) (Completion, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		MaxOutputTokens: int32(g.maxTokens),
	})
	if err != nil {
		return Completion{}, fmt.Errorf("GenAI generate failed: %w", err)
	}
	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return Completion{}, errors.New("GenAI returned no text")
	}
	out := Completion{Text: text, Provider: "gemini", Model: g.model}
	if usage := result.UsageMetadata; usage != nil {
		out.InputTokens = int(usage.PromptTokenCount)
		out.OutputTokens = int(usage.CandidatesTokenCount)
	}
	return out, nil
}
