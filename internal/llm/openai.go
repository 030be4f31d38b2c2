package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const openAIBaseURL = "https://api.openai.com"

type OpenAIOptions struct {
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
	BaseURL   string
}

type OpenAI struct {
	client    *resty.Client
	model     string
	maxTokens int
}

type openAIChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openAIChatMessage `json:"messages"`
	Temperature float64             `json:"temperature,omitempty"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewOpenAI(opts OpenAIOptions) (*OpenAI, error) {
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return nil, fmt.Errorf("openai: %w", ErrNotConfigured)
	}
	base := opts.BaseURL
	if base == "" {
		base = openAIBaseURL
	}
	client := resty.New().
		SetBaseURL(base).
		SetTimeout(opts.Timeout).
		SetAuthToken(key).
		SetHeader("Content-Type", "application/json")
	return &OpenAI{client: client, model: opts.Model, maxTokens: opts.MaxTokens}, nil
}

func (o *OpenAI) Generate(ctx context.Context, prompt string) (Completion, error) {
	var parsed openAIChatResponse
	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(openAIChatRequest{
			Model: o.model,
			Messages: []openAIChatMessage{
				{Role: "user", Content: prompt},
			},
			Temperature: 0.4,
			MaxTokens:   o.maxTokens,
		}).
		SetResult(&parsed).
		SetError(&parsed).
		Post("/v1/chat/completions")
	if err != nil {
		return Completion{}, fmt.Errorf("failed to reach OpenAI: %w", err)
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return Completion{}, fmt.Errorf("OpenAI error (%d): %s", resp.StatusCode(), parsed.Error.Message)
	}
	if resp.IsError() {
		return Completion{}, fmt.Errorf("OpenAI request failed (%d)", resp.StatusCode())
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return Completion{}, errors.New("OpenAI returned no choices")
	}
	model := parsed.Model
	if model == "" {
		model = o.model
	}
	return Completion{
		Text:         parsed.Choices[0].Message.Content,
		Provider:     "openai",
		Model:        model,
		InputTokens:  parsed.Usage.PromptTokens,
		OutputTokens: parsed.Usage.CompletionTokens,
	}, nil
}
