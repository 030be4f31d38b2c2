package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	anthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
)

type AnthropicOptions struct {
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
	// BaseURL overrides the API host, mainly for tests.
	BaseURL string
}

type Anthropic struct {
	client    *resty.Client
	model     string
	maxTokens int
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicError struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func NewAnthropic(opts AnthropicOptions) (*Anthropic, error) {
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return nil, fmt.Errorf("anthropic: %w", ErrNotConfigured)
	}
	base := opts.BaseURL
	if base == "" {
		base = anthropicBaseURL
	}
	client := resty.New().
		SetBaseURL(base).
		SetTimeout(opts.Timeout).
		SetHeader("x-api-key", key).
		SetHeader("anthropic-version", anthropicVersion).
		SetHeader("Content-Type", "application/json")
	return &Anthropic{client: client, model: opts.Model, maxTokens: opts.MaxTokens}, nil
}

func (a *Anthropic) Generate(ctx context.Context, prompt string) (Completion, error) {
	var result anthropicResponse
	var apiErr anthropicError
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(anthropicRequest{
			Model:     a.model,
			MaxTokens: a.maxTokens,
			Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
		}).
		SetResult(&result).
		SetError(&apiErr).
		Post("/v1/messages")
	if err != nil {
		return Completion{}, fmt.Errorf("failed to reach Anthropic: %w", err)
	}
	if resp.IsError() {
		if msg := apiErr.Error.Message; msg != "" {
			return Completion{}, fmt.Errorf("Anthropic request failed (%d): %s", resp.StatusCode(), msg)
		}
		return Completion{}, fmt.Errorf("Anthropic request failed (%d)", resp.StatusCode())
	}

	var text strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return Completion{}, errors.New("Anthropic returned no text content")
	}
	model := result.Model
	if model == "" {
		model = a.model
	}
	return Completion{
		Text:         text.String(),
		Provider:     "anthropic",
		Model:        model,
		InputTokens:  result.Usage.InputTokens,
		OutputTokens: result.Usage.OutputTokens,
	}, nil
}
