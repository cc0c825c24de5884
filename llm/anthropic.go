package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	anthropicVersion      = "2023-06-01"
	anthropicDefaultModel = "claude-sonnet-4-20250514"
	anthropicMaxTokens    = 4096
)

// anthropicProvider implements Provider over the Anthropic Messages API.
type anthropicProvider struct {
	base httpClient
}

// NewAnthropic creates a provider for Anthropic.
func NewAnthropic(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	if cfg.Model == "" {
		cfg.Model = anthropicDefaultModel
	}
	key := cfg.APIKey
	headers := func(h http.Header) {
		if key != "" {
			h.Set("x-api-key", key)
		}
		h.Set("anthropic-version", anthropicVersion)
	}
	return &anthropicProvider{base: newHTTPClient(cfg, "/v1", headers)}
}

type anthropicRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Messages    []Message `json:"messages"`
	System      string    `json:"system,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// buildAnthropicRequest moves system messages into the top-level system
// field, which is where the Messages API expects them.
func buildAnthropicRequest(model string, req ChatRequest) anthropicRequest {
	var system []string
	var msgs []Message
	for _, m := range req.Messages {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		msgs = append(msgs, m)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicMaxTokens
	}
	if req.Model != "" {
		model = req.Model
	}
	return anthropicRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Messages:    msgs,
		System:      strings.Join(system, "\n\n"),
		Temperature: req.Temperature,
	}
}

func (p *anthropicProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body := buildAnthropicRequest(p.base.cfg.Model, req)

	respBody, err := p.base.doPost(ctx, "/messages", body)
	if err != nil {
		return nil, err
	}

	var resp anthropicResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, NewFatalError(fmt.Errorf("decoding anthropic response: %w", err))
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &ChatResponse{
		Content:          text.String(),
		Model:            resp.Model,
		FinishReason:     resp.StopReason,
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
		TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}
