// Package llm talks to the chat-completion backends used to draft and
// repair JSON-LD documents.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Provider is a chat-completion backend.
type Provider interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest is a single completion call. A zero Model uses the model
// the provider was configured with.
type ChatRequest struct {
	Model       string    `json:"model,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	// ResponseFormat is "json_object" to ask for JSON output where the
	// backend supports it.
	ResponseFormat string `json:"response_format,omitempty"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func SystemMessage(content string) Message { return Message{Role: "system", Content: content} }
func UserMessage(content string) Message   { return Message{Role: "user", Content: content} }

type ChatResponse struct {
	Content          string `json:"content"`
	Model            string `json:"model"`
	FinishReason     string `json:"finish_reason"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
}

// Config selects and configures a provider.
type Config struct {
	Provider string `json:"provider" yaml:"provider"`
	Model    string `json:"model" yaml:"model"`
	BaseURL  string `json:"base_url" yaml:"base_url"`
	APIKey   string `json:"api_key" yaml:"api_key"`
}

// NewProvider creates the provider named by cfg.Provider.
func NewProvider(cfg Config) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch name {
	case "":
		return nil, fmt.Errorf("llm provider not specified")
	case "anthropic":
		return NewAnthropic(cfg), nil
	case "custom":
		return NewOpenAICompat(cfg), nil
	}
	if p, ok := presets[name]; ok {
		return newPresetProvider(name, p, cfg), nil
	}
	return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
}
