package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// preset holds the defaults of an OpenAI-compatible backend.
type preset struct {
	baseURL string
	prefix  string
	model   string
}

var presets = map[string]preset{
	"openai":     {baseURL: "https://api.openai.com", prefix: "/v1", model: "gpt-4o"},
	"groq":       {baseURL: "https://api.groq.com/openai", prefix: "/v1", model: "llama-3.3-70b-versatile"},
	"openrouter": {baseURL: "https://openrouter.ai/api", prefix: "/v1"},
	"xai":        {baseURL: "https://api.x.ai", prefix: "/v1"},
	"ollama":     {baseURL: "http://localhost:11434", prefix: "/v1"},
	"lmstudio":   {baseURL: "http://localhost:1234", prefix: "/v1"},
	// Gemini serves the compatible API without a /v1 prefix.
	"gemini": {baseURL: "https://generativelanguage.googleapis.com/v1beta/openai", model: "gemini-2.5-flash"},
}

// compatProvider implements Provider for any backend speaking the OpenAI
// chat-completions format.
type compatProvider struct {
	name string
	base httpClient
}

func newPresetProvider(name string, p preset, cfg Config) *compatProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = p.baseURL
	}
	if cfg.Model == "" {
		cfg.Model = p.model
	}
	return &compatProvider{name: name, base: newHTTPClient(cfg, p.prefix, bearerAuth(cfg.APIKey))}
}

// NewOpenAICompat creates a provider for a self-hosted compatible
// endpoint. BaseURL is used as given.
func NewOpenAICompat(cfg Config) Provider {
	return &compatProvider{name: "custom", base: newHTTPClient(cfg, "/v1", bearerAuth(cfg.APIKey))}
}

func (p *compatProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.base.cfg.Model
	}

	body := chatCompletionRequest{
		Model:       model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.ResponseFormat == "json_object" {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	respBody, err := p.base.doPost(ctx, "/chat/completions", body)
	if err != nil {
		return nil, err
	}

	var resp chatCompletionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, NewFatalError(fmt.Errorf("decoding chat response: %w", err))
	}
	if len(resp.Choices) == 0 {
		return nil, NewFatalError(fmt.Errorf("no choices in response"))
	}

	return &ChatResponse{
		Content:          resp.Choices[0].Message.Content,
		Model:            resp.Model,
		FinishReason:     resp.Choices[0].FinishReason,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// --- transport shared by every provider ---

type httpClient struct {
	cfg     Config
	client  *http.Client
	prefix  string
	headers func(http.Header)
}

func newHTTPClient(cfg Config, prefix string, headers func(http.Header)) httpClient {
	return httpClient{
		cfg:     cfg,
		prefix:  prefix,
		headers: headers,
		// Local backends may load a model on the first request.
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

func bearerAuth(key string) func(http.Header) {
	return func(h http.Header) {
		if key != "" {
			h.Set("Authorization", "Bearer "+key)
		}
	}
}

const (
	maxRetries        = 6
	baseRetryDelay    = 2 * time.Second
	minRateLimitDelay = 5 * time.Second
)

func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable ||
		code == http.StatusGatewayTimeout
}

// retryDelay is the wait before attempt (1-based) after a failure.
// Rate limiting backs off from a longer floor and honours Retry-After.
func retryDelay(attempt int, status int, retryAfter string) time.Duration {
	if status != http.StatusTooManyRequests {
		return baseRetryDelay * time.Duration(1<<(attempt-1))
	}
	delay := minRateLimitDelay * time.Duration(1<<(attempt-1))
	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
		if d := time.Duration(seconds) * time.Second; d > delay {
			delay = d
		}
	}
	return delay
}

// doPost sends body to path and returns the 200 response body. Network
// failures and retryable statuses are retried with backoff; the error
// returned is a TransientError when retries run out and a FatalError for
// any other status.
func (c *httpClient) doPost(ctx context.Context, path string, body any) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, NewFatalError(err)
	}

	url := strings.TrimSuffix(c.cfg.BaseURL, "/") + c.prefix + path

	var (
		lastErr    error
		lastStatus int
		retryAfter string
	)
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryDelay(attempt, lastStatus, retryAfter)
			slog.Warn("llm: retrying request",
				"url", url,
				"attempt", attempt,
				"delay", delay,
				"error", lastErr,
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return nil, NewFatalError(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.headers != nil {
			c.headers(req.Header)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("request to %s failed: %w", url, err)
			lastStatus, retryAfter = 0, ""
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("reading response body: %w", err)
			lastStatus, retryAfter = 0, ""
			continue
		}

		if resp.StatusCode == http.StatusOK {
			return respBody, nil
		}

		lastErr = fmt.Errorf("LLM API error %d: %s", resp.StatusCode, string(respBody))
		if !retryableStatusCode(resp.StatusCode) {
			return nil, NewFatalError(lastErr)
		}
		lastStatus, retryAfter = resp.StatusCode, resp.Header.Get("Retry-After")
	}

	return nil, NewTransientError(fmt.Errorf("max retries exceeded: %w", lastErr))
}
