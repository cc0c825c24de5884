package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		provider string
		wantType string
	}{
		{"ollama", "*llm.compatProvider"},
		{"lmstudio", "*llm.compatProvider"},
		{"openrouter", "*llm.compatProvider"},
		{"xai", "*llm.compatProvider"},
		{"gemini", "*llm.compatProvider"},
		{"custom", "*llm.compatProvider"},
		{"anthropic", "*llm.anthropicProvider"},
		{"Anthropic", "*llm.anthropicProvider"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			p, err := NewProvider(Config{Provider: tt.provider, Model: "test-model"})
			if err != nil {
				t.Fatalf("NewProvider(%q) returned error: %v", tt.provider, err)
			}
			if got := fmt.Sprintf("%T", p); got != tt.wantType {
				t.Errorf("NewProvider(%q) type = %s, want %s", tt.provider, got, tt.wantType)
			}
		})
	}
}

func TestNewProviderErrors(t *testing.T) {
	_, err := NewProvider(Config{Provider: "doesnotexist"})
	if err == nil || err.Error() != "unknown llm provider: doesnotexist" {
		t.Errorf("unknown provider error = %v", err)
	}
	_, err = NewProvider(Config{})
	if err == nil || err.Error() != "llm provider not specified" {
		t.Errorf("empty provider error = %v", err)
	}
}

func TestPresetDefaults(t *testing.T) {
	tests := []struct {
		provider  string
		wantURL   string
		wantModel string
	}{
		{"ollama", "http://localhost:11434", ""},
		{"lmstudio", "http://localhost:1234", ""},
		{"openrouter", "https://openrouter.ai/api", ""},
		{"xai", "https://api.x.ai", ""},
		{"groq", "https://api.groq.com/openai", "llama-3.3-70b-versatile"},
		{"openai", "https://api.openai.com", "gpt-4o"},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			p, err := NewProvider(Config{Provider: tt.provider})
			if err != nil {
				t.Fatal(err)
			}
			cfg := p.(*compatProvider).base.cfg
			if cfg.BaseURL != tt.wantURL {
				t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, tt.wantURL)
			}
			if cfg.Model != tt.wantModel {
				t.Errorf("Model = %q, want %q", cfg.Model, tt.wantModel)
			}
		})
	}
}

func TestExplicitConfigPreserved(t *testing.T) {
	for _, name := range []string{"ollama", "openai", "gemini", "custom"} {
		t.Run(name, func(t *testing.T) {
			p, err := NewProvider(Config{Provider: name, Model: "m", BaseURL: "http://my-server:9999"})
			if err != nil {
				t.Fatal(err)
			}
			cfg := p.(*compatProvider).base.cfg
			if cfg.BaseURL != "http://my-server:9999" || cfg.Model != "m" {
				t.Errorf("config overwritten: %+v", cfg)
			}
		})
	}

	p := NewAnthropic(Config{})
	cfg := p.(*anthropicProvider).base.cfg
	if cfg.BaseURL != "https://api.anthropic.com" || cfg.Model != anthropicDefaultModel {
		t.Errorf("anthropic defaults = %+v", cfg)
	}
}

func TestCompatChat(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, `{"model":"m1","choices":[{"message":{"content":"{\"a\":1}"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":3,"completion_tokens":4,"total_tokens":7}}`)
	}))
	defer srv.Close()

	p, err := NewProvider(Config{Provider: "openai", BaseURL: srv.URL, APIKey: "sk-1", Model: "m1"})
	if err != nil {
		t.Fatal(err)
	}
	resp, err := p.Chat(context.Background(), ChatRequest{
		Messages:       []Message{SystemMessage("sys"), UserMessage("hi")},
		MaxTokens:      10,
		ResponseFormat: "json_object",
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if gotPath != "/v1/chat/completions" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer sk-1" {
		t.Errorf("auth = %q", gotAuth)
	}
	if gotBody.Model != "m1" || len(gotBody.Messages) != 2 || gotBody.ResponseFormat == nil {
		t.Errorf("request body = %+v", gotBody)
	}
	if resp.Content != `{"a":1}` || resp.TotalTokens != 7 || resp.FinishReason != "stop" {
		t.Errorf("response = %+v", resp)
	}
}

func TestCompatChatNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	_, err := NewOpenAICompat(Config{BaseURL: srv.URL}).Chat(context.Background(), ChatRequest{})
	if !IsFatal(err) {
		t.Errorf("err = %v, want fatal", err)
	}
}

func TestNonRetryableStatusIsFatal(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewOpenAICompat(Config{BaseURL: srv.URL}).Chat(context.Background(), ChatRequest{})
	if !IsFatal(err) || IsTransient(err) {
		t.Errorf("err = %v, want fatal", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewOpenAICompat(Config{BaseURL: srv.URL}).Chat(ctx, ChatRequest{})
	if err != context.DeadlineExceeded {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		attempt    int
		status     int
		retryAfter string
		want       time.Duration
	}{
		{1, 0, "", 2 * time.Second},
		{3, http.StatusBadGateway, "", 8 * time.Second},
		{1, http.StatusTooManyRequests, "", 5 * time.Second},
		{2, http.StatusTooManyRequests, "", 10 * time.Second},
		{1, http.StatusTooManyRequests, "30", 30 * time.Second},
		{2, http.StatusTooManyRequests, "3", 10 * time.Second},
	}
	for _, tt := range tests {
		if got := retryDelay(tt.attempt, tt.status, tt.retryAfter); got != tt.want {
			t.Errorf("retryDelay(%d, %d, %q) = %v, want %v", tt.attempt, tt.status, tt.retryAfter, got, tt.want)
		}
	}
}

func TestAnthropicChat(t *testing.T) {
	var gotPath string
	var gotHeader http.Header
	var gotBody anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHeader = r.Header.Clone()
		json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, `{"model":"claude","stop_reason":"end_turn",
			"content":[{"type":"text","text":"{\"@type\":"},{"type":"text","text":"\"Thing\"}"}],
			"usage":{"input_tokens":10,"output_tokens":5}}`)
	}))
	defer srv.Close()

	p := NewAnthropic(Config{BaseURL: srv.URL, APIKey: "key-1"})
	resp, err := p.Chat(context.Background(), ChatRequest{
		Messages: []Message{SystemMessage("be precise"), UserMessage("generate")},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if gotPath != "/v1/messages" {
		t.Errorf("path = %q", gotPath)
	}
	if gotHeader.Get("x-api-key") != "key-1" || gotHeader.Get("anthropic-version") != anthropicVersion {
		t.Errorf("headers = %v", gotHeader)
	}
	if gotHeader.Get("Authorization") != "" {
		t.Error("anthropic request must not carry a bearer token")
	}
	if gotBody.System != "be precise" || len(gotBody.Messages) != 1 || gotBody.MaxTokens != anthropicMaxTokens {
		t.Errorf("request body = %+v", gotBody)
	}
	if gotBody.Model != anthropicDefaultModel {
		t.Errorf("model = %q", gotBody.Model)
	}
	if resp.Content != `{"@type":"Thing"}` || resp.TotalTokens != 15 || resp.FinishReason != "end_turn" {
		t.Errorf("response = %+v", resp)
	}
}

func TestBuildAnthropicRequestOverrides(t *testing.T) {
	req := buildAnthropicRequest("default", ChatRequest{
		Model:     "other",
		MaxTokens: 16000,
		Messages:  []Message{SystemMessage("a"), SystemMessage("b"), UserMessage("u")},
	})
	if req.Model != "other" || req.MaxTokens != 16000 || req.System != "a\n\nb" {
		t.Errorf("request = %+v", req)
	}
}
