// Package generator drafts JSON-LD for a row through an LLM and asks it
// to repair the links of a finished batch.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brunobiangulo/schemagen/audit"
	"github.com/brunobiangulo/schemagen/jsonld"
	"github.com/brunobiangulo/schemagen/llm"
	"github.com/brunobiangulo/schemagen/validator"
)

const (
	DefaultMaxTokens       = 4096
	DefaultRepairMaxTokens = 16000
)

// ErrInvalidJSON marks a model reply that did not parse as JSON.
var ErrInvalidJSON = errors.New("JSON parse error")

// Options configures a Generator. Zero values take the defaults.
type Options struct {
	Model           string
	MaxTokens       int
	RepairMaxTokens int
}

// Generator turns row context into JSON-LD text.
type Generator struct {
	provider llm.Provider
	opts     Options
}

func New(p llm.Provider, opts Options) *Generator {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.RepairMaxTokens <= 0 {
		opts.RepairMaxTokens = DefaultRepairMaxTokens
	}
	return &Generator{provider: p, opts: opts}
}

// Generate asks the model for the JSON-LD of one row. The returned text
// has markdown fences removed. When it does not parse, the text is still
// returned together with an ErrInvalidJSON error; a <script> wrapper is
// looked through for that check and left in place.
func (g *Generator) Generate(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	resp, err := g.provider.Chat(ctx, llm.ChatRequest{
		Model:     g.opts.Model,
		MaxTokens: g.opts.MaxTokens,
		Messages: []llm.Message{
			llm.SystemMessage(SystemPrompt),
			llm.UserMessage(req.UserPrompt()),
		},
	})
	if err != nil {
		return "", fmt.Errorf("API error: %w", err)
	}

	raw := llm.StripFences(resp.Content)
	body, _ := validator.Unwrap(raw)
	if _, err := jsonld.Parse([]byte(body)); err != nil {
		return raw, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	slog.Debug("generator: row generated",
		"url", req.URL,
		"type", req.SchemaType,
		"tokens", resp.TotalTokens,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return raw, nil
}

// Repair implements audit.Repairer by sending the whole batch back to the
// model and expecting a JSON array in return.
func (g *Generator) Repair(ctx context.Context, docs []*jsonld.Value, findings []audit.Finding) ([]*jsonld.Value, error) {
	prompt, err := repairPrompt(docs, findings)
	if err != nil {
		return nil, err
	}
	resp, err := g.provider.Chat(ctx, llm.ChatRequest{
		Model:     g.opts.Model,
		MaxTokens: g.opts.RepairMaxTokens,
		Messages: []llm.Message{
			llm.SystemMessage(SystemPrompt),
			llm.UserMessage(prompt),
		},
	})
	if err != nil {
		return nil, err
	}

	v, err := jsonld.Parse([]byte(llm.StripFences(resp.Content)))
	if err != nil {
		extracted := llm.ExtractJSONArray(resp.Content)
		if extracted == "" {
			return nil, fmt.Errorf("response was not valid JSON: %w", err)
		}
		if v, err = jsonld.Parse([]byte(extracted)); err != nil {
			return nil, fmt.Errorf("response was not valid JSON: %w", err)
		}
	}
	if v.Kind() != jsonld.KindArray {
		return nil, fmt.Errorf("expected a JSON array, got %s", v.Kind())
	}
	return v.AsArray(), nil
}

var _ audit.Repairer = (*Generator)(nil)
