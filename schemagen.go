// Package schemagen generates schema.org JSON-LD for a batch of page URLs
// and validates it: rows are typed from their URLs, enriched with scraped
// page context, generated by an LLM, checked against the rule set, audited
// as a linked graph and finally persisted with a markdown report.
package schemagen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/brunobiangulo/schemagen/audit"
	"github.com/brunobiangulo/schemagen/classify"
	"github.com/brunobiangulo/schemagen/fetch"
	"github.com/brunobiangulo/schemagen/generator"
	"github.com/brunobiangulo/schemagen/hierarchy"
	"github.com/brunobiangulo/schemagen/ingest"
	"github.com/brunobiangulo/schemagen/llm"
	"github.com/brunobiangulo/schemagen/report"
	"github.com/brunobiangulo/schemagen/store"
	"github.com/brunobiangulo/schemagen/validator"
)

// Engine is the main entry point for batch generation and validation.
type Engine interface {
	// Run processes rows end to end and returns every row's final state.
	Run(ctx context.Context, rows []ingest.Row, opts ...RunOption) (*RunResult, error)

	// RunFile loads rows from a CSV, TSV or XLSX file and runs them.
	RunFile(ctx context.Context, path string, opts ...RunOption) (*RunResult, error)

	// Validate checks one standalone document without a registry.
	Validate(raw string) validator.Result

	// Infer returns the type assignment for a URL and optional override.
	Infer(url, override string) Inference

	// ListRuns returns stored runs, most recent first.
	ListRuns(ctx context.Context, limit int) ([]store.Run, error)

	// GetRun returns a stored run with its per-row results.
	GetRun(ctx context.Context, id string) (*RunDetail, error)

	// DeleteRun removes a stored run.
	DeleteRun(ctx context.Context, id string) error

	// Close cleanly shuts down the engine.
	Close() error
}

// RunResult is the outcome of a batch run.
type RunResult struct {
	ID            string          `json:"id"`
	Source        string          `json:"source"`
	Domain        string          `json:"domain"`
	Entries       []report.Entry  `json:"entries"`
	Totals        report.Totals   `json:"totals"`
	Findings      []audit.Finding `json:"findings,omitempty"`
	WiringMessage string          `json:"wiring_message"`
	Report        string          `json:"report"`
	Elapsed       time.Duration   `json:"elapsed"`

	// WiringErr is set when a repair pass ran but its answer was
	// discarded. It wraps ErrRepairFailed.
	WiringErr error `json:"-"`
}

// RunDetail is a stored run with its results.
type RunDetail struct {
	Run     store.Run      `json:"run"`
	Results []store.Result `json:"results"`
}

// Inference is the type assignment of one URL.
type Inference struct {
	URL        string `json:"url"`
	Type       string `json:"type"`
	Confidence string `json:"confidence"`
	Container  string `json:"container,omitempty"`
	Nested     string `json:"nested,omitempty"`
	IsDual     bool   `json:"is_dual"`
	Valid      bool   `json:"valid"`
	Reason     string `json:"reason,omitempty"`
}

// Option configures an engine at construction.
type Option func(*engine)

// WithProvider replaces the provider built from Config.LLM.
func WithProvider(p llm.Provider) Option {
	return func(e *engine) { e.provider = p }
}

// WithMetrics makes the engine report to m.
func WithMetrics(m *Metrics) Option {
	return func(e *engine) { e.metrics = m }
}

// RunOption configures a single run.
type RunOption func(*runOptions)

type runOptions struct {
	source     string
	skipFetch  bool
	skipWiring bool
}

// WithSource names the input of the run, e.g. the file it came from.
func WithSource(name string) RunOption {
	return func(o *runOptions) { o.source = name }
}

// WithoutFetch disables page scraping for this run.
func WithoutFetch() RunOption {
	return func(o *runOptions) { o.skipFetch = true }
}

// WithoutWiring disables the batch repair pass for this run.
func WithoutWiring() RunOption {
	return func(o *runOptions) { o.skipWiring = true }
}

// pageNotFetched stands in for page context when scraping is off.
const pageNotFetched = "[Page not fetched: scraping disabled]"

// engine is the concrete implementation of Engine.
type engine struct {
	cfg      Config
	store    *store.Store
	provider llm.Provider
	gen      *generator.Generator
	fetcher  *fetch.Fetcher
	loaders  *ingest.Registry
	metrics  *Metrics
	now      func() time.Time
}

// New creates an engine with the given configuration.
func New(cfg Config, opts ...Option) (Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &engine{
		cfg:     cfg,
		fetcher: fetch.New(cfg.Fetch.options()),
		loaders: ingest.NewRegistry(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(e)
	}

	if !cfg.Store.Disabled {
		s, err := store.New(cfg.Store.resolveDBPath())
		if err != nil {
			return nil, fmt.Errorf("opening store: %w", err)
		}
		e.store = s
	}

	if e.provider == nil {
		p, err := llm.NewProvider(llm.Config{
			Provider: cfg.LLM.Provider,
			Model:    cfg.LLM.Model,
			BaseURL:  cfg.LLM.BaseURL,
			APIKey:   cfg.LLM.APIKey,
		})
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("creating llm provider: %w", err)
		}
		e.provider = p
	}

	e.gen = generator.New(e.provider, generator.Options{
		Model:           cfg.LLM.Model,
		MaxTokens:       cfg.LLM.MaxTokens,
		RepairMaxTokens: cfg.LLM.RepairMaxTokens,
	})
	return e, nil
}

// RunFile loads path through the ingest registry and runs its rows.
func (e *engine) RunFile(ctx context.Context, path string, opts ...RunOption) (*RunResult, error) {
	rows, err := e.loaders.LoadFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return e.Run(ctx, rows, append([]RunOption{WithSource(filepath.Base(path))}, opts...)...)
}

// Run processes rows through the full pipeline.
func (e *engine) Run(ctx context.Context, rows []ingest.Row, opts ...RunOption) (*RunResult, error) {
	options := &runOptions{}
	for _, o := range opts {
		o(options)
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}

	start := time.Now()
	rows = append([]ingest.Row(nil), rows...)
	classify.Assign(rows)

	res := &RunResult{
		ID:     uuid.NewString(),
		Source: options.source,
		Domain: classify.Domain(rows[0].URL),
	}
	slog.Info("run: starting", "id", res.ID, "rows", len(rows), "domain", res.Domain, "source", res.Source)

	if e.store != nil {
		if err := e.store.CreateRun(ctx, store.Run{
			ID: res.ID, Source: res.Source, Domain: res.Domain, Model: e.cfg.LLM.Model, Total: len(rows),
		}); err != nil {
			return nil, fmt.Errorf("recording run: %w", err)
		}
	}

	services := hierarchy.BuildServiceHierarchy(rows)
	locations := hierarchy.BuildLocationRelationships(rows)
	slog.Info("run: relationships built", "services", services.Len())

	fetchOn := e.cfg.Fetch.Enabled && !options.skipFetch
	orgText := fetch.NoOrganizationData
	if fetchOn && e.cfg.Run.OrgDiscovery && res.Domain != "" {
		orgText, _ = e.fetcher.DiscoverOrganization(ctx, res.Domain)
	}
	var pages map[string]*fetch.Page
	if fetchOn {
		urls := make([]string, len(rows))
		for i, r := range rows {
			urls[i] = r.URL
		}
		pages = e.fetcher.FetchAll(ctx, urls, time.Duration(e.cfg.Fetch.DelayMS)*time.Millisecond)
	}

	registry := audit.NewRegistry()
	entries := make([]report.Entry, len(rows))
	var accepted []audit.Document
	acceptedAt := make(map[int]int) // entry index -> accepted index
	generated := 0

	for i, row := range rows {
		if i > 0 {
			if err := e.pause(ctx, time.Duration(e.cfg.Run.GenerationDelayMS)*time.Millisecond); err != nil {
				e.abort(ctx, res.ID)
				return nil, err
			}
		}

		pageText := pageNotFetched
		if fetchOn {
			pageText = pages[row.URL].PromptText()
		}
		slog.Info("run: generating", "index", i+1, "total", len(rows), "url", row.URL, "type", row.InferredType)

		raw, err := e.gen.Generate(ctx, generator.Request{
			URL:           row.URL,
			SchemaType:    row.InferredType,
			Domain:        res.Domain,
			PageText:      pageText,
			OrgText:       orgText,
			OverridesText: row.OverridesText(),
			HierarchyText: services.ContextText(row.URL),
			LocationText:  locations.ContextText(row.URL),
		})
		if err != nil {
			if ctx.Err() != nil {
				e.abort(ctx, res.ID)
				return nil, ctx.Err()
			}
			slog.Warn("run: generation failed", "url", row.URL, "error", err)
			if e.metrics != nil {
				e.metrics.GenerationErrors.Inc()
			}
			entries[i] = report.Entry{Row: row, Result: validator.Failed(err.Error()), JSONLD: raw, Error: err.Error()}
			continue
		}
		generated++

		vr := validator.Validate(raw, validator.Options{KnownIDs: registry})
		e.metrics.observe(vr)
		entry := report.Entry{Row: row, Result: vr, JSONLD: raw}
		if vr.Document != nil {
			registry.RegisterIDs(vr.Document)
			entry.JSONLD = vr.JSON()
			acceptedAt[i] = len(accepted)
			accepted = append(accepted, audit.Document{URL: row.URL, Doc: vr.Document})
		}
		entries[i] = entry
		slog.Info("run: validated", "url", row.URL, "status", vr.Status, "issues", len(vr.Issues), "fixes", len(vr.AutoFixes))
	}

	res.Findings = audit.Check(accepted)
	wiringOn := e.cfg.Run.GraphWiring && !options.skipWiring
	var repairer audit.Repairer
	if wiringOn {
		repairer = e.gen
	}
	outcome := audit.RepairBatch(ctx, repairer, accepted, res.Findings)
	res.WiringMessage = outcome.Message
	e.countRepair(wiringOn && len(accepted) > 0, outcome)

	if outcome.Changed {
		for _, d := range outcome.Docs {
			registry.RegisterIDs(d.Doc)
		}
		for i := range entries {
			j, ok := acceptedAt[i]
			if !ok {
				continue
			}
			vr := validator.ValidateDocument(outcome.Docs[j].Doc, validator.Options{KnownIDs: registry})
			vr.AutoFixes = append(append([]string{}, entries[i].Result.AutoFixes...), vr.AutoFixes...)
			entries[i].Result = vr
			entries[i].JSONLD = vr.JSON()
			if vr.Document != nil {
				outcome.Docs[j].Doc = vr.Document
			}
		}
		res.Findings = audit.Check(outcome.Docs)
	} else if wiringOn && len(accepted) > 0 {
		res.WiringErr = fmt.Errorf("%w: %s", ErrRepairFailed, outcome.Message)
	}

	byURL := make(map[string]int, len(entries))
	for i, en := range entries {
		if _, seen := byURL[en.Row.URL]; !seen {
			byURL[en.Row.URL] = i
		}
	}
	for _, f := range res.Findings {
		if i, ok := byURL[f.URL]; ok {
			entries[i].BatchIssues = append(entries[i].BatchIssues, f.Issue)
		}
	}

	res.Entries = entries
	res.Totals = report.Summarize(entries)
	res.Report = report.Build(entries, e.now())
	res.Elapsed = time.Since(start)

	status := store.RunCompleted
	var runErr error
	if generated == 0 {
		status = store.RunFailed
		runErr = fmt.Errorf("%w (%d rows)", ErrGenerationFailed, len(rows))
	}
	if err := e.persist(ctx, res, status); err != nil {
		return res, fmt.Errorf("persisting run %s: %w", res.ID, err)
	}
	if e.metrics != nil {
		e.metrics.Runs.WithLabelValues(status).Inc()
		e.metrics.RunDuration.Observe(res.Elapsed.Seconds())
	}

	slog.Info("run: complete",
		"id", res.ID,
		"passed", res.Totals.Passed,
		"warned", res.Totals.Warned,
		"failed", res.Totals.Failed,
		"findings", len(res.Findings),
		"elapsed", res.Elapsed.Round(time.Millisecond),
	)
	return res, runErr
}

func (e *engine) countRepair(attempted bool, outcome audit.RepairOutcome) {
	if e.metrics == nil {
		return
	}
	label := "skipped"
	switch {
	case outcome.Changed:
		label = "applied"
	case attempted:
		label = "discarded"
	}
	e.metrics.RepairPasses.WithLabelValues(label).Inc()
}

// pause waits d unless ctx ends first.
func (e *engine) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// abort marks a run cut short by cancellation as failed.
func (e *engine) abort(ctx context.Context, id string) {
	if e.store == nil {
		return
	}
	if err := e.store.FinishRun(context.WithoutCancel(ctx), id, store.Summary{Status: store.RunFailed}); err != nil {
		slog.Warn("run: marking run failed", "id", id, "error", err)
	}
}

// persist writes every entry and closes out the run record.
func (e *engine) persist(ctx context.Context, res *RunResult, status string) error {
	if e.store == nil {
		return nil
	}
	for i, en := range res.Entries {
		if _, err := e.store.SaveResult(ctx, res.ID, storeResult(i, en)); err != nil {
			return fmt.Errorf("saving result %d: %w", i, err)
		}
	}
	return e.store.FinishRun(ctx, res.ID, store.Summary{
		Status:        status,
		Total:         res.Totals.Total,
		Passed:        res.Totals.Passed,
		Warned:        res.Totals.Warned,
		Failed:        res.Totals.Failed,
		WiringMessage: res.WiringMessage,
		Report:        res.Report,
	})
}

func storeResult(pos int, en report.Entry) store.Result {
	r := store.Result{
		Position:   pos,
		URL:        en.Row.URL,
		SchemaType: en.Row.InferredType,
		Confidence: en.Row.Confidence,
		Status:     string(en.Result.Status),
		JSONLD:     en.JSONLD,
		Error:      en.Error,
		Fixes:      en.Result.AutoFixes,
	}
	for _, is := range en.Result.Issues {
		r.Issues = append(r.Issues, store.Issue{Rule: is.Rule, Severity: string(is.Severity), Message: is.Message})
	}
	for _, is := range en.BatchIssues {
		r.Issues = append(r.Issues, store.Issue{Rule: is.Rule, Severity: string(is.Severity), Message: is.Message, Batch: true})
	}
	return r
}

// Validate checks a standalone document. Reference resolution is skipped
// because there is no run registry.
func (e *engine) Validate(raw string) validator.Result {
	res := validator.Validate(raw, validator.Options{})
	e.metrics.observe(res)
	return res
}

// Infer types a single URL the way a run would.
func (e *engine) Infer(url, override string) Inference {
	rows := []ingest.Row{{URL: url, SchemaType: override}}
	classify.Assign(rows)
	r := rows[0]
	ok, reason := classify.ValidateDual(r.InferredType)
	return Inference{
		URL:        url,
		Type:       r.InferredType,
		Confidence: r.Confidence,
		Container:  r.ContainerType,
		Nested:     r.NestedType,
		IsDual:     r.IsDual,
		Valid:      ok,
		Reason:     reason,
	}
}

func (e *engine) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	if e.store == nil {
		return nil, ErrStoreDisabled
	}
	return e.store.ListRuns(ctx, limit)
}

func (e *engine) GetRun(ctx context.Context, id string) (*RunDetail, error) {
	if e.store == nil {
		return nil, ErrStoreDisabled
	}
	run, err := e.store.GetRun(ctx, id)
	if err != nil {
		return nil, notFound(id, err)
	}
	results, err := e.store.GetRunResults(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading results of run %s: %w", id, err)
	}
	return &RunDetail{Run: *run, Results: results}, nil
}

func (e *engine) DeleteRun(ctx context.Context, id string) error {
	if e.store == nil {
		return ErrStoreDisabled
	}
	return notFound(id, e.store.DeleteRun(ctx, id))
}

func notFound(id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return err
}

// Close releases the store.
func (e *engine) Close() error {
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}
