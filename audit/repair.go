package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brunobiangulo/schemagen/jsonld"
)

// Repairer rewrites a whole batch so that its cross-document links hold.
// It receives the accepted documents and the findings that motivated the
// call, and returns a batch of the same length and order.
type Repairer interface {
	Repair(ctx context.Context, docs []*jsonld.Value, findings []Finding) ([]*jsonld.Value, error)
}

// RepairOutcome describes what a repair pass did.
type RepairOutcome struct {
	Docs    []Document
	Changed bool
	Message string
}

// RepairBatch hands docs to r and adopts its answer only when it is a
// batch of the same length holding an object for every position. In every
// other case the original documents are returned unchanged and Message
// says why.
func RepairBatch(ctx context.Context, r Repairer, docs []Document, findings []Finding) RepairOutcome {
	keep := func(msg string) RepairOutcome {
		return RepairOutcome{Docs: docs, Message: msg}
	}
	if r == nil || len(docs) == 0 {
		return keep("Graph wiring pass skipped.")
	}

	in := make([]*jsonld.Value, len(docs))
	for i, d := range docs {
		in[i] = d.Doc.Clone()
	}

	start := time.Now()
	slog.Info("audit: repair pass", "documents", len(docs), "findings", len(findings))

	out, err := r.Repair(ctx, in, findings)
	if err != nil {
		slog.Warn("audit: repair failed, keeping originals", "error", err)
		return keep(fmt.Sprintf("Graph wiring error: %v. Using original blocks.", err))
	}
	if len(out) != len(docs) {
		slog.Warn("audit: repair changed batch size, keeping originals", "want", len(docs), "got", len(out))
		return keep(fmt.Sprintf("Graph wiring returned %d blocks for %d documents. Using original blocks.", len(out), len(docs)))
	}
	for i, d := range out {
		if !d.IsObject() {
			return keep(fmt.Sprintf("Graph wiring returned a non-object block at position %d. Using original blocks.", i))
		}
	}

	repaired := make([]Document, len(docs))
	for i, d := range docs {
		repaired[i] = Document{URL: d.URL, Doc: out[i]}
	}
	slog.Info("audit: repair pass complete", "elapsed", time.Since(start).Round(time.Millisecond))
	return RepairOutcome{Docs: repaired, Changed: true, Message: "Graph wiring pass completed successfully."}
}
