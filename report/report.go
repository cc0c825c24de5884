// Package report renders the outcome of a run: the markdown validation
// report and the CSV, ZIP, XLSX and embed exports.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/brunobiangulo/schemagen/ingest"
	"github.com/brunobiangulo/schemagen/validator"
)

// Entry is the final state of one input row.
type Entry struct {
	Row    ingest.Row       `json:"row"`
	Result validator.Result `json:"result"`
	// JSONLD is the document text delivered for the row, empty when
	// generation produced nothing.
	JSONLD string `json:"jsonld"`
	Error  string `json:"error,omitempty"`
	// BatchIssues are the audit findings attributed to this row.
	BatchIssues []validator.Issue `json:"batch_issues,omitempty"`
}

// Totals aggregates a run.
type Totals struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Warned int `json:"warned"`
	Failed int `json:"failed"`
	Single int `json:"single"`
	Dual   int `json:"dual"`
}

func Summarize(entries []Entry) Totals {
	t := Totals{Total: len(entries)}
	for _, e := range entries {
		switch e.Result.Status {
		case validator.StatusPass:
			t.Passed++
		case validator.StatusWarn:
			t.Warned++
		case validator.StatusFail:
			t.Failed++
		}
		if e.Row.IsDual {
			t.Dual++
		} else {
			t.Single++
		}
	}
	return t
}

var statusIcon = map[validator.Status]string{
	validator.StatusPass: "✅",
	validator.StatusWarn: "⚠️",
	validator.StatusFail: "❌",
}

// TimeFormat is the layout of the report timestamp.
const TimeFormat = "2006-01-02 15:04:05"

// Build renders the markdown validation report of entries generated at
// now. The output depends only on its arguments.
func Build(entries []Entry, now time.Time) string {
	t := Summarize(entries)
	var b strings.Builder

	b.WriteString("# Structured Data Validation Report\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n", now.Format(TimeFormat))
	fmt.Fprintf(&b, "**Total rows:** %d\n", t.Total)
	fmt.Fprintf(&b, "**Single-type rows:** %d  |  **Dual-type rows:** %d\n", t.Single, t.Dual)
	fmt.Fprintf(&b, "**Passed:** %d  |  **Warnings:** %d  |  **Failed:** %d\n\n", t.Passed, t.Warned, t.Failed)

	b.WriteString("## Per-Row Summary\n\n")
	b.WriteString("| URL | Type | Status | Issues |\n")
	b.WriteString("|-----|------|--------|--------|\n")
	for _, e := range entries {
		status := e.Result.Status
		icon := statusIcon[status]
		if icon == "" {
			icon = "?"
		}
		fmt.Fprintf(&b, "| %s | %s | %s %s | %s |\n",
			cell(e.Row.URL), cell(e.Row.InferredType), icon, status, cell(e.Result.IssueSummary()))
	}

	var dual []Entry
	for _, e := range entries {
		if e.Row.IsDual {
			dual = append(dual, e)
		}
	}
	if len(dual) > 0 {
		b.WriteString("\n## Dual-Type Assignments\n\n")
		b.WriteString("| URL | Container | Nested | Source |\n")
		b.WriteString("|-----|-----------|--------|--------|\n")
		for _, e := range dual {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				cell(e.Row.URL), cell(e.Row.ContainerType), cell(e.Row.NestedType), cell(e.Row.Confidence))
		}
	}

	var findings [][2]string
	for _, e := range entries {
		for _, is := range e.BatchIssues {
			findings = append(findings, [2]string{e.Row.URL, is.String()})
		}
	}
	if len(findings) > 0 {
		b.WriteString("\n## Batch Findings\n\n")
		b.WriteString("| URL | Finding |\n")
		b.WriteString("|-----|---------|\n")
		for _, f := range findings {
			fmt.Fprintf(&b, "| %s | %s |\n", cell(f[0]), cell(f[1]))
		}
	}

	fixes := Fixes(entries)
	if len(fixes) > 0 {
		b.WriteString("\n## Auto-Fixes Applied\n\n")
		b.WriteString("| URL | Fix |\n")
		b.WriteString("|-----|-----|\n")
		for _, f := range fixes {
			fmt.Fprintf(&b, "| %s | %s |\n", cell(f.URL), cell(f.Fix))
		}
	}
	return b.String()
}

// AppliedFix is one entry of the auto-fix ledger.
type AppliedFix struct {
	URL string `json:"url"`
	Fix string `json:"fix"`
}

// Fixes flattens the auto-fixes of entries in row order.
func Fixes(entries []Entry) []AppliedFix {
	var out []AppliedFix
	for _, e := range entries {
		for _, f := range e.Result.AutoFixes {
			out = append(out, AppliedFix{URL: e.Row.URL, Fix: f})
		}
	}
	return out
}

// cell makes s safe inside a markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

// Embed wraps a document in the script element used to place it on a
// page.
func Embed(jsonld string) string {
	return "<script type=\"application/ld+json\">\n" + jsonld + "\n</script>"
}

// ImplementationGuide lists the embed snippet of every generated entry
// under its URL.
func ImplementationGuide(entries []Entry) string {
	var b strings.Builder
	b.WriteString("# Implementation Guide\n\n")
	b.WriteString("Each JSON-LD block goes on its corresponding page inside a `<script type=\"application/ld+json\">` tag, ")
	b.WriteString("typically in the `<head>` section. The Organization block goes on the homepage.\n")
	for _, e := range entries {
		if e.JSONLD == "" {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n```html\n%s\n```\n", e.Row.URL, Embed(e.JSONLD))
	}
	return b.String()
}
