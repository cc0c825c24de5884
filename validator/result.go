// Package validator checks a generated JSON-LD document against the
// numbered rule set and returns a PASS/WARN/FAIL verdict, the issues that
// produced it and any corrections that were applied.
package validator

import (
	"fmt"
	"strings"

	"github.com/brunobiangulo/schemagen/jsonld"
)

type Severity string

const (
	SeverityFail Severity = "FAIL"
	SeverityWarn Severity = "WARN"
)

type Status string

const (
	StatusPass Status = "PASS"
	StatusWarn Status = "WARN"
	StatusFail Status = "FAIL"
)

// Issue is one finding of one rule. Rule 0 is reserved for failures that
// happened before validation, such as a generation error.
type Issue struct {
	Rule     int      `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("Rule %d: %s", i.Rule, i.Message)
}

// Result is the outcome of validating one document. Document is the
// corrected copy, nil when the input could not be parsed.
type Result struct {
	Status    Status        `json:"status"`
	Issues    []Issue       `json:"issues"`
	AutoFixes []string      `json:"auto_fixes"`
	Document  *jsonld.Value `json:"document,omitempty"`
}

// StatusOf reduces issues to a verdict: FAIL if any issue fails, WARN if
// any warns, PASS otherwise.
func StatusOf(issues []Issue) Status {
	status := StatusPass
	for _, is := range issues {
		switch is.Severity {
		case SeverityFail:
			return StatusFail
		case SeverityWarn:
			status = StatusWarn
		}
	}
	return status
}

func newResult(issues []Issue, fixes []string, doc *jsonld.Value) Result {
	if issues == nil {
		issues = []Issue{}
	}
	if fixes == nil {
		fixes = []string{}
	}
	return Result{
		Status:    StatusOf(issues),
		Issues:    issues,
		AutoFixes: fixes,
		Document:  doc,
	}
}

// Failed builds the result recorded for a row whose document could not be
// produced at all.
func Failed(msg string) Result {
	return newResult([]Issue{{Rule: 0, Severity: SeverityFail, Message: msg}}, nil, nil)
}

// IssueSummary joins the issues as "Rule N: message" pairs, or returns a
// dash when there are none.
func (r Result) IssueSummary() string {
	if len(r.Issues) == 0 {
		return "—"
	}
	parts := make([]string, len(r.Issues))
	for i, is := range r.Issues {
		parts[i] = is.String()
	}
	return strings.Join(parts, "; ")
}

// Count returns how many issues of the given severity the result holds.
func (r Result) Count(sev Severity) int {
	n := 0
	for _, is := range r.Issues {
		if is.Severity == sev {
			n++
		}
	}
	return n
}

// JSON returns the corrected document indented for output, or "" when
// there is none.
func (r Result) JSON() string {
	if r.Document == nil {
		return ""
	}
	s, err := r.Document.Indent()
	if err != nil {
		return ""
	}
	return s
}
