package report

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/brunobiangulo/schemagen/ingest"
	"github.com/brunobiangulo/schemagen/validator"
)

func entries() []Entry {
	return []Entry{
		{
			Row:    ingest.Row{URL: "https://acme.test/", InferredType: "Organization", Confidence: "High"},
			Result: validator.Result{Status: validator.StatusPass, AutoFixes: []string{"Fixed @context to https://schema.org"}},
			JSONLD: `{"@type": "Organization"}`,
		},
		{
			Row: ingest.Row{URL: "https://acme.test/team/jane/", InferredType: "WebContent|Person", Confidence: "High",
				ContainerType: "WebContent", NestedType: "Person", IsDual: true},
			Result: validator.Result{Status: validator.StatusWarn, Issues: []validator.Issue{
				{Rule: 16, Severity: validator.SeverityWarn, Message: "Person has no subjectOf back-link to the WebContent container"},
			}},
			JSONLD: `{"@graph": []}`,
			BatchIssues: []validator.Issue{
				{Rule: 15, Severity: validator.SeverityWarn, Message: "Person p is not connected to an Organization"},
			},
		},
		{
			Row:    ingest.Row{URL: "https://acme.test/services/ac/", InferredType: "Service", Confidence: "Override"},
			Result: validator.Failed("API error: boom"),
			Error:  "API error: boom",
		},
	}
}

var fixed = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func TestBuild(t *testing.T) {
	got := Build(entries(), fixed)

	want := "# Structured Data Validation Report\n\n" +
		"**Generated:** 2026-03-04 05:06:07\n" +
		"**Total rows:** 3\n" +
		"**Single-type rows:** 2  |  **Dual-type rows:** 1\n" +
		"**Passed:** 1  |  **Warnings:** 1  |  **Failed:** 1\n\n" +
		"## Per-Row Summary\n\n" +
		"| URL | Type | Status | Issues |\n" +
		"|-----|------|--------|--------|\n" +
		"| https://acme.test/ | Organization | ✅ PASS | — |\n" +
		"| https://acme.test/team/jane/ | WebContent\\|Person | ⚠️ WARN | Rule 16: Person has no subjectOf back-link to the WebContent container |\n" +
		"| https://acme.test/services/ac/ | Service | ❌ FAIL | Rule 0: API error: boom |\n" +
		"\n## Dual-Type Assignments\n\n" +
		"| URL | Container | Nested | Source |\n" +
		"|-----|-----------|--------|--------|\n" +
		"| https://acme.test/team/jane/ | WebContent | Person | High |\n" +
		"\n## Batch Findings\n\n" +
		"| URL | Finding |\n" +
		"|-----|---------|\n" +
		"| https://acme.test/team/jane/ | Rule 15: Person p is not connected to an Organization |\n" +
		"\n## Auto-Fixes Applied\n\n" +
		"| URL | Fix |\n" +
		"|-----|-----|\n" +
		"| https://acme.test/ | Fixed @context to https://schema.org |\n"
	assert.Equal(t, want, got)

	assert.Equal(t, got, Build(entries(), fixed))
}

func TestBuildMinimal(t *testing.T) {
	got := Build([]Entry{{Row: ingest.Row{URL: "u", InferredType: "Service"}, Result: validator.Result{Status: validator.StatusPass}}}, fixed)
	assert.NotContains(t, got, "Dual-Type Assignments")
	assert.NotContains(t, got, "Batch Findings")
	assert.NotContains(t, got, "Auto-Fixes Applied")
	assert.Contains(t, got, "**Single-type rows:** 1  |  **Dual-type rows:** 0")
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, Totals{Total: 3, Passed: 1, Warned: 1, Failed: 1, Single: 2, Dual: 1}, Summarize(entries()))
	assert.Equal(t, Totals{}, Summarize(nil))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, entries()))

	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 4)
	assert.Equal(t, CSVHeader, recs[0])
	assert.Equal(t, []string{"https://acme.test/", "Organization", "PASS", "—", `{"@type": "Organization"}`}, recs[1])
	assert.Equal(t, "FAIL", recs[3][2])
	assert.Equal(t, "", recs[3][4])
}

func TestWriteZIP(t *testing.T) {
	es := entries()
	es = append(es, Entry{Row: ingest.Row{URL: "https://acme.test/", InferredType: "Organization"}, JSONLD: `{}`})

	var buf bytes.Buffer
	require.NoError(t, WriteZIP(&buf, es))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{
		"organization-homepage.json",
		"webcontent-person-team-jane.json",
		"organization-homepage-2.json",
	}, names)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, `{"@type": "Organization"}`, string(body))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "service-services-ac.json", FileName(entries()[2]))
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, entries()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetResults, SheetFixes, SheetFindings}, f.GetSheetList())

	rows, err := f.GetRows(SheetResults)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "URL", rows[0][0])
	assert.Equal(t, []string{"https://acme.test/services/ac/", "Service", "Override", "FAIL", "1", "0", "Rule 0: API error: boom", "API error: boom"}, rows[3])

	fixes, err := f.GetRows(SheetFixes)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"URL", "Fix"}, {"https://acme.test/", "Fixed @context to https://schema.org"}}, fixes)

	findings, err := f.GetRows(SheetFindings)
	require.NoError(t, err)
	require.Len(t, findings, 2)
	assert.Equal(t, []string{"https://acme.test/team/jane/", "15", "WARN", "Person p is not connected to an Organization"}, findings[1])
}

func TestEmbedAndGuide(t *testing.T) {
	assert.Equal(t, "<script type=\"application/ld+json\">\n{}\n</script>", Embed("{}"))

	guide := ImplementationGuide(entries())
	assert.Contains(t, guide, "## https://acme.test/\n\n```html\n<script type=\"application/ld+json\">\n{\"@type\": \"Organization\"}\n</script>\n```\n")
	assert.NotContains(t, guide, "services/ac")
	assert.Equal(t, 2, strings.Count(guide, "```html"))
}
