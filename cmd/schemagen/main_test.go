package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brunobiangulo/schemagen/ingest"
	"github.com/brunobiangulo/schemagen/report"
	"github.com/brunobiangulo/schemagen/validator"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level, format string
		wantErr       bool
	}{
		{"info", "text", false},
		{"", "", false},
		{"DEBUG", "json", false},
		{"warn", "text", false},
		{"error", "json", false},
		{"verbose", "text", true},
		{"info", "xml", true},
	}
	for _, tt := range tests {
		_, err := newLogger(&bytes.Buffer{}, tt.level, tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("newLogger(%q, %q) error = %v, wantErr %v", tt.level, tt.format, err, tt.wantErr)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "", "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "schemagen version "+Version) {
		t.Errorf("output = %q", out)
	}
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	if err := os.WriteFile(good, []byte(`{"@context": "https://schema.org", "@type": "Service", "@id": "s"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "", "validate", good)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, good+": PASS") {
		t.Errorf("output = %q", out)
	}

	// Missing @context from stdin.
	out, err = execute(t, `{"@type": "Service", "@id": "s"}`, "validate", "--json", "-")
	if err == nil || !strings.Contains(err.Error(), "1 of 1 documents failed") {
		t.Fatalf("err = %v", err)
	}
	var res struct {
		File   string           `json:"file"`
		Status validator.Status `json:"status"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if res.File != "-" || res.Status != validator.StatusFail {
		t.Errorf("result = %+v", res)
	}

	if _, err := execute(t, "", "validate", filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestInferCommand(t *testing.T) {
	out, err := execute(t, "", "infer", "https://acme.test/", "https://acme.test/about/")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	if lines[0] != "https://acme.test/\tOrganization\tHigh" {
		t.Errorf("line 0 = %q", lines[0])
	}
	if lines[1] != "https://acme.test/about/\tAboutPage\tHigh" {
		t.Errorf("line 1 = %q", lines[1])
	}

	out, err = execute(t, "", "infer", "--type", "Service", "https://acme.test/x/")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "\tService\tOverride") {
		t.Errorf("override output = %q", out)
	}
}

func TestWriteOutputs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	doc := `{"@context": "https://schema.org", "@type": "Service", "@id": "https://acme.test/a/#service"}`
	entries := []report.Entry{{
		Row:    ingest.Row{URL: "https://acme.test/a/", InferredType: "Service"},
		Result: validator.Validate(doc, validator.Options{}),
		JSONLD: doc,
	}}

	if err := writeOutputs(dir, entries, "# Structured Data Validation Report\n"); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{fileReport, fileGuide, fileCSV, fileZIP, fileXLSX} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", name)
		}
	}
}
