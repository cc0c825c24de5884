package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

// ---------------------------------------------------------------------------
// Registry tests
// ---------------------------------------------------------------------------

func TestRegistryBuiltInLoaders(t *testing.T) {
	reg := NewRegistry()
	for _, format := range []string{"csv", "CSV", "tsv", "xlsx"} {
		t.Run(format, func(t *testing.T) {
			l, err := reg.Get(format)
			if err != nil {
				t.Fatalf("Get(%q) returned error: %v", format, err)
			}
			if l == nil {
				t.Fatalf("Get(%q) returned nil loader", format)
			}
		})
	}
}

func TestRegistryUnknown(t *testing.T) {
	reg := NewRegistry()
	for _, format := range []string{"pdf", "json", ""} {
		_, err := reg.Get(format)
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("Get(%q) error = %v, want ErrUnsupportedFormat", format, err)
		}
	}
}

// ---------------------------------------------------------------------------
// CSV
// ---------------------------------------------------------------------------

func TestCSVLoader(t *testing.T) {
	input := "\xef\xbb\xbf URL , SchemaType ,Business Name,Phone\n" +
		"https://x.com/, , Acme HVAC ,404-555-1234\n" +
		",Service,ignored,\n" +
		"https://x.com/team/jane/,WebContent|Person,,\n" +
		"https://x.com/,,dup,\n"

	rows, err := (&CSVLoader{Comma: ','}).Load(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2: %+v", len(rows), rows)
	}

	if rows[0].URL != "https://x.com/" {
		t.Errorf("rows[0].URL = %q", rows[0].URL)
	}
	if got := rows[0].Override("Business Name"); got != "Acme HVAC" {
		t.Errorf("Business Name = %q, want trimmed value", got)
	}
	if rows[0].SchemaType != "" {
		t.Errorf("SchemaType = %q, want empty", rows[0].SchemaType)
	}
	if rows[1].SchemaType != "WebContent|Person" {
		t.Errorf("rows[1].SchemaType = %q", rows[1].SchemaType)
	}
}

func TestCSVLoaderEmpty(t *testing.T) {
	rows, err := (&CSVLoader{}).Load(context.Background(), strings.NewReader(""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("got %d rows, want 0", len(rows))
	}
}

func TestTSVLoader(t *testing.T) {
	input := "URL\tCity\nhttps://x.com/locations/atl/\tAtlanta\n"
	rows, err := (&CSVLoader{Comma: '\t'}).Load(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(rows) != 1 || rows[0].Override("City") != "Atlanta" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

// ---------------------------------------------------------------------------
// XLSX
// ---------------------------------------------------------------------------

func TestXLSXLoaderViaRegistry(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	cells := [][]any{
		{"URL", "SchemaType", "Phone"},
		{"https://x.com/services/ac/", "", "4045551234"},
		{"", "Service", ""},
	}
	for i, row := range cells {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	path := filepath.Join(t.TempDir(), "rows.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	rows, err := NewRegistry().LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].Override("Phone") != "4045551234" {
		t.Errorf("Phone = %q", rows[0].Override("Phone"))
	}
}

func TestLoadFileUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.pdf")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewRegistry().LoadFile(context.Background(), path)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
}

// ---------------------------------------------------------------------------
// Row helpers
// ---------------------------------------------------------------------------

func TestOverridesText(t *testing.T) {
	row := Row{URL: "https://x.com/"}
	if got := row.OverridesText(); got != "No CSV overrides provided." {
		t.Errorf("empty overrides = %q", got)
	}

	row.Overrides = []Field{{"Business Name", "Acme"}, {"Fax", ""}, {"_internal", "x"}, {"Phone", "404"}}
	want := "CSV Override Values:\nBusiness Name: Acme\nPhone: 404"
	if got := row.OverridesText(); got != want {
		t.Errorf("OverridesText() = %q, want %q", got, want)
	}
}

func TestSlugAndFileStem(t *testing.T) {
	tests := []struct {
		url, typ, slug, stem string
	}{
		{"https://x.com/", "Organization", "homepage", "organization-homepage"},
		{"https://x.com", "Organization", "homepage", "organization-homepage"},
		{"https://x.com/services/ac/repair/", "Service", "services-ac-repair", "service-services-ac-repair"},
		{"https://x.com/team/jane/?ref=1", "WebContent|Person", "team-jane", "webcontent-person-team-jane"},
	}
	for _, tt := range tests {
		row := Row{URL: tt.url, InferredType: tt.typ}
		if got := row.Slug(); got != tt.slug {
			t.Errorf("Slug(%q) = %q, want %q", tt.url, got, tt.slug)
		}
		if got := row.FileStem(); got != tt.stem {
			t.Errorf("FileStem(%q) = %q, want %q", tt.url, got, tt.stem)
		}
	}
}

func TestPrimaryType(t *testing.T) {
	single := Row{InferredType: "Service"}
	dual := Row{InferredType: "WebContent|Person", IsDual: true, ContainerType: "WebContent", NestedType: "Person"}
	if single.PrimaryType() != "Service" {
		t.Errorf("single primary = %q", single.PrimaryType())
	}
	if dual.PrimaryType() != "Person" {
		t.Errorf("dual primary = %q", dual.PrimaryType())
	}
}
