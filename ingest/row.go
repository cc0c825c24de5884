// Package ingest loads the input rows of a run: one page URL per row plus
// optional override columns.
package ingest

import (
	"log/slog"
	"strings"

	"github.com/brunobiangulo/schemagen/schema"
)

// Reserved column names.
const (
	ColumnURL        = "URL"
	ColumnSchemaType = "SchemaType"
)

// Field is one override column value.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Row is one input URL with its override columns. The type fields are
// empty until classify.Assign fills them.
type Row struct {
	URL        string  `json:"url"`
	SchemaType string  `json:"schema_type,omitempty"`
	Overrides  []Field `json:"overrides,omitempty"`

	InferredType  string `json:"inferred_type,omitempty"`
	Confidence    string `json:"confidence,omitempty"`
	ContainerType string `json:"container_type,omitempty"`
	NestedType    string `json:"nested_type,omitempty"`
	IsDual        bool   `json:"is_dual,omitempty"`
}

// PrimaryType is the type used for relationship building: the nested half
// of a dual type, otherwise the inferred type.
func (r Row) PrimaryType() string {
	if r.IsDual {
		return r.NestedType
	}
	return r.InferredType
}

// Override returns the value of the named override column.
func (r Row) Override(name string) string {
	for _, f := range r.Overrides {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

// OverridesText renders the non-empty override columns for a prompt.
func (r Row) OverridesText() string {
	var lines []string
	for _, f := range r.Overrides {
		if f.Value == "" || strings.HasPrefix(f.Name, "_") {
			continue
		}
		lines = append(lines, f.Name+": "+f.Value)
	}
	if len(lines) == 0 {
		return "No CSV overrides provided."
	}
	return "CSV Override Values:\n" + strings.Join(lines, "\n")
}

// Slug is the file-name stem for the row: "homepage" for the site root,
// otherwise the URL path with slashes turned into dashes.
func (r Row) Slug() string {
	path := r.URL
	if i := strings.Index(path, "://"); i >= 0 {
		path = path[i+3:]
	}
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[i:]
	} else {
		path = "/"
	}
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.Trim(path, "/")
	if path == "" {
		return "homepage"
	}
	return strings.ReplaceAll(path, "/", "-")
}

// FileStem is "<type>-<slug>" with the type lower-cased and the dual
// separator replaced, used for per-row output files.
func (r Row) FileStem() string {
	t := strings.ToLower(strings.ReplaceAll(r.InferredType, schema.DualSeparator, "-"))
	if t == "" {
		t = "unknown"
	}
	return t + "-" + r.Slug()
}

// fromRecord builds a Row from a header and one record. Values and headers
// are trimmed; missing trailing cells read as empty.
func fromRecord(header, record []string) (Row, bool) {
	var row Row
	for i, name := range header {
		val := ""
		if i < len(record) {
			val = strings.TrimSpace(record[i])
		}
		switch name {
		case ColumnURL:
			row.URL = val
		case ColumnSchemaType:
			row.SchemaType = val
		case "":
		default:
			row.Overrides = append(row.Overrides, Field{Name: name, Value: val})
		}
	}
	return row, row.URL != ""
}

// dedupe drops rows whose URL was already seen, keeping the first.
func dedupe(rows []Row) []Row {
	seen := make(map[string]bool, len(rows))
	out := rows[:0]
	for _, r := range rows {
		if seen[r.URL] {
			slog.Warn("ingest: duplicate URL skipped", "url", r.URL)
			continue
		}
		seen[r.URL] = true
		out = append(out, r)
	}
	return out
}

func normaliseHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		out[i] = strings.TrimSpace(h)
	}
	return out
}
