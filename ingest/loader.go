package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned when no loader handles a file extension.
var ErrUnsupportedFormat = errors.New("ingest: unsupported format")

// Loader reads rows from one input format.
type Loader interface {
	Load(ctx context.Context, r io.Reader) ([]Row, error)
	SupportedFormats() []string
}

// Registry maps file extensions to loaders.
type Registry struct {
	loaders map[string]Loader
}

func NewRegistry() *Registry {
	r := &Registry{loaders: make(map[string]Loader)}
	for _, l := range []Loader{&CSVLoader{Comma: ','}, &CSVLoader{Comma: '\t'}, &XLSXLoader{}} {
		for _, f := range l.SupportedFormats() {
			r.loaders[f] = l
		}
	}
	return r
}

func (r *Registry) Get(format string) (Loader, error) {
	l, ok := r.loaders[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return l, nil
}

func (r *Registry) Register(format string, l Loader) {
	r.loaders[format] = l
}

// LoadFile picks a loader from the file extension and reads every row.
func (r *Registry) LoadFile(ctx context.Context, path string) ([]Row, error) {
	format := strings.TrimPrefix(filepath.Ext(path), ".")
	l, err := r.Get(format)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return l.Load(ctx, f)
}

// CSVLoader reads delimited text with a header row. A UTF-8 byte order
// mark is ignored and rows without a URL are skipped.
type CSVLoader struct {
	Comma rune
}

func (l *CSVLoader) SupportedFormats() []string {
	if l.Comma == '\t' {
		return []string{"tsv"}
	}
	return []string{"csv"}
}

func (l *CSVLoader) Load(ctx context.Context, r io.Reader) ([]Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	cr := csv.NewReader(bytes.NewReader(data))
	if l.Comma != 0 {
		cr.Comma = l.Comma
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	header = normaliseHeader(header)

	var rows []Row
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV record: %w", err)
		}
		if row, ok := fromRecord(header, record); ok {
			rows = append(rows, row)
		}
	}
	return dedupe(rows), nil
}

// XLSXLoader reads the first sheet of a workbook, first row as header.
type XLSXLoader struct{}

func (l *XLSXLoader) SupportedFormats() []string { return []string{"xlsx"} }

func (l *XLSXLoader) Load(ctx context.Context, r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening XLSX: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in XLSX")
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheets[0], err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := normaliseHeader(records[0])
	var rows []Row
	for _, record := range records[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if row, ok := fromRecord(header, record); ok {
			rows = append(rows, row)
		}
	}
	return dedupe(rows), nil
}
