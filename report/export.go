package report

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/brunobiangulo/schemagen/validator"
)

// CSVHeader is the header row of the CSV export.
var CSVHeader = []string{"URL", "SchemaType", "Validation", "Issues", "JSON-LD"}

// WriteCSV writes one line per entry.
func WriteCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, e := range entries {
		rec := []string{e.Row.URL, e.Row.InferredType, string(e.Result.Status), e.Result.IssueSummary(), e.JSONLD}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FileName is the name of an entry's document in the ZIP bundle.
func FileName(e Entry) string {
	return e.Row.FileStem() + ".json"
}

// WriteZIP writes every generated document as its own JSON file. Names
// that collide get a numeric suffix.
func WriteZIP(w io.Writer, entries []Entry) error {
	zw := zip.NewWriter(w)
	used := make(map[string]int)
	for _, e := range entries {
		if e.JSONLD == "" {
			continue
		}
		stem := e.Row.FileStem()
		used[stem]++
		name := stem + ".json"
		if n := used[stem]; n > 1 {
			name = fmt.Sprintf("%s-%d.json", stem, n)
		}
		f, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return err
		}
		if _, err := io.WriteString(f, e.JSONLD); err != nil {
			return err
		}
	}
	return zw.Close()
}

// Workbook sheet names.
const (
	SheetResults  = "Results"
	SheetFixes    = "Auto-Fixes"
	SheetFindings = "Batch Findings"
)

// WriteXLSX writes a workbook with the results, the auto-fix ledger and
// the batch findings on separate sheets.
func WriteXLSX(w io.Writer, entries []Entry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetResults); err != nil {
		return err
	}
	for _, name := range []string{SheetFixes, SheetFindings} {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	results := [][]any{{"URL", "SchemaType", "Confidence", "Validation", "Fails", "Warnings", "Issues", "Error", "JSON-LD"}}
	for _, e := range entries {
		results = append(results, []any{
			e.Row.URL, e.Row.InferredType, e.Row.Confidence, string(e.Result.Status),
			e.Result.Count(validator.SeverityFail), e.Result.Count(validator.SeverityWarn),
			e.Result.IssueSummary(), e.Error, e.JSONLD,
		})
	}

	fixes := [][]any{{"URL", "Fix"}}
	for _, fx := range Fixes(entries) {
		fixes = append(fixes, []any{fx.URL, fx.Fix})
	}

	findings := [][]any{{"URL", "Rule", "Severity", "Message"}}
	for _, e := range entries {
		for _, is := range e.BatchIssues {
			findings = append(findings, []any{e.Row.URL, is.Rule, string(is.Severity), is.Message})
		}
	}

	for _, sheet := range []struct {
		name string
		rows [][]any
	}{
		{SheetResults, results},
		{SheetFixes, fixes},
		{SheetFindings, findings},
	} {
		if err := writeSheet(f, sheet.name, sheet.rows, bold); err != nil {
			return fmt.Errorf("writing sheet %s: %w", sheet.name, err)
		}
	}
	if err := f.SetColWidth(SheetResults, "A", "A", 60); err != nil {
		return err
	}

	return f.Write(w)
}

func writeSheet(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for i, row := range rows {
		if err := f.SetSheetRow(sheet, "A"+strconv.Itoa(i+1), &row); err != nil {
			return err
		}
	}
	return f.SetRowStyle(sheet, 1, 1, headerStyle)
}
