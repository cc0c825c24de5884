package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/brunobiangulo/schemagen/audit"
	"github.com/brunobiangulo/schemagen/classify"
	"github.com/brunobiangulo/schemagen/ingest"
	"github.com/brunobiangulo/schemagen/validator"
)

// validateCmd checks JSON-LD files without generating anything. Reference
// resolution runs across the files given, in order.
func validateCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "validate <file.json|-> [more files...]",
		Short: "Validate JSON-LD documents against the rule set",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			known := audit.NewRegistry()
			failed := 0
			for _, path := range args {
				raw, err := readInput(cmd.InOrStdin(), path)
				if err != nil {
					return err
				}
				res := validator.Validate(string(raw), validator.Options{KnownIDs: known})
				if res.Document != nil {
					known.RegisterIDs(res.Document)
				}
				if res.Status == validator.StatusFail {
					failed++
				}
				if err := printResult(cmd.OutOrStdout(), path, res, asJSON); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d documents failed validation", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func printResult(w io.Writer, path string, res validator.Result, asJSON bool) error {
	if asJSON {
		out := struct {
			File string `json:"file"`
			validator.Result
		}{path, res}
		out.Document = nil
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	fmt.Fprintf(w, "%s: %s\n", path, res.Status)
	for _, is := range res.Issues {
		fmt.Fprintf(w, "  [%s] %s\n", is.Severity, is)
	}
	for _, f := range res.AutoFixes {
		fmt.Fprintf(w, "  [FIXED] %s\n", f)
	}
	return nil
}

// inferCmd prints the type each URL would be assigned.
func inferCmd() *cobra.Command {
	var override string
	cmd := &cobra.Command{
		Use:   "infer <url> [more urls...]",
		Short: "Show the schema type inferred for page URLs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([]ingest.Row, len(args))
			for i, u := range args {
				rows[i] = ingest.Row{URL: u, SchemaType: override}
			}
			classify.Assign(rows)

			w := cmd.OutOrStdout()
			for _, r := range rows {
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.URL, r.InferredType, r.Confidence)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&override, "type", "", "SchemaType override to check, e.g. WebContent|Person")
	return cmd
}
