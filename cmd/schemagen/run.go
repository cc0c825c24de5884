package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/brunobiangulo/schemagen"
	"github.com/brunobiangulo/schemagen/report"
)

// Output file names written by the run command.
const (
	fileReport = "validation-report.md"
	fileGuide  = "implementation-guide.md"
	fileCSV    = "results.csv"
	fileZIP    = "jsonld.zip"
	fileXLSX   = "results.xlsx"
)

func runCmd(g *globalFlags) *cobra.Command {
	var (
		outDir   string
		noFetch  bool
		noWiring bool
		noStore  bool
	)

	cmd := &cobra.Command{
		Use:   "run <urls.csv|urls.xlsx>",
		Short: "Generate, validate and audit JSON-LD for every URL in a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := schemagen.LoadConfig(g.configPath)
			if err != nil {
				return err
			}
			if noStore {
				cfg.Store.Disabled = true
			}

			engine, err := schemagen.New(cfg)
			if err != nil {
				return fmt.Errorf("creating engine: %w", err)
			}
			defer engine.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var opts []schemagen.RunOption
			if noFetch {
				opts = append(opts, schemagen.WithoutFetch())
			}
			if noWiring {
				opts = append(opts, schemagen.WithoutWiring())
			}

			res, runErr := engine.RunFile(ctx, args[0], opts...)
			if res == nil {
				return runErr
			}
			if err := writeOutputs(outDir, res.Entries, res.Report); err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), res, outDir)
			if res.WiringErr != nil {
				slog.Warn("run: graph wiring not applied", "error", res.WiringErr)
			}
			return runErr
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "schemagen-output", "Directory for the report and exports")
	cmd.Flags().BoolVar(&noFetch, "no-fetch", false, "Do not scrape pages; generate from the URL and overrides only")
	cmd.Flags().BoolVar(&noWiring, "no-wiring", false, "Skip the batch graph wiring pass")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "Do not record the run in the history database")
	return cmd
}

// writeOutputs writes the report and every export into dir.
func writeOutputs(dir string, entries []report.Entry, markdown string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{fileReport, func(w io.Writer) error { _, err := io.WriteString(w, markdown); return err }},
		{fileGuide, func(w io.Writer) error { _, err := io.WriteString(w, report.ImplementationGuide(entries)); return err }},
		{fileCSV, func(w io.Writer) error { return report.WriteCSV(w, entries) }},
		{fileZIP, func(w io.Writer) error { return report.WriteZIP(w, entries) }},
		{fileXLSX, func(w io.Writer) error { return report.WriteXLSX(w, entries) }},
	}
	for _, f := range files {
		if err := writeFile(filepath.Join(dir, f.name), f.write); err != nil {
			return fmt.Errorf("writing %s: %w", f.name, err)
		}
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printSummary(w io.Writer, res *schemagen.RunResult, outDir string) {
	t := res.Totals
	fmt.Fprintf(w, "Run %s\n", res.ID)
	fmt.Fprintf(w, "  rows:     %d (%d single, %d dual)\n", t.Total, t.Single, t.Dual)
	fmt.Fprintf(w, "  passed:   %d\n  warnings: %d\n  failed:   %d\n", t.Passed, t.Warned, t.Failed)
	fmt.Fprintf(w, "  findings: %d\n", len(res.Findings))
	fmt.Fprintf(w, "  wiring:   %s\n", res.WiringMessage)
	fmt.Fprintf(w, "  output:   %s\n", outDir)
}

func openEngine(configPath string) (schemagen.Engine, error) {
	cfg, err := schemagen.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return schemagen.New(cfg)
}

// historyCmd lists, shows and deletes stored runs.
func historyCmd(g *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(g.configPath)
			if err != nil {
				return err
			}
			defer engine.Close()

			runs, err := engine.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(w, "No runs recorded.")
				return nil
			}
			for _, r := range runs {
				fmt.Fprintf(w, "%s  %s  %-9s  %3d rows  %3d pass  %3d warn  %3d fail  %s\n",
					r.ID, r.CreatedAt, r.Status, r.Total, r.Passed, r.Warned, r.Failed, r.Source)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to list (0 for all)")

	cmd.AddCommand(&cobra.Command{
		Use:   "report <run-id>",
		Short: "Print the stored validation report of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(g.configPath)
			if err != nil {
				return err
			}
			defer engine.Close()

			detail, err := engine.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), detail.Run.Report)
			return err
		},
	}, &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(g.configPath)
			if err != nil {
				return err
			}
			defer engine.Close()

			if err := engine.DeleteRun(cmd.Context(), args[0]); err != nil {
				if errors.Is(err, schemagen.ErrRunNotFound) {
					return fmt.Errorf("no run with id %s", args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
			return nil
		},
	})
	return cmd
}
