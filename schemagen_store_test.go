//go:build cgo

package schemagen

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestRunPersisted(t *testing.T) {
	p := &scriptedProvider{
		replies: map[string]string{
			"https://acme.test/":             orgDoc,
			"https://acme.test/services/ac/": looseServiceDoc,
		},
		failing: map[string]bool{"https://acme.test/services/broken/": true},
	}
	cfg := testConfig()
	cfg.Store.Disabled = false
	cfg.Store.DBPath = filepath.Join(t.TempDir(), "runs.db")
	cfg.Run.GraphWiring = false
	e := newTestEngine(t, cfg, p)
	ctx := context.Background()

	res, err := e.Run(ctx, sampleRows(), WithSource("urls.csv"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	runs, err := e.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("listing runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != res.ID || runs[0].Status != "completed" {
		t.Fatalf("runs = %+v", runs)
	}

	detail, err := e.GetRun(ctx, res.ID)
	if err != nil {
		t.Fatalf("getting run: %v", err)
	}
	if detail.Run.Report != res.Report {
		t.Error("stored report differs from the run's report")
	}
	if detail.Run.Passed != res.Totals.Passed || detail.Run.Failed != res.Totals.Failed {
		t.Errorf("stored counts = %+v, totals %+v", detail.Run, res.Totals)
	}
	if len(detail.Results) != 3 {
		t.Fatalf("results = %d, want 3", len(detail.Results))
	}

	svc := detail.Results[1]
	var batch int
	for _, is := range svc.Issues {
		if is.Batch {
			batch++
			if is.Rule != 15 {
				t.Errorf("batch issue = %+v", is)
			}
		}
	}
	if batch != 1 {
		t.Errorf("batch issues stored = %d, want 1 (%+v)", batch, svc.Issues)
	}
	if len(svc.Fixes) != 1 {
		t.Errorf("stored fixes = %v", svc.Fixes)
	}
	if detail.Results[2].Error == "" {
		t.Error("expected the failed row's error to be stored")
	}

	if err := e.DeleteRun(ctx, res.ID); err != nil {
		t.Fatalf("deleting run: %v", err)
	}
	if _, err := e.GetRun(ctx, res.ID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun after delete err = %v, want ErrRunNotFound", err)
	}
	if err := e.DeleteRun(ctx, res.ID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("DeleteRun twice err = %v, want ErrRunNotFound", err)
	}
}

func TestRunFile(t *testing.T) {
	p := &scriptedProvider{replies: map[string]string{"https://acme.test/": orgDoc}}
	cfg := testConfig()
	e := newTestEngine(t, cfg, p)

	path := filepath.Join(t.TempDir(), "urls.csv")
	writeFile(t, path, "\ufeffURL,SchemaType\nhttps://acme.test/,\n")

	res, err := e.RunFile(context.Background(), path)
	if err != nil {
		t.Fatalf("run file: %v", err)
	}
	if res.Source != "urls.csv" || len(res.Entries) != 1 {
		t.Errorf("result = %+v", res)
	}

	if _, err := e.RunFile(context.Background(), filepath.Join(t.TempDir(), "urls.pdf")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}
