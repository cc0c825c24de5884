// Package store persists runs and their per-row results in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a run id does not exist.
var ErrNotFound = errors.New("store: not found")

// Run statuses.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Run represents a row in the runs table.
type Run struct {
	ID            string `json:"id"`
	Source        string `json:"source"`
	Domain        string `json:"domain"`
	Model         string `json:"model"`
	Status        string `json:"status"`
	Total         int    `json:"total"`
	Passed        int    `json:"passed"`
	Warned        int    `json:"warned"`
	Failed        int    `json:"failed"`
	WiringMessage string `json:"wiring_message,omitempty"`
	Report        string `json:"-"`
	CreatedAt     string `json:"created_at"`
	FinishedAt    string `json:"finished_at,omitempty"`
}

// Issue is one validation or batch finding of a result.
type Issue struct {
	Rule     int    `json:"rule"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	// Batch marks findings of the batch audit rather than of the
	// document's own validation.
	Batch bool `json:"batch,omitempty"`
}

// Result represents a row in the results table with its issues and fixes.
type Result struct {
	ID         int64    `json:"id"`
	RunID      string   `json:"run_id"`
	Position   int      `json:"position"`
	URL        string   `json:"url"`
	SchemaType string   `json:"schema_type"`
	Confidence string   `json:"confidence"`
	Status     string   `json:"status"`
	JSONLD     string   `json:"jsonld"`
	Error      string   `json:"error,omitempty"`
	Issues     []Issue  `json:"issues"`
	Fixes      []string `json:"fixes"`
}

// Summary is what FinishRun records.
type Summary struct {
	Status        string
	Total         int
	Passed        int
	Warned        int
	Failed        int
	WiringMessage string
	Report        string
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and brings its schema up
// to date.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// --- Run operations ---

// CreateRun inserts a run in the running state.
func (s *Store) CreateRun(ctx context.Context, r Run) error {
	if r.Status == "" {
		r.Status = RunRunning
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, source, domain, model, status, total)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ID, r.Source, r.Domain, r.Model, r.Status, r.Total)
	return err
}

// FinishRun records the final counts of a run.
func (s *Store) FinishRun(ctx context.Context, id string, sum Summary) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, total = ?, passed = ?, warned = ?, failed = ?,
			wiring_message = ?, report = ?, finished_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, sum.Status, sum.Total, sum.Passed, sum.Warned, sum.Failed, sum.WiringMessage, sum.Report, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}

const runColumns = `id, source, domain, model, status, total, passed, warned, failed,
	wiring_message, report, created_at, finished_at`

func scanRun(sc interface{ Scan(...any) error }) (Run, error) {
	var r Run
	var finished sql.NullString
	err := sc.Scan(&r.ID, &r.Source, &r.Domain, &r.Model, &r.Status,
		&r.Total, &r.Passed, &r.Warned, &r.Failed,
		&r.WiringMessage, &r.Report, &r.CreatedAt, &finished)
	r.FinishedAt = finished.String
	return r, err
}

// GetRun returns one run including its report.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRuns returns the most recent runs first. A limit of zero or less
// returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and, through cascades, its results.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}

// --- Result operations ---

// SaveResult stores a result with its issues and fixes. Saving the same
// position of a run again replaces the earlier result.
func (s *Store) SaveResult(ctx context.Context, runID string, r Result) (int64, error) {
	var id int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM results WHERE run_id = ? AND position = ?", runID, r.Position); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO results (run_id, position, url, schema_type, confidence, status, jsonld, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, runID, r.Position, r.URL, r.SchemaType, r.Confidence, r.Status, r.JSONLD, r.Error)
		if err != nil {
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}

		for _, is := range r.Issues {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO issues (result_id, rule, severity, message, batch) VALUES (?, ?, ?, ?, ?)",
				id, is.Rule, is.Severity, is.Message, is.Batch); err != nil {
				return err
			}
		}
		for _, f := range r.Fixes {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO fixes (result_id, message) VALUES (?, ?)", id, f); err != nil {
				return err
			}
		}
		return nil
	})
	return id, err
}

// GetRunResults returns the results of a run in input order.
func (s *Store) GetRunResults(ctx context.Context, runID string) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, position, url, schema_type, confidence, status, jsonld, error
		FROM results WHERE run_id = ? ORDER BY position
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Result
	byID := make(map[int64]int)
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.RunID, &r.Position, &r.URL, &r.SchemaType,
			&r.Confidence, &r.Status, &r.JSONLD, &r.Error); err != nil {
			return nil, err
		}
		r.Issues = []Issue{}
		r.Fixes = []string{}
		byID[r.ID] = len(results)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return results, nil
	}

	if err := s.attachIssues(ctx, runID, results, byID); err != nil {
		return nil, err
	}
	if err := s.attachFixes(ctx, runID, results, byID); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Store) attachIssues(ctx context.Context, runID string, results []Result, byID map[int64]int) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.result_id, i.rule, i.severity, i.message, i.batch
		FROM issues i JOIN results r ON r.id = i.result_id
		WHERE r.run_id = ? ORDER BY i.id
	`, runID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var resultID int64
		var is Issue
		if err := rows.Scan(&resultID, &is.Rule, &is.Severity, &is.Message, &is.Batch); err != nil {
			return err
		}
		i := byID[resultID]
		results[i].Issues = append(results[i].Issues, is)
	}
	return rows.Err()
}

func (s *Store) attachFixes(ctx context.Context, runID string, results []Result, byID map[int64]int) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.result_id, f.message
		FROM fixes f JOIN results r ON r.id = f.result_id
		WHERE r.run_id = ? ORDER BY f.id
	`, runID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var resultID int64
		var msg string
		if err := rows.Scan(&resultID, &msg); err != nil {
			return err
		}
		i := byID[resultID]
		results[i].Fixes = append(results[i].Fixes, msg)
	}
	return rows.Err()
}

// DBStats holds row counts per table.
type DBStats struct {
	Runs    int `json:"runs"`
	Results int `json:"results"`
	Issues  int `json:"issues"`
	Fixes   int `json:"fixes"`
}

func (s *Store) DBStats(ctx context.Context) (*DBStats, error) {
	stats := &DBStats{}
	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM runs", &stats.Runs},
		{"SELECT COUNT(*) FROM results", &stats.Results},
		{"SELECT COUNT(*) FROM issues", &stats.Issues},
		{"SELECT COUNT(*) FROM fixes", &stats.Fixes},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("counting %s: %w", q.query, err)
		}
	}
	return stats, nil
}

// --- helpers ---

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
