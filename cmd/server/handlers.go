package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brunobiangulo/schemagen"
	"github.com/brunobiangulo/schemagen/ingest"
)

type handler struct {
	engine schemagen.Engine
}

func newHandler(e schemagen.Engine) *handler {
	return &handler{engine: e}
}

func newMux(h *handler, gatherer prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /validate", h.handleValidate)
	mux.HandleFunc("POST /infer", h.handleInfer)
	mux.HandleFunc("POST /runs", h.handleCreateRun)
	mux.HandleFunc("GET /runs", h.handleListRuns)
	mux.HandleFunc("GET /runs/{id}", h.handleGetRun)
	mux.HandleFunc("GET /runs/{id}/report", h.handleRunReport)
	mux.HandleFunc("DELETE /runs/{id}", h.handleDeleteRun)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}

// POST /validate
// Accepts {"jsonld": "<text>"} or {"document": {...}}.
func (h *handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JSONLD   string          `json:"jsonld"`
		Document json.RawMessage `json:"document"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 10<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	raw := req.JSONLD
	if raw == "" && len(req.Document) > 0 {
		raw = string(req.Document)
	}
	if raw == "" {
		writeError(w, http.StatusBadRequest, "jsonld or document is required")
		return
	}

	writeJSON(w, http.StatusOK, h.engine.Validate(raw))
}

// POST /infer
func (h *handler) handleInfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rows []struct {
			URL        string `json:"url"`
			SchemaType string `json:"schema_type"`
		} `json:"rows"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.Rows) == 0 {
		writeError(w, http.StatusBadRequest, "rows is required")
		return
	}

	out := make([]schemagen.Inference, 0, len(req.Rows))
	for _, row := range req.Rows {
		if row.URL == "" {
			writeError(w, http.StatusBadRequest, "every row needs a url")
			return
		}
		out = append(out, h.engine.Infer(row.URL, row.SchemaType))
	}
	writeJSON(w, http.StatusOK, map[string]any{"inferences": out})
}

type runResponse struct {
	*schemagen.RunResult
	Error string `json:"error,omitempty"`
}

// POST /runs
// Accepts a multipart CSV/XLSX upload under "file", or JSON rows.
func (h *handler) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Minute)
	defer cancel()

	opts := runOptions(r.URL.Query())

	// Try multipart upload first
	if err := r.ParseMultipartForm(20 << 20); err == nil {
		file, header, err := r.FormFile("file")
		if err == nil {
			defer file.Close()

			// Sanitise filename to prevent path traversal.
			safeName := filepath.Base(header.Filename)

			tmpDir, err := os.MkdirTemp("", "schemagen-upload-")
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to process file")
				slog.Error("creating temp dir", "error", err)
				return
			}
			defer os.RemoveAll(tmpDir)

			tmpPath := filepath.Join(tmpDir, safeName)
			dst, err := os.Create(tmpPath)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to process file")
				slog.Error("creating temp file", "error", err)
				return
			}
			if _, err := io.Copy(dst, file); err != nil {
				dst.Close()
				writeError(w, http.StatusInternalServerError, "failed to save file")
				slog.Error("saving uploaded file", "error", err)
				return
			}
			dst.Close()

			res, err := h.engine.RunFile(ctx, tmpPath, opts...)
			h.writeRun(w, res, err)
			return
		}
	}

	var req struct {
		Source string       `json:"source"`
		Rows   []ingest.Row `json:"rows"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: expected multipart file or JSON with 'rows'")
		return
	}
	if req.Source != "" {
		opts = append(opts, schemagen.WithSource(req.Source))
	}

	res, err := h.engine.Run(ctx, req.Rows, opts...)
	h.writeRun(w, res, err)
}

// runOptions reads ?fetch=false and ?wiring=false.
func runOptions(q url.Values) []schemagen.RunOption {
	var opts []schemagen.RunOption
	if b, err := strconv.ParseBool(q.Get("fetch")); err == nil && !b {
		opts = append(opts, schemagen.WithoutFetch())
	}
	if b, err := strconv.ParseBool(q.Get("wiring")); err == nil && !b {
		opts = append(opts, schemagen.WithoutWiring())
	}
	return opts
}

func (h *handler) writeRun(w http.ResponseWriter, res *schemagen.RunResult, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, runResponse{RunResult: res})
	case errors.Is(err, schemagen.ErrNoRows), errors.Is(err, schemagen.ErrUnsupportedFormat):
		writeError(w, http.StatusBadRequest, err.Error())
	case res != nil:
		// The run completed but something about it went wrong.
		slog.Warn("run finished with error", "id", res.ID, "error", err)
		writeJSON(w, http.StatusOK, runResponse{RunResult: res, Error: err.Error()})
	default:
		writeError(w, http.StatusInternalServerError, "run failed")
		slog.Error("run error", "error", err)
	}
}

// GET /runs
func (h *handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 1000 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	runs, err := h.engine.ListRuns(r.Context(), limit)
	if err != nil {
		h.writeStoreError(w, "failed to list runs", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// GET /runs/{id}
func (h *handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	detail, err := h.engine.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, "failed to load run", err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// GET /runs/{id}/report
func (h *handler) handleRunReport(w http.ResponseWriter, r *http.Request) {
	detail, err := h.engine.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, "failed to load run", err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, detail.Run.Report)
}

// DELETE /runs/{id}
func (h *handler) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.engine.DeleteRun(r.Context(), id); err != nil {
		h.writeStoreError(w, "delete failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *handler) writeStoreError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, schemagen.ErrRunNotFound):
		writeError(w, http.StatusNotFound, "run not found")
	case errors.Is(err, schemagen.ErrStoreDisabled):
		writeError(w, http.StatusServiceUnavailable, "run history is disabled")
	default:
		writeError(w, http.StatusInternalServerError, msg)
		slog.Error(msg, "error", err)
	}
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
