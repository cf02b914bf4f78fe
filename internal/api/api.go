package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/intake/internal/intake"
	"github.com/kalambet/intake/internal/metrics"
)

const maxRequestBodySize = 1 << 20 // 1MB

// ExportMode selects how GET /api/export delivers the CSV.
type ExportMode string

const (
	// ExportReport persists the CSV and answers with its filename.
	ExportReport ExportMode = "report"
	// ExportDownload persists the CSV and streams it as an attachment.
	ExportDownload ExportMode = "download"
)

// Deps holds dependencies shared by both HTTP entry points.
type Deps struct {
	Service *intake.Service
	Metrics *metrics.Metrics // optional; /metrics is not mounted when nil
	Logger  *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// NewAPIHandler returns the API-only handler. Unknown routes answer with a
// JSON 404 and exports default to report mode.
func NewAPIHandler(deps Deps) http.Handler {
	r := newRouter(deps)
	mountAPI(r, deps, ExportReport)
	r.NotFound(handleNotFound)
	r.MethodNotAllowed(handleNotFound)
	return r
}

// NewSiteHandler returns the combined handler: the same API plus static
// files from staticDir for every other path. Files under dataDir are never
// served, even when it sits inside staticDir. Exports default to download.
func NewSiteHandler(deps Deps, staticDir, dataDir string) (http.Handler, error) {
	static, err := newStaticHandler(staticDir, deps.logger(), dataDir)
	if err != nil {
		return nil, err
	}
	r := newRouter(deps)
	mountAPI(r, deps, ExportDownload)
	r.NotFound(static.ServeHTTP)
	r.MethodNotAllowed(static.ServeHTTP)
	return r, nil
}

func newRouter(deps Deps) chi.Router {
	logger := deps.logger()
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recovery(logger))
	r.Use(CORS)
	r.Use(Latency(deps.Metrics))
	return r
}

func mountAPI(r chi.Router, deps Deps, mode ExportMode) {
	r.Get("/health", handleHealth)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Post("/api/submit", handleSubmit(deps))
	r.Get("/api/data", handleData(deps))
	r.Get("/api/stats", handleStats(deps))
	r.Get("/api/export", handleExport(deps, mode))
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	httpError(w, http.StatusNotFound, "not found")
}

type submitResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id"`
}

func handleSubmit(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		in, err := intake.DecodeInput(r.Body)
		if err != nil {
			deps.Metrics.IncSubmission("malformed")
			deps.logger().DebugContext(r.Context(), "rejecting submission", "error", err)
			httpError(w, http.StatusBadRequest, intake.ErrMalformed.Error())
			return
		}

		rec, err := deps.Service.Submit(r.Context(), in, originAddress(r))
		switch {
		case errors.Is(err, intake.ErrIncomplete):
			deps.Metrics.IncSubmission("incomplete")
			httpError(w, http.StatusBadRequest, intake.ErrIncomplete.Error())
			return
		case err != nil:
			deps.Metrics.IncSubmission("error")
			deps.logger().ErrorContext(r.Context(), "submit failed", "error", err)
			httpError(w, http.StatusInternalServerError, "submit failed")
			return
		}

		deps.Metrics.IncSubmission("ok")
		writeJSON(w, http.StatusOK, submitResponse{Success: true, Message: "submitted", ID: rec.ID})
	}
}

func handleData(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := deps.Service.List(r.Context())
		if err != nil {
			deps.logger().ErrorContext(r.Context(), "listing records", "error", err)
			httpError(w, http.StatusInternalServerError, "failed to fetch data")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": records})
	}
}

func handleStats(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sum, err := deps.Service.Stats(r.Context())
		if err != nil {
			deps.logger().ErrorContext(r.Context(), "computing stats", "error", err)
			httpError(w, http.StatusInternalServerError, "failed to fetch stats")
			return
		}
		writeJSON(w, http.StatusOK, sum)
	}
}

type exportResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Filename string `json:"filename"`
}

func handleExport(deps Deps, defaultMode ExportMode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mode := defaultMode
		switch ExportMode(r.URL.Query().Get("mode")) {
		case ExportReport:
			mode = ExportReport
		case ExportDownload:
			mode = ExportDownload
		}

		a, err := deps.Service.Export(r.Context())
		if err != nil {
			deps.logger().ErrorContext(r.Context(), "export failed", "error", err)
			httpError(w, http.StatusInternalServerError, "export failed")
			return
		}
		deps.Metrics.IncExport(string(mode))

		if mode == ExportReport {
			writeJSON(w, http.StatusOK, exportResponse{Success: true, Message: "exported", Filename: a.Filename})
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", contentDisposition(a.Filename))
		w.WriteHeader(http.StatusOK)
		w.Write(a.Data)
	}
}

func contentDisposition(filename string) string {
	return `attachment; filename="` + filename + `"; filename*=UTF-8''` + url.PathEscape(filename)
}

// originAddress returns the client host, falling back to the first
// X-Forwarded-For entry. Empty means unknown.
func originAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host != "" {
		return host
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	return ""
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
