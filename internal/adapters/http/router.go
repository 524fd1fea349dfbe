package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/kirillkom/d4d-ingest/internal/config"
	"github.com/kirillkom/d4d-ingest/internal/core/domain"
	"github.com/kirillkom/d4d-ingest/internal/core/ports"
	"github.com/kirillkom/d4d-ingest/internal/observability/metrics"
)

const (
	serviceName     = "api"
	maxRequestBytes = 1 << 20
	maxListedRuns   = 500
)

type Router struct {
	cfg        config.Config
	normalizer ports.SourceNormalizer
	content    ports.ContentBuilder
	schema     ports.SchemaLoader
	runs       ports.RunLedger
	metrics    *metrics.HTTPServerMetrics
	logger     *slog.Logger
}

// NewRouter builds the API router. runs may be nil when the run ledger is disabled.
func NewRouter(
	cfg config.Config,
	normalizer ports.SourceNormalizer,
	content ports.ContentBuilder,
	schema ports.SchemaLoader,
	runs ports.RunLedger,
) *Router {
	return &Router{
		cfg:        cfg,
		normalizer: normalizer,
		content:    content,
		schema:     schema,
		runs:       runs,
		metrics:    metrics.NewHTTPServerMetrics(serviceName),
		logger:     slog.Default(),
	}
}

func (rt *Router) WithLogger(logger *slog.Logger) *Router {
	if logger != nil {
		rt.logger = logger
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/normalize", rt.normalize)
	mux.HandleFunc("/v1/content", rt.buildContent)
	mux.HandleFunc("/v1/schema", rt.loadSchema)
	mux.HandleFunc("/v1/runs", rt.listRuns)
	mux.Handle("/metrics", rt.metrics.Handler())

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, rt.cfg.APIBackpressureWait)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	handler = rt.metrics.Middleware(serviceName, handler)
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) normalize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Source string `json:"source"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Source) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "source is required"})
		return
	}

	doc, err := rt.normalizer.Normalize(r.Context(), req.Source)
	rt.metrics.RecordNormalize(serviceName, string(doc.Format), domain.KindOf(err), doc.Chars, doc.Truncated)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, domain.SourcedDocument{Source: req.Source, NormalizedDocument: doc})
}

func (rt *Router) buildContent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Sources []string `json:"sources"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	rt.metrics.RecordContentBuild(serviceName, len(req.Sources))
	content, err := rt.content.Build(r.Context(), req.Sources)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, content)
}

func (rt *Router) loadSchema(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	text, err := rt.schema.Load(r.Context(), r.URL.Query().Get("url"))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}

func (rt *Router) listRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if rt.runs == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run ledger is disabled"})
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = min(parsed, maxListedRuns)
	}

	runs, err := rt.runs.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func writeError(w http.ResponseWriter, err error) {
	status := mapErrorToHTTPStatus(err)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"kind":  domain.KindOf(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
