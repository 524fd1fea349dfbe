package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/d4d-ingest/internal/config"
	"github.com/kirillkom/d4d-ingest/internal/core/domain"
)

type normalizerFake struct {
	docs map[string]domain.NormalizedDocument
	err  error
}

func (f normalizerFake) Normalize(_ context.Context, ref string) (domain.NormalizedDocument, error) {
	if f.err != nil {
		return domain.NormalizedDocument{}, f.err
	}
	return f.docs[ref], nil
}

type contentFake struct {
	got []string
	err error
}

func (f *contentFake) Build(_ context.Context, refs []string) (*domain.Content, error) {
	f.got = refs
	if f.err != nil {
		return nil, f.err
	}
	docs := make([]domain.SourcedDocument, 0, len(refs))
	texts := make([]string, 0, len(refs))
	for _, ref := range refs {
		docs = append(docs, domain.SourcedDocument{Source: ref, NormalizedDocument: domain.NormalizedDocument{Text: "text of " + ref}})
		texts = append(texts, "text of "+ref)
	}
	return &domain.Content{Text: strings.Join(texts, "\n\n"), Documents: docs}, nil
}

type schemaFake struct {
	gotURL string
	text   string
	err    error
}

func (f *schemaFake) Load(_ context.Context, url string) (string, error) {
	f.gotURL = url
	return f.text, f.err
}

type ledgerFake struct {
	runs     []domain.NormalizeRun
	gotLimit int
}

func (f *ledgerFake) Record(context.Context, domain.NormalizeRun) error { return nil }

func (f *ledgerFake) ListRecent(_ context.Context, limit int) ([]domain.NormalizeRun, error) {
	f.gotLimit = limit
	return f.runs, nil
}

func newTestHandler(cfg config.Config) http.Handler {
	return newRouter(cfg, normalizerFake{}, &contentFake{}, &schemaFake{}, nil).Handler()
}

func newRouter(cfg config.Config, normalizer normalizerFake, content *contentFake, schema *schemaFake, ledger *ledgerFake) *Router {
	rt := NewRouter(cfg, normalizer, content, schema, nil)
	if ledger != nil {
		rt.runs = ledger
	}
	return rt.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func postJSON(t *testing.T, handler http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestHealthzEndpoint(t *testing.T) {
	handler := newTestHandler(config.Config{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected generated request id header")
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	handler := newTestHandler(config.Config{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-42")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if got := res.Header().Get(requestIDHeader); got != "req-42" {
		t.Fatalf("expected request id req-42, got %q", got)
	}
}

func TestNormalizeReturnsDocumentWithSource(t *testing.T) {
	handler := newRouter(config.Config{}, normalizerFake{docs: map[string]domain.NormalizedDocument{
		"notes.txt": {Text: "hello", Format: domain.FormatPlainText, Chars: 5},
	}}, &contentFake{}, &schemaFake{}, nil).Handler()

	res := postJSON(t, handler, "/v1/normalize", map[string]string{"source": "notes.txt"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var got struct {
		Source    string `json:"source"`
		Format    string `json:"format"`
		Text      string `json:"text"`
		Chars     int    `json:"chars"`
		Truncated bool   `json:"truncated"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Source != "notes.txt" || got.Format != "plain_text" || got.Text != "hello" || got.Chars != 5 || got.Truncated {
		t.Fatalf("unexpected response: %+v", got)
	}
}

func TestNormalizeMapsErrorKindsToStatus(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"unsupported", domain.WrapError(domain.ErrUnsupportedFormat, "classify", errors.New(".docx")), http.StatusUnsupportedMediaType, "unsupported_format"},
		{"malformed", domain.WrapError(domain.ErrMalformedData, "parse json", errors.New("offset 3")), http.StatusUnprocessableEntity, "malformed_data"},
		{"unreadable", domain.WrapError(domain.ErrUnreadableSource, "fetch", errors.New("404")), http.StatusBadGateway, "unreadable_source"},
		{"temporary", domain.WrapTemporary(domain.ErrUnreadableSource, "fetch", errors.New("503")), http.StatusServiceUnavailable, "unreadable_source"},
		{"internal", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := newRouter(config.Config{}, normalizerFake{err: tc.err}, &contentFake{}, &schemaFake{}, nil).Handler()
			res := postJSON(t, handler, "/v1/normalize", map[string]string{"source": "x"})
			if res.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, res.Code)
			}
			var body map[string]string
			if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body["kind"] != tc.kind {
				t.Fatalf("expected kind %q, got %q", tc.kind, body["kind"])
			}
		})
	}
}

func TestNormalizeRejectsBadRequests(t *testing.T) {
	handler := newTestHandler(config.Config{})

	res := postJSON(t, handler, "/v1/normalize", map[string]string{"source": "  "})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("blank source expected 400, got %d", res.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/normalize", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid json expected 400, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/normalize", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET expected 405, got %d", rec.Code)
	}
}

func TestContentKeepsSourceOrder(t *testing.T) {
	content := &contentFake{}
	handler := newRouter(config.Config{}, normalizerFake{}, content, &schemaFake{}, nil).Handler()

	res := postJSON(t, handler, "/v1/content", map[string][]string{"sources": {"b.txt", "a.txt"}})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var got domain.Content
	if err := json.Unmarshal(res.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Text != "text of b.txt\n\ntext of a.txt" {
		t.Fatalf("unexpected text %q", got.Text)
	}
	if len(got.Documents) != 2 || got.Documents[0].Source != "b.txt" {
		t.Fatalf("unexpected documents: %+v", got.Documents)
	}
}

func TestContentInvalidInputMapsTo400(t *testing.T) {
	content := &contentFake{err: domain.WrapError(domain.ErrInvalidInput, "build content", errors.New("empty"))}
	handler := newRouter(config.Config{}, normalizerFake{}, content, &schemaFake{}, nil).Handler()

	res := postJSON(t, handler, "/v1/content", map[string][]string{"sources": {}})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestSchemaReturnsPlainText(t *testing.T) {
	schema := &schemaFake{text: "id: https://w3id.org/bridge2ai/data-sheets-schema\n"}
	handler := newRouter(config.Config{}, normalizerFake{}, &contentFake{}, schema, nil).Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/schema?url=https://example.org/s.yaml", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.HasPrefix(res.Header().Get("Content-Type"), "text/plain") {
		t.Fatalf("unexpected content type %q", res.Header().Get("Content-Type"))
	}
	if res.Body.String() != schema.text {
		t.Fatalf("unexpected body %q", res.Body.String())
	}
	if schema.gotURL != "https://example.org/s.yaml" {
		t.Fatalf("expected url override to reach loader, got %q", schema.gotURL)
	}
}

func TestRunsDisabledWithoutLedger(t *testing.T) {
	handler := newTestHandler(config.Config{})
	req := httptest.NewRequest(http.MethodGet, "/v1/runs", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestRunsListsLedgerEntries(t *testing.T) {
	ledger := &ledgerFake{runs: []domain.NormalizeRun{{
		ID:        "run-1",
		Source:    "a.pdf",
		Format:    domain.FormatPDF,
		Status:    domain.RunSucceeded,
		Duration:  time.Second,
		CreatedAt: time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC),
	}}}
	handler := newRouter(config.Config{}, normalizerFake{}, &contentFake{}, &schemaFake{}, ledger).Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/runs?limit=10000", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if ledger.gotLimit != maxListedRuns {
		t.Fatalf("expected limit clamped to %d, got %d", maxListedRuns, ledger.gotLimit)
	}
	var got struct {
		Runs []domain.NormalizeRun `json:"runs"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got.Runs) != 1 || got.Runs[0].ID != "run-1" {
		t.Fatalf("unexpected runs: %+v", got.Runs)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/runs?limit=zero", nil)
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("bad limit expected 400, got %d", res.Code)
	}
}

func TestMetricsEndpointExposesNormalizeCounters(t *testing.T) {
	handler := newRouter(config.Config{}, normalizerFake{docs: map[string]domain.NormalizedDocument{
		"a.json": {Text: "{}", Format: domain.FormatJSON, Chars: 2},
	}}, &contentFake{}, &schemaFake{}, nil).Handler()

	if res := postJSON(t, handler, "/v1/normalize", map[string]string{"source": "a.json"}); res.Code != http.StatusOK {
		t.Fatalf("normalize expected 200, got %d", res.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	body := res.Body.String()
	if !strings.Contains(body, `d4d_normalize_requests_total{format="json",kind="ok",service="api"} 1`) {
		t.Fatalf("expected normalize counter in metrics output:\n%s", body)
	}
	if !strings.Contains(body, "d4d_http_requests_total") {
		t.Fatalf("expected http request counter in metrics output")
	}
}
