package httpfetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/d4d-ingest/internal/core/domain"
)

func TestFetchReturnsBodyAndContentType(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<h1>ok</h1>"))
	}))
	defer srv.Close()

	res, err := New(Options{UserAgent: "d4d-test"}).Fetch(context.Background(), srv.URL+"/card")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(res.Body) != "<h1>ok</h1>" || res.ContentType != "text/html; charset=utf-8" || res.StatusCode != http.StatusOK {
		t.Fatalf("unexpected resource: %+v", res)
	}
	if gotUA != "d4d-test" {
		t.Fatalf("expected configured user agent, got %q", gotUA)
	}
}

func TestFetchNotFoundIsUnreadableAndPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no such paper", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(Options{}).Fetch(context.Background(), srv.URL+"/paper.pdf")
	if !domain.IsKind(err, domain.ErrUnreadableSource) {
		t.Fatalf("expected ErrUnreadableSource, got %v", err)
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("404 must not be temporary: %v", err)
	}
	if code := StatusCodeOf(err); code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", code)
	}
	if !strings.Contains(err.Error(), "no such paper") {
		t.Fatalf("expected response snippet in error, got %v", err)
	}
}

func TestFetchServiceUnavailableIsTemporary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(Options{}).Fetch(context.Background(), srv.URL)
	if !domain.IsKind(err, domain.ErrUnreadableSource) || !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary unreadable source, got %v", err)
	}
}

func TestFetchRejectsNonHTTPReferences(t *testing.T) {
	for _, ref := range []string{"missing/notes.txt", "ftp://example.org/a.pdf", "file:///etc/hosts"} {
		_, err := New(Options{}).Fetch(context.Background(), ref)
		if !domain.IsKind(err, domain.ErrUnreadableSource) {
			t.Fatalf("Fetch(%q): expected ErrUnreadableSource, got %v", ref, err)
		}
	}
}

func TestFetchEnforcesMaxBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	_, err := New(Options{MaxBytes: 16}).Fetch(context.Background(), srv.URL)
	if !domain.IsKind(err, domain.ErrUnreadableSource) {
		t.Fatalf("expected ErrUnreadableSource for oversized body, got %v", err)
	}
}

func TestFetchHonoursCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Options{}).Fetch(ctx, srv.URL)
	if !domain.IsKind(err, domain.ErrUnreadableSource) || domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected permanent unreadable source on cancel, got %v", err)
	}
}
