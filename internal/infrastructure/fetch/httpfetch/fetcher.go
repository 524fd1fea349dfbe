package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/d4d-ingest/internal/core/domain"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultMaxBytes  = 50 << 20
	defaultUserAgent = "d4d-ingest/1.0 (+https://github.com/kirillkom/d4d-ingest)"
	acceptHeader     = "text/html,application/xhtml+xml,application/pdf;q=0.9,text/plain;q=0.8,*/*;q=0.5"
)

type Options struct {
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
	// HTTPClient overrides the default client. Timeout is ignored when set.
	HTTPClient *http.Client
}

// Fetcher retrieves remote sources over HTTP(S).
type Fetcher struct {
	client    *http.Client
	maxBytes  int64
	userAgent string
}

func New(options Options) *Fetcher {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxBytes := options.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	userAgent := strings.TrimSpace(options.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	client := options.HTTPClient
	if client == nil {
		client = newHTTPClient(timeout)
	}
	return &Fetcher{
		client:    client,
		maxBytes:  maxBytes,
		userAgent: userAgent,
	}
}

// newHTTPClient returns a client with bounded dial and handshake timeouts.
// Keep-alives are off so no connection outlives the fetch that opened it.
func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		DisableKeepAlives:     true,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*domain.Resource, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, domain.WrapError(domain.ErrUnreadableSource, "fetch", fmt.Errorf("parse url %q: %w", rawURL, err))
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, domain.WrapError(domain.ErrUnreadableSource, "fetch", fmt.Errorf("%q is neither an existing local file nor an http(s) url", rawURL))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, domain.WrapError(domain.ErrUnreadableSource, "fetch", fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, wrapFetchError("fetch "+rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, wrapFetchError("fetch "+rawURL, newHTTPStatusError(rawURL, resp))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, wrapFetchError("read body "+rawURL, err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, domain.WrapError(domain.ErrUnreadableSource, "read body "+rawURL, fmt.Errorf("response exceeds %d bytes", f.maxBytes))
	}

	return &domain.Resource{
		URL:         rawURL,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
		Body:        body,
	}, nil
}

func newHTTPStatusError(rawURL string, resp *http.Response) *HTTPStatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &HTTPStatusError{
		URL:        rawURL,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(body)),
	}
}

// HTTPStatusError is a non-2xx response.
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "http status error"
	}
	if e.Body == "" {
		return fmt.Sprintf("http status: %s", e.Status)
	}
	return fmt.Sprintf("http status: %s: %s", e.Status, e.Body)
}

// StatusCodeOf returns the HTTP status carried by err, or 0.
func StatusCodeOf(err error) int {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}
