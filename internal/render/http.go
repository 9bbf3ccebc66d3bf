package render

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/semaphore"
)

// DefaultMaxBodySize limits the response body read by the HTTP engine.
const DefaultMaxBodySize = 5 * 1024 * 1024

// HTTPEngine fetches pages without executing JavaScript.
// It suits storefronts that render their listings server-side, and it is
// the engine used by tests against httptest servers.
type HTTPEngine struct {
	client *http.Client
	logger *slog.Logger
}

// NewHTTPEngine creates an HTTP engine.
func NewHTTPEngine(opts Options) *HTTPEngine {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPEngine{client: client, logger: logger}
}

// NewSession returns a session allowing handles concurrent requests.
func (e *HTTPEngine) NewSession(_ context.Context, profile Profile, handles int) (Session, error) {
	if handles <= 0 {
		handles = 1
	}
	return &httpSession{
		client:  e.client,
		profile: profile,
		sem:     semaphore.NewWeighted(int64(handles)),
		logger:  e.logger,
	}, nil
}

// Close is a no-op; idle connections are closed by the client's transport.
func (e *HTTPEngine) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

type httpSession struct {
	client  *http.Client
	profile Profile
	sem     *semaphore.Weighted
	logger  *slog.Logger
}

// Render performs a GET and returns the body if it is HTML.
// The wait condition is ignored.
func (s *httpSession) Render(ctx context.Context, req Request) (string, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer s.sem.Release(1)

	reqCtx, cancel := withTimeout(ctx, req)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodGet, req.URL, nil)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", req.URL, err)
	}
	for k, v := range s.profile.Headers {
		httpReq.Header.Set(k, v)
	}
	if s.profile.UserAgent != "" {
		httpReq.Header.Set("User-Agent", s.profile.UserAgent)
	}
	if s.profile.Locale != "" && httpReq.Header.Get("Accept-Language") == "" {
		httpReq.Header.Set("Accept-Language", s.profile.Locale)
	}

	start := time.Now()
	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", classifyError(ctx, req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("%w: %s returned %d", ErrHTTPStatus, req.URL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, DefaultMaxBodySize))
	if err != nil {
		return "", classifyError(ctx, req.URL, err)
	}
	if !isHTML(resp.Header.Get("Content-Type"), body) {
		return "", fmt.Errorf("%w: %s", ErrNotHTML, req.URL)
	}

	s.logger.Debug("http render complete",
		"url", req.URL,
		"status", resp.StatusCode,
		"latency_ms", time.Since(start).Milliseconds(),
		"html_bytes", len(body),
	)
	return string(body), nil
}

// Close is a no-op for HTTP sessions.
func (s *httpSession) Close() error {
	return nil
}

// isHTML accepts a body declared as HTML by the server or detected as HTML
// from its content.
func isHTML(contentType string, body []byte) bool {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if mediaType == "text/html" || mediaType == "application/xhtml+xml" {
			return true
		}
	}
	for mt := mimetype.Detect(body); mt != nil; mt = mt.Parent() {
		if mt.Is("text/html") || mt.Is("application/xhtml+xml") {
			return true
		}
	}
	return false
}
