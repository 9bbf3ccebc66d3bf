package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// WaitCondition is the page state a render waits for before reading the DOM.
type WaitCondition string

const (
	// WaitLoad waits for the load event.
	WaitLoad WaitCondition = "load"
	// WaitDOMContentLoaded waits for the DOMContentLoaded event.
	WaitDOMContentLoaded WaitCondition = "domcontentloaded"
	// WaitNetworkIdle waits until the page stops issuing network requests.
	WaitNetworkIdle WaitCondition = "networkidle"
)

// ParseWaitCondition parses a wait condition name case-insensitively.
func ParseWaitCondition(s string) (WaitCondition, error) {
	switch w := WaitCondition(strings.ToLower(strings.TrimSpace(s))); w {
	case WaitLoad, WaitDOMContentLoaded, WaitNetworkIdle:
		return w, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownWaitCondition, s)
	}
}

// Request describes one render.
type Request struct {
	// URL is the absolute URL to render.
	URL string

	// Timeout bounds the render. Zero means no timeout beyond the context.
	Timeout time.Duration

	// Wait is the page state to wait for.
	Wait WaitCondition
}

// Viewport is the browser window size.
type Viewport struct {
	Width  int
	Height int
}

// Profile is the browser identity of a session.
type Profile struct {
	UserAgent string
	Locale    string
	Headers   map[string]string
	Viewport  Viewport
}

// Session renders pages with one site's profile.
// Render is safe for concurrent use; concurrency is bounded by the
// session's handle pool.
type Session interface {
	Render(ctx context.Context, req Request) (string, error)
	Close() error
}

// Engine opens sessions. It is started once per run.
type Engine interface {
	// NewSession opens a session with the given profile and number of
	// render handles. Errors wrap ErrSessionFailed.
	NewSession(ctx context.Context, profile Profile, handles int) (Session, error)

	// Close shuts the engine down.
	Close() error
}

// Options configures NewEngine.
type Options struct {
	// Engine is chromedp, playwright or http.
	Engine string

	// Browser is the playwright browser type: chromium, firefox or webkit.
	Browser string

	// Headless runs the browser without a window.
	Headless bool

	// ScrollSteps is the number of scroll passes after the wait condition,
	// used to trigger lazily loaded product grids.
	ScrollSteps int

	// ScrollPause is the pause after each scroll pass.
	ScrollPause time.Duration

	// HTTPClient is used by the http engine. Defaults to a client without
	// a global timeout; each request is bounded by Request.Timeout.
	HTTPClient *http.Client

	// Proxy routes all engine traffic through a proxy when set.
	// See ParseProxy.
	Proxy *url.URL

	// Logger receives engine diagnostics.
	Logger *slog.Logger
}

// defaultScrollPause is the pause between scroll passes.
const defaultScrollPause = 2 * time.Second

// NewEngine starts the engine selected by opts.Engine.
func NewEngine(ctx context.Context, opts Options) (Engine, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ScrollPause <= 0 {
		opts.ScrollPause = defaultScrollPause
	}
	if opts.Proxy != nil {
		if err := CheckProxy(ctx, opts.Proxy); err != nil {
			return nil, err
		}
		if opts.HTTPClient == nil {
			client, err := NewProxyClient(opts.Proxy)
			if err != nil {
				return nil, err
			}
			opts.HTTPClient = client
		}
	}

	switch opts.Engine {
	case "chromedp", "":
		return NewChromedpEngine(ctx, opts)
	case "playwright":
		return NewPlaywrightEngine(opts)
	case "http":
		return NewHTTPEngine(opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, opts.Engine)
	}
}

// withTimeout derives the render context of req.
func withTimeout(ctx context.Context, req Request) (context.Context, context.CancelFunc) {
	if req.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, req.Timeout)
}

// classifyError maps a deadline hit by the render context to
// ErrRenderTimeout. Cancellation of the parent context is returned as-is.
func classifyError(parent context.Context, url string, err error) error {
	if err == nil {
		return nil
	}
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrRenderTimeout, url)
	}
	return fmt.Errorf("render %s: %w", url, err)
}

// sleepContext pauses for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
