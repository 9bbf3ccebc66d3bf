package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightEngine renders pages with playwright-go.
// One browser serves the run; each session is a separate BrowserContext
// so cookies and storage never leak between sites.
type PlaywrightEngine struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	opts    Options
	logger  *slog.Logger
}

// NewPlaywrightEngine starts the playwright driver and launches the browser
// named by opts.Browser.
func NewPlaywrightEngine(opts Options) (*PlaywrightEngine, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("%w: playwright: %w", ErrEngineUnavailable, err)
	}

	launch := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	}
	if opts.Proxy != nil {
		launch.Proxy = &playwright.Proxy{Server: browserProxy(opts.Proxy)}
	}

	var browser playwright.Browser
	switch opts.Browser {
	case "firefox":
		browser, err = pw.Firefox.Launch(launch)
	case "webkit":
		browser, err = pw.WebKit.Launch(launch)
	case "chromium", "":
		browser, err = pw.Chromium.Launch(launch)
	default:
		err = fmt.Errorf("unsupported browser type: %s", opts.Browser)
	}
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("%w: launch %s: %w", ErrEngineUnavailable, opts.Browser, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("playwright browser started", "browser", opts.Browser, "headless", opts.Headless)

	return &PlaywrightEngine{pw: pw, browser: browser, opts: opts, logger: logger}, nil
}

// NewSession creates a browser context with profile and opens handles pages.
func (e *PlaywrightEngine) NewSession(_ context.Context, profile Profile, handles int) (Session, error) {
	if handles <= 0 {
		handles = 1
	}

	contextOpts := playwright.BrowserNewContextOptions{
		ExtraHttpHeaders: profile.Headers,
	}
	if profile.UserAgent != "" {
		contextOpts.UserAgent = playwright.String(profile.UserAgent)
	}
	if profile.Locale != "" {
		contextOpts.Locale = playwright.String(profile.Locale)
	}
	if profile.Viewport.Width > 0 && profile.Viewport.Height > 0 {
		contextOpts.Viewport = &playwright.Size{
			Width:  profile.Viewport.Width,
			Height: profile.Viewport.Height,
		}
	}

	bctx, err := e.browser.NewContext(contextOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: new context: %w", ErrSessionFailed, err)
	}

	pages := make([]playwright.Page, 0, handles)
	for range handles {
		page, err := bctx.NewPage()
		if err != nil {
			_ = bctx.Close()
			return nil, fmt.Errorf("%w: new page: %w", ErrSessionFailed, err)
		}
		pages = append(pages, page)
	}

	pool := NewPool(pages, func(p playwright.Page) error {
		return p.Close()
	})
	return &playwrightSession{bctx: bctx, pool: pool, opts: e.opts, logger: e.logger}, nil
}

// Close closes the browser and stops the driver.
func (e *PlaywrightEngine) Close() error {
	return errors.Join(e.browser.Close(), e.pw.Stop())
}

type playwrightSession struct {
	bctx   playwright.BrowserContext
	pool   *Pool[playwright.Page]
	opts   Options
	logger *slog.Logger
}

// Render loads req.URL in a free page and returns its content.
func (s *playwrightSession) Render(ctx context.Context, req Request) (string, error) {
	page, err := s.pool.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer s.pool.Release(page)

	gotoOpts := playwright.PageGotoOptions{
		WaitUntil: playwrightWaitState(req.Wait),
	}
	if req.Timeout > 0 {
		gotoOpts.Timeout = playwright.Float(float64(req.Timeout.Milliseconds()))
	}

	start := time.Now()
	if _, err := page.Goto(req.URL, gotoOpts); err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return "", fmt.Errorf("%w: %s", ErrRenderTimeout, req.URL)
		}
		return "", classifyError(ctx, req.URL, err)
	}

	for range s.opts.ScrollSteps {
		if err := page.Mouse().Wheel(0, 3000); err != nil {
			return "", classifyError(ctx, req.URL, err)
		}
		if err := sleepContext(ctx, s.opts.ScrollPause); err != nil {
			return "", err
		}
	}

	html, err := page.Content()
	if err != nil {
		return "", classifyError(ctx, req.URL, err)
	}
	s.logger.Debug("playwright render complete",
		"url", req.URL,
		"latency_ms", time.Since(start).Milliseconds(),
		"html_bytes", len(html),
	)
	return html, nil
}

// Close closes the pages and the browser context.
func (s *playwrightSession) Close() error {
	return errors.Join(s.pool.Close(), s.bctx.Close())
}

func playwrightWaitState(wait WaitCondition) *playwright.WaitUntilState {
	switch wait {
	case WaitLoad:
		return playwright.WaitUntilStateLoad
	case WaitDOMContentLoaded:
		return playwright.WaitUntilStateDomcontentloaded
	default:
		return playwright.WaitUntilStateNetworkidle
	}
}
