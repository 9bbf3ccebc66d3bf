package render

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// networkIdlePoll and networkIdleQuiet tune the network-idle wait:
// the page is idle once its resource count has not changed for
// networkIdleQuiet.
const (
	networkIdlePoll  = 250 * time.Millisecond
	networkIdleQuiet = 500 * time.Millisecond
)

// ChromedpEngine renders pages in headless Chrome.
// One browser process serves the whole run; each session gets its own set
// of tabs configured with the session profile.
type ChromedpEngine struct {
	allocCtx      context.Context
	cancelAlloc   context.CancelFunc
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	opts          Options
	logger        *slog.Logger
}

// NewChromedpEngine starts Chrome. The browser lives until Close, independent
// of ctx cancellation after startup.
func NewChromedpEngine(ctx context.Context, opts Options) (*ChromedpEngine, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if opts.Proxy != nil {
		allocOpts = append(allocOpts, chromedp.ProxyServer(browserProxy(opts.Proxy)))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// The first Run on the browser context launches the process.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("%w: chromedp: %w", ErrEngineUnavailable, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("chromedp browser started", "headless", opts.Headless)

	return &ChromedpEngine{
		allocCtx:      allocCtx,
		cancelAlloc:   cancelAlloc,
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
		opts:          opts,
		logger:        logger,
	}, nil
}

// chromedpTab is one reusable browser tab.
type chromedpTab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSession opens handles tabs configured with profile.
func (e *ChromedpEngine) NewSession(ctx context.Context, profile Profile, handles int) (Session, error) {
	if handles <= 0 {
		handles = 1
	}

	setup := profileActions(profile)
	tabs := make([]*chromedpTab, 0, handles)
	closeTabs := func() {
		for _, tab := range tabs {
			tab.cancel()
		}
	}

	for range handles {
		if err := ctx.Err(); err != nil {
			closeTabs()
			return nil, fmt.Errorf("%w: %w", ErrSessionFailed, err)
		}
		tabCtx, cancel := chromedp.NewContext(e.browserCtx)
		tab := &chromedpTab{ctx: tabCtx, cancel: cancel}
		tabs = append(tabs, tab)

		// Running on the tab context itself allocates the tab; later renders
		// derive timeouts from it without closing it.
		if err := chromedp.Run(tabCtx, setup...); err != nil {
			closeTabs()
			return nil, fmt.Errorf("%w: open tab: %w", ErrSessionFailed, err)
		}
	}

	pool := NewPool(tabs, func(tab *chromedpTab) error {
		tab.cancel()
		return nil
	})
	return &chromedpSession{pool: pool, opts: e.opts, logger: e.logger}, nil
}

// Close shuts the browser down.
func (e *ChromedpEngine) Close() error {
	e.cancelBrowser()
	e.cancelAlloc()
	return nil
}

// profileActions applies the session profile to a tab.
func profileActions(profile Profile) []chromedp.Action {
	actions := []chromedp.Action{network.Enable()}

	if len(profile.Headers) > 0 {
		headers := make(network.Headers, len(profile.Headers))
		for k, v := range profile.Headers {
			headers[k] = v
		}
		actions = append(actions, network.SetExtraHTTPHeaders(headers))
	}
	if profile.UserAgent != "" {
		override := emulation.SetUserAgentOverride(profile.UserAgent)
		if profile.Locale != "" {
			override = override.WithAcceptLanguage(profile.Locale)
		}
		actions = append(actions, override)
	}
	if profile.Locale != "" {
		actions = append(actions, emulation.SetLocaleOverride().WithLocale(profile.Locale))
	}
	if profile.Viewport.Width > 0 && profile.Viewport.Height > 0 {
		actions = append(actions, chromedp.EmulateViewport(int64(profile.Viewport.Width), int64(profile.Viewport.Height)))
	}
	return actions
}

type chromedpSession struct {
	pool   *Pool[*chromedpTab]
	opts   Options
	logger *slog.Logger
}

// Render navigates a free tab to req.URL and returns the outer HTML.
func (s *chromedpSession) Render(ctx context.Context, req Request) (string, error) {
	tab, err := s.pool.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer s.pool.Release(tab)

	runCtx, cancel := withTimeout(tab.ctx, req)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html string
	actions := []chromedp.Action{
		chromedp.Navigate(req.URL),
		waitAction(req.Wait),
	}
	for range s.opts.ScrollSteps {
		actions = append(actions,
			chromedp.Evaluate(`window.scrollBy(0, 3000)`, nil),
			chromedp.Sleep(s.opts.ScrollPause),
		)
	}
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	start := time.Now()
	if err := chromedp.Run(runCtx, actions...); err != nil {
		return "", classifyError(ctx, req.URL, err)
	}
	s.logger.Debug("chromedp render complete",
		"url", req.URL,
		"latency_ms", time.Since(start).Milliseconds(),
		"html_bytes", len(html),
	)
	return html, nil
}

// Close closes every tab of the session.
func (s *chromedpSession) Close() error {
	return s.pool.Close()
}

// waitAction waits for the requested page state. chromedp.Navigate already
// returns after the load event, so load and domcontentloaded only confirm
// the document is parsed.
func waitAction(wait WaitCondition) chromedp.Action {
	switch wait {
	case WaitNetworkIdle:
		return chromedp.ActionFunc(waitForNetworkIdle)
	default:
		return chromedp.WaitReady("body", chromedp.ByQuery)
	}
}

// waitForNetworkIdle polls the number of loaded resources until it stays
// unchanged for networkIdleQuiet.
func waitForNetworkIdle(ctx context.Context) error {
	ticker := time.NewTicker(networkIdlePoll)
	defer ticker.Stop()

	last := -1
	stableSince := time.Now()
	for {
		var readyState string
		var resources int
		if err := chromedp.Evaluate(`document.readyState`, &readyState).Do(ctx); err != nil {
			return err
		}
		if err := chromedp.Evaluate(`performance.getEntriesByType('resource').length`, &resources).Do(ctx); err != nil {
			return err
		}

		if resources != last {
			last = resources
			stableSince = time.Now()
		} else if readyState == "complete" && time.Since(stableSince) >= networkIdleQuiet {
			return nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
