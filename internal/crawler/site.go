package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/nao1215/productscan/internal/classify"
	"github.com/nao1215/productscan/internal/config"
	"github.com/nao1215/productscan/internal/model"
	"github.com/nao1215/productscan/internal/render"
	"github.com/nao1215/productscan/internal/scope"
)

// SiteCrawler crawls one site at a time with a pool of fetch workers.
// A SiteCrawler may be reused for several sites; each Crawl has its own
// frontier and render session.
type SiteCrawler struct {
	engine     render.Engine
	classifier *classify.Classifier
	extractor  LinkExtractor

	// workers is the number of concurrent fetch workers per site.
	workers int

	// handles is the number of render handles per site, capped at workers.
	handles int

	// timeout bounds each render.
	timeout time.Duration

	// wait is the page state each render waits for.
	wait render.WaitCondition

	// seedAttempts is the number of render attempts for a seed URL.
	seedAttempts int

	viewport render.Viewport

	// requestsPerSecond throttles renders per site; zero disables it.
	requestsPerSecond float64

	// robotsClient fetches robots.txt; nil disables robots checks.
	robotsClient *http.Client

	logger *slog.Logger
}

// Option configures a SiteCrawler.
type Option func(*SiteCrawler)

// WithWorkers sets the number of fetch workers per site.
func WithWorkers(n int) Option {
	return func(c *SiteCrawler) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithRenderHandles sets the number of render handles per site.
// The effective value never exceeds the worker count.
func WithRenderHandles(n int) Option {
	return func(c *SiteCrawler) {
		if n > 0 {
			c.handles = n
		}
	}
}

// WithTimeout sets the per-render timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *SiteCrawler) {
		c.timeout = d
	}
}

// WithWait sets the wait condition of each render.
func WithWait(wait render.WaitCondition) Option {
	return func(c *SiteCrawler) {
		c.wait = wait
	}
}

// WithSeedAttempts sets how often a seed is rendered before it is
// abandoned. A seed is retried when rendering fails or yields no anchors.
func WithSeedAttempts(n int) Option {
	return func(c *SiteCrawler) {
		if n > 0 {
			c.seedAttempts = n
		}
	}
}

// WithViewport sets the browser window size of each session.
func WithViewport(width, height int) Option {
	return func(c *SiteCrawler) {
		c.viewport = render.Viewport{Width: width, Height: height}
	}
}

// WithRateLimit limits renders to rps per second per site.
func WithRateLimit(rps float64) Option {
	return func(c *SiteCrawler) {
		c.requestsPerSecond = rps
	}
}

// WithRobots makes the crawler skip links disallowed by robots.txt.
// client fetches the robots files; nil uses a default client.
func WithRobots(client *http.Client) Option {
	return func(c *SiteCrawler) {
		if client == nil {
			client = &http.Client{Timeout: robotsFetchTimeout}
		}
		c.robotsClient = client
	}
}

// WithExtractor replaces the goquery link extractor.
func WithExtractor(e LinkExtractor) Option {
	return func(c *SiteCrawler) {
		c.extractor = e
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *SiteCrawler) {
		c.logger = logger
	}
}

// NewSiteCrawler creates a crawler rendering through engine and
// classifying links with classifier.
func NewSiteCrawler(engine render.Engine, classifier *classify.Classifier, opts ...Option) *SiteCrawler {
	c := &SiteCrawler{
		engine:       engine,
		classifier:   classifier,
		extractor:    NewParser(),
		workers:      config.DefaultWorkers,
		handles:      config.DefaultRenderHandles,
		timeout:      config.DefaultTimeout,
		wait:         render.WaitNetworkIdle,
		seedAttempts: config.DefaultSeedAttempts,
		viewport: render.Viewport{
			Width:  config.DefaultViewportWidth,
			Height: config.DefaultViewportHeight,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Crawl discovers the product URLs of site.
//
// The returned result is never nil and carries the statistics gathered so
// far even when an error is returned. Per-URL failures are logged and do
// not fail the crawl. Crawl fails when the session cannot be opened, when
// every seed failed to render, or when ctx is cancelled.
func (c *SiteCrawler) Crawl(ctx context.Context, site config.Site) (*model.SiteResult, error) {
	result := model.NewSiteResult(site.URL, site.Key)
	start := time.Now()
	logger := c.logger.With("site", site.URL)

	run := &siteRun{
		crawler:  c,
		site:     site,
		frontier: NewFrontier(site.MaxPages),
		seeds:    make(map[string]struct{}, len(site.Seeds)),
		logger:   logger,
	}
	for _, seed := range site.Seeds {
		if run.frontier.Enqueue(seed) {
			run.seeds[seed] = struct{}{}
			continue
		}
		logger.Debug("seed not enqueued", "seed", seed, "max_pages", site.MaxPages)
	}
	if len(run.seeds) == 0 {
		result.Duration = time.Since(start)
		return result, fmt.Errorf("%s: %w", site.URL, ErrNoSeeds)
	}

	if c.requestsPerSecond > 0 {
		run.limiter = rate.NewLimiter(rate.Limit(c.requestsPerSecond), 1)
	}
	if c.robotsClient != nil {
		run.robots = NewRobotsGuard(c.robotsClient, firstNonEmpty(site.UserAgent, config.DefaultUserAgent))
	}

	profile := render.Profile{
		UserAgent: site.UserAgent,
		Locale:    site.Locale,
		Headers:   site.Headers,
		Viewport:  c.viewport,
	}
	session, err := c.engine.NewSession(ctx, profile, min(c.handles, c.workers))
	if err != nil {
		result.Duration = time.Since(start)
		return result, fmt.Errorf("open session for %s: %w", site.URL, err)
	}
	run.session = session
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("failed to close session", "error", err)
		}
	}()

	logger.Info("crawling site",
		"seeds", len(run.seeds),
		"max_pages", site.MaxPages,
		"workers", c.workers,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for range c.workers {
		g.Go(func() error {
			run.work(gctx)
			return nil
		})
	}
	_ = g.Wait()

	result.SetProducts(run.frontier.Products())
	result.Visited = run.frontier.Visited()
	result.RenderAttempts = int(run.attempts.Load())
	result.RenderFailures = int(run.failures.Load())
	result.Duration = time.Since(start)

	if err := ctx.Err(); err != nil {
		return result, err
	}
	if run.seedsRendered.Load() == 0 {
		return result, fmt.Errorf("%s: %w", site.URL, ErrAllSeedsFailed)
	}

	logger.Info("site crawl complete",
		"products", len(result.Products),
		"visited", result.Visited,
		"render_failures", result.RenderFailures,
		"duration", result.Duration.Round(time.Millisecond),
	)
	return result, nil
}

// siteRun is the state of one Crawl call shared by its workers.
type siteRun struct {
	crawler  *SiteCrawler
	site     config.Site
	frontier *Frontier
	session  render.Session
	seeds    map[string]struct{}
	limiter  *rate.Limiter
	robots   *RobotsGuard
	logger   *slog.Logger

	attempts      atomic.Int64
	failures      atomic.Int64
	seedsRendered atomic.Int64
}

// work claims and processes URLs until the frontier is exhausted.
func (r *siteRun) work(ctx context.Context) {
	for {
		pageURL, ok := r.frontier.Claim(ctx)
		if !ok {
			return
		}
		r.process(ctx, pageURL)
		r.frontier.Done()
	}
}

// process renders pageURL and feeds its links back into the frontier.
func (r *siteRun) process(ctx context.Context, pageURL string) {
	attempts := 1
	_, isSeed := r.seeds[pageURL]
	if isSeed {
		attempts = r.crawler.seedAttempts
	}

	links, err := r.fetchLinks(ctx, pageURL, attempts)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Warn("abandoning url", "url", pageURL, "seed", isSeed, "error", err)
		}
		return
	}
	if isSeed {
		r.seedsRendered.Add(1)
		if len(links) == 0 {
			r.logger.Warn("seed has no links", "url", pageURL, "attempts", attempts)
		}
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return
	}
	for _, href := range links {
		r.follow(ctx, base, href)
	}
}

// fetchLinks renders pageURL up to attempts times and extracts its anchors.
// Another attempt is made after an error or a page without anchors. A page
// that rendered at least once is a success even when a later retry fails.
func (r *siteRun) fetchLinks(ctx context.Context, pageURL string, attempts int) ([]string, error) {
	var lastErr error
	rendered := false
	for attempt := 1; attempt <= attempts; attempt++ {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		r.attempts.Add(1)
		html, err := r.session.Render(ctx, render.Request{
			URL:     pageURL,
			Timeout: r.crawler.timeout,
			Wait:    r.crawler.wait,
		})
		if err != nil {
			r.failures.Add(1)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			r.logger.Debug("render failed", "url", pageURL, "attempt", attempt, "error", err)
			continue
		}

		links, err := r.crawler.extractor.ExtractLinks(html)
		if err != nil {
			lastErr = err
			continue
		}
		if len(links) > 0 || attempt == attempts {
			return links, nil
		}
		rendered = true
		r.logger.Debug("no links found, retrying", "url", pageURL, "attempt", attempt)
	}
	if rendered {
		return []string{}, nil
	}
	return nil, lastErr
}

// follow resolves href and routes it by classification.
func (r *siteRun) follow(ctx context.Context, base *url.URL, href string) {
	link, ok := resolveURL(base, href)
	if !ok {
		return
	}
	if !scope.InScope(r.site.Domain, link) {
		return
	}
	if ignored(r.site.IgnorePatterns, link) {
		return
	}

	kind := r.crawler.classifier.Classify(link, r.site.Key)
	if kind == model.Other && !r.site.FollowOther {
		return
	}
	if r.robots != nil && !r.robots.Allowed(ctx, link) {
		r.logger.Debug("disallowed by robots.txt", "url", link)
		return
	}

	if kind == model.Product && r.frontier.AddProduct(link) {
		r.logger.Debug("product found", "url", link)
	}
	r.frontier.Enqueue(link)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
