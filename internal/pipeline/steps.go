package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/productscan/internal/config"
	"github.com/nao1215/productscan/internal/model"
)

// Crawler discovers the product URLs of one site.
// *crawler.SiteCrawler implements it.
type Crawler interface {
	Crawl(ctx context.Context, site config.Site) (*model.SiteResult, error)
}

// CrawlStep crawls the site and copies the outcome into the result.
type CrawlStep struct {
	crawler Crawler
	logger  *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// NewCrawlStep creates a crawl step backed by c.
func NewCrawlStep(c Crawler, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		crawler: c,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl. Statistics gathered before a failure are kept.
func (s *CrawlStep) Do(ctx context.Context, site config.Site, result *model.SiteResult) error {
	crawled, err := s.crawler.Crawl(ctx, site)
	if crawled != nil {
		result.SetProducts(crawled.Products)
		result.Visited = crawled.Visited
		result.RenderAttempts = crawled.RenderAttempts
		result.RenderFailures = crawled.RenderFailures
		result.StartedAt = crawled.StartedAt
		result.Duration = crawled.Duration
	}
	if err != nil {
		return fmt.Errorf("crawl: %w", err)
	}

	s.logger.Debug("crawl step finished",
		"site", site.URL,
		"products", len(result.Products),
	)
	return nil
}

// Store persists site results.
// *database.CrawlDB implements it.
type Store interface {
	SaveSiteResult(ctx context.Context, result *model.SiteResult) (int64, error)
}

// SaveStep stores the result in the crawl history.
type SaveStep struct {
	store  Store
	logger *slog.Logger
}

// SaveStepOption configures a SaveStep.
type SaveStepOption func(*SaveStep)

// WithSaveLogger sets a custom logger for the save step.
func WithSaveLogger(logger *slog.Logger) SaveStepOption {
	return func(s *SaveStep) {
		s.logger = logger
	}
}

// NewSaveStep creates a save step writing to store.
func NewSaveStep(store Store, opts ...SaveStepOption) *SaveStep {
	s := &SaveStep{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *SaveStep) Name() string {
	return "save"
}

// Do saves result.
func (s *SaveStep) Do(ctx context.Context, site config.Site, result *model.SiteResult) error {
	id, err := s.store.SaveSiteResult(ctx, result)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	s.logger.Debug("saved crawl", "site", site.URL, "crawl_id", id)
	return nil
}
