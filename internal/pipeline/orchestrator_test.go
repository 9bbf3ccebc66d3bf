package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/nao1215/productscan/internal/config"
	"github.com/nao1215/productscan/internal/model"
	"github.com/nao1215/productscan/internal/render"
)

// mockCrawler returns canned products or errors per site URL.
type mockCrawler struct {
	mu       sync.Mutex
	products map[string][]string
	errs     map[string]error
	calls    []string
	cancel   context.CancelFunc
}

func (m *mockCrawler) Crawl(_ context.Context, site config.Site) (*model.SiteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, site.URL)
	if m.cancel != nil {
		m.cancel()
	}

	result := model.NewSiteResult(site.URL, site.Key)
	result.SetProducts(m.products[site.URL])
	result.Visited = len(m.products[site.URL]) + 1
	result.RenderAttempts = result.Visited
	return result, m.errs[site.URL]
}

// mockStore records saved results.
type mockStore struct {
	mu    sync.Mutex
	saved []*model.SiteResult
	err   error
}

func (m *mockStore) SaveSiteResult(_ context.Context, result *model.SiteResult) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.saved = append(m.saved, result)
	return int64(len(m.saved)), nil
}

func threeSites() []config.Site {
	return []config.Site{
		testSite("https://www.alpha.com", "alpha"),
		testSite("https://www.beta.com", "beta"),
		testSite("https://www.gamma.com", "gamma"),
	}
}

func TestOrchestratorRun(t *testing.T) {
	t.Parallel()

	t.Run("crawls sites in order", func(t *testing.T) {
		t.Parallel()

		crawler := &mockCrawler{
			products: map[string][]string{
				"https://www.alpha.com": {"https://www.alpha.com/p/2", "https://www.alpha.com/p/1"},
				"https://www.gamma.com": {"https://www.gamma.com/products/x"},
			},
		}
		store := &mockStore{}

		p := New()
		p.AddSteps(NewCrawlStep(crawler), NewSaveStep(store))

		var seen []int
		o := NewOrchestrator(p, WithSiteCallback(func(_ *model.SiteResult, index, total int) {
			if total != 3 {
				t.Errorf("total = %d, want 3", total)
			}
			seen = append(seen, index)
		}))

		report, err := o.Run(context.Background(), threeSites())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		wantCalls := []string{"https://www.alpha.com", "https://www.beta.com", "https://www.gamma.com"}
		if !slices.Equal(crawler.calls, wantCalls) {
			t.Errorf("crawl order = %v, want %v", crawler.calls, wantCalls)
		}
		if !slices.Equal(seen, []int{0, 1, 2}) {
			t.Errorf("callback indexes = %v", seen)
		}
		if len(report.Sites) != 3 {
			t.Fatalf("expected 3 results, got %d", len(report.Sites))
		}
		if got := report.Sites[0].Products; !slices.Equal(got, []string{"https://www.alpha.com/p/1", "https://www.alpha.com/p/2"}) {
			t.Errorf("alpha products = %v", got)
		}
		if report.Sites[1].Products == nil || len(report.Sites[1].Products) != 0 {
			t.Errorf("beta products = %#v, want empty list", report.Sites[1].Products)
		}
		if report.TotalProducts() != 3 {
			t.Errorf("TotalProducts() = %d, want 3", report.TotalProducts())
		}
		if len(store.saved) != 3 {
			t.Errorf("saved %d results, want 3", len(store.saved))
		}
		if report.FinishedAt.IsZero() {
			t.Error("FinishedAt should be set")
		}
	})

	t.Run("site failure does not abort the run", func(t *testing.T) {
		t.Parallel()

		crawler := &mockCrawler{
			products: map[string][]string{
				"https://www.gamma.com": {"https://www.gamma.com/products/x"},
			},
			errs: map[string]error{
				"https://www.beta.com": errors.New("all seeds failed to render"),
			},
		}
		store := &mockStore{}

		p := New()
		p.AddSteps(NewCrawlStep(crawler), NewSaveStep(store))

		report, err := NewOrchestrator(p).Run(context.Background(), threeSites())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(crawler.calls) != 3 {
			t.Errorf("expected 3 crawls, got %d", len(crawler.calls))
		}
		failed := report.FailedSites()
		if len(failed) != 1 || failed[0].URL != "https://www.beta.com" {
			t.Fatalf("failed sites = %v", failed)
		}
		if failed[0].Products == nil {
			t.Error("failed site must contribute an empty list")
		}
		// The save step does not run for the failed site.
		if len(store.saved) != 2 {
			t.Errorf("saved %d results, want 2", len(store.saved))
		}
	})

	t.Run("engine unavailable aborts the run", func(t *testing.T) {
		t.Parallel()

		crawler := &mockCrawler{
			errs: map[string]error{
				"https://www.beta.com": fmt.Errorf("open session: %w", render.ErrEngineUnavailable),
			},
		}

		p := New()
		p.AddStep(NewCrawlStep(crawler))

		report, err := NewOrchestrator(p).Run(context.Background(), threeSites())
		if !errors.Is(err, render.ErrEngineUnavailable) {
			t.Fatalf("expected ErrEngineUnavailable, got %v", err)
		}
		if len(crawler.calls) != 2 {
			t.Errorf("expected 2 crawls, got %d", len(crawler.calls))
		}
		if len(report.Sites) != 2 {
			t.Errorf("expected 2 results, got %d", len(report.Sites))
		}
	})

	t.Run("cancellation stops before the next site", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		crawler := &mockCrawler{cancel: cancel}

		p := New()
		p.AddStep(NewCrawlStep(crawler))

		report, err := NewOrchestrator(p).Run(ctx, threeSites())
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if len(crawler.calls) != 1 {
			t.Errorf("expected 1 crawl, got %d", len(crawler.calls))
		}
		if report == nil {
			t.Fatal("report must not be nil")
		}
	})

	t.Run("no sites", func(t *testing.T) {
		t.Parallel()

		report, err := NewOrchestrator(New()).Run(context.Background(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(report.Sites) != 0 {
			t.Errorf("expected no results, got %d", len(report.Sites))
		}
	})
}

func TestCrawlStep(t *testing.T) {
	t.Parallel()

	t.Run("copies statistics even on failure", func(t *testing.T) {
		t.Parallel()

		site := testSite("https://www.alpha.com", "alpha")
		crawlErr := errors.New("boom")
		crawler := &mockCrawler{
			products: map[string][]string{site.URL: {"https://www.alpha.com/p/1"}},
			errs:     map[string]error{site.URL: crawlErr},
		}

		step := NewCrawlStep(crawler)
		if step.Name() != "crawl" {
			t.Errorf("Name() = %q", step.Name())
		}

		result := model.NewSiteResult(site.URL, site.Key)
		err := step.Do(context.Background(), site, result)
		if !errors.Is(err, crawlErr) {
			t.Fatalf("expected wrapped crawl error, got %v", err)
		}
		if result.Visited != 2 || len(result.Products) != 1 {
			t.Errorf("result = %+v", result)
		}
	})
}

func TestSaveStep(t *testing.T) {
	t.Parallel()

	site := testSite("https://www.alpha.com", "alpha")

	t.Run("saves the result", func(t *testing.T) {
		t.Parallel()

		store := &mockStore{}
		step := NewSaveStep(store)
		if step.Name() != "save" {
			t.Errorf("Name() = %q", step.Name())
		}

		result := model.NewSiteResult(site.URL, site.Key)
		if err := step.Do(context.Background(), site, result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(store.saved) != 1 || store.saved[0] != result {
			t.Errorf("saved = %v", store.saved)
		}
	})

	t.Run("wraps store errors", func(t *testing.T) {
		t.Parallel()

		storeErr := errors.New("disk full")
		step := NewSaveStep(&mockStore{err: storeErr})

		err := step.Do(context.Background(), site, model.NewSiteResult(site.URL, site.Key))
		if !errors.Is(err, storeErr) {
			t.Errorf("expected wrapped store error, got %v", err)
		}
	})
}
