package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/nao1215/productscan/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *CrawlDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func siteResult(url string, startedAt time.Time, products ...string) *model.SiteResult {
	result := model.NewSiteResult(url, "example")
	result.StartedAt = startedAt
	result.Duration = 1500 * time.Millisecond
	result.Visited = len(products) + 1
	result.RenderAttempts = len(products) + 2
	result.RenderFailures = 1
	result.SetProducts(products)
	return result
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, DBFileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, DBFileName) {
			t.Errorf("Path() = %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false fails for missing database", func(t *testing.T) {
		t.Parallel()

		_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{CreateIfNotExists: false})
		if err == nil {
			t.Fatal("expected error for missing database")
		}
	})

	t.Run("reopens existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		if _, err := db.SaveSiteResult(context.Background(), siteResult("https://www.example.com", time.Now(), "https://www.example.com/p/1")); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		if err := db.Close(); err != nil {
			t.Fatalf("failed to close: %v", err)
		}

		db, err = Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer db.Close()

		sites, err := db.ListSites(context.Background())
		if err != nil {
			t.Fatalf("failed to list sites: %v", err)
		}
		if !slices.Equal(sites, []string{"https://www.example.com"}) {
			t.Errorf("sites = %v", sites)
		}
	})
}

// TestSaveSiteResult tests storing and reading back a crawl.
func TestSaveSiteResult(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	result := siteResult("https://www.example.com", started,
		"https://www.example.com/p/2",
		"https://www.example.com/p/1",
	)
	result.Error = "partial"

	id, err := db.SaveSiteResult(ctx, result)
	if err != nil {
		t.Fatalf("failed to save: %v", err)
	}
	if id <= 0 {
		t.Fatalf("invalid crawl id %d", id)
	}

	record, err := db.GetCrawl(ctx, id)
	if err != nil {
		t.Fatalf("failed to get crawl: %v", err)
	}
	if record.SiteURL != result.URL || record.SiteKey != "example" {
		t.Errorf("record = %+v", record)
	}
	if !record.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", record.StartedAt, started)
	}
	if record.Duration != 1500*time.Millisecond {
		t.Errorf("Duration = %v", record.Duration)
	}
	if record.ProductCount != 2 || record.Visited != 3 || record.RenderAttempts != 4 || record.RenderFailures != 1 {
		t.Errorf("counters = %+v", record)
	}
	if record.Error != "partial" {
		t.Errorf("Error = %q", record.Error)
	}

	urls, err := db.ProductURLs(ctx, id)
	if err != nil {
		t.Fatalf("failed to get product urls: %v", err)
	}
	want := []string{"https://www.example.com/p/1", "https://www.example.com/p/2"}
	if !slices.Equal(urls, want) {
		t.Errorf("urls = %v, want %v", urls, want)
	}
}

func TestGetCrawl_NotFound(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	_, err := db.GetCrawl(context.Background(), 42)
	if !errors.Is(err, ErrCrawlNotFound) {
		t.Errorf("expected ErrCrawlNotFound, got %v", err)
	}
}

// TestSiteHistory tests history ordering and site listing.
func TestSiteHistory(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	// Saved out of order on purpose.
	for _, r := range []*model.SiteResult{
		siteResult("https://www.example.com", base.Add(time.Hour)),
		siteResult("https://www.example.com", base),
		siteResult("https://www.example.com", base.Add(time.Hour+500*time.Millisecond)),
		siteResult("https://www.other.com", base),
	} {
		if _, err := db.SaveSiteResult(ctx, r); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
	}

	history, err := db.SiteHistory(ctx, "https://www.example.com")
	if err != nil {
		t.Fatalf("failed to get history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 crawls, got %d", len(history))
	}
	for i := 1; i < len(history); i++ {
		if !history[i-1].StartedAt.After(history[i].StartedAt) {
			t.Errorf("history not newest first: %v then %v", history[i-1].StartedAt, history[i].StartedAt)
		}
	}

	sites, err := db.ListSites(ctx)
	if err != nil {
		t.Fatalf("failed to list sites: %v", err)
	}
	if !slices.Equal(sites, []string{"https://www.example.com", "https://www.other.com"}) {
		t.Errorf("sites = %v", sites)
	}

	empty, err := db.SiteHistory(ctx, "https://www.unknown.com")
	if err != nil {
		t.Fatalf("failed to get history: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty history, got %d", len(empty))
	}
}

// TestCompareLatest tests diffing the two newest crawls of a site.
func TestCompareLatest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("reports added and removed products", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		results := []*model.SiteResult{
			siteResult("https://www.example.com", base, "https://www.example.com/p/0"),
			siteResult("https://www.example.com", base.Add(time.Hour), "https://www.example.com/p/1", "https://www.example.com/p/2"),
			siteResult("https://www.example.com", base.Add(2*time.Hour), "https://www.example.com/p/2", "https://www.example.com/p/3"),
		}
		for _, r := range results {
			if _, err := db.SaveSiteResult(ctx, r); err != nil {
				t.Fatalf("failed to save: %v", err)
			}
		}

		diff, err := db.CompareLatest(ctx, "https://www.example.com")
		if err != nil {
			t.Fatalf("failed to compare: %v", err)
		}
		if diff == nil {
			t.Fatal("expected a diff")
		}
		if !slices.Equal(diff.Added, []string{"https://www.example.com/p/3"}) {
			t.Errorf("Added = %v", diff.Added)
		}
		if !slices.Equal(diff.Removed, []string{"https://www.example.com/p/1"}) {
			t.Errorf("Removed = %v", diff.Removed)
		}
		if !diff.New.StartedAt.After(diff.Old.StartedAt) {
			t.Error("New should be the newer crawl")
		}
	})

	t.Run("returns nil with a single crawl", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		if _, err := db.SaveSiteResult(ctx, siteResult("https://www.example.com", base)); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		diff, err := db.CompareLatest(ctx, "https://www.example.com")
		if err != nil {
			t.Fatalf("failed to compare: %v", err)
		}
		if diff != nil {
			t.Errorf("expected nil diff, got %+v", diff)
		}
	})
}

// TestDeleteCrawlsBefore tests pruning old crawls.
func TestDeleteCrawlsBefore(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	oldID, err := db.SaveSiteResult(ctx, siteResult("https://www.example.com", base, "https://www.example.com/p/1"))
	if err != nil {
		t.Fatalf("failed to save: %v", err)
	}
	if _, err := db.SaveSiteResult(ctx, siteResult("https://www.example.com", base.Add(48*time.Hour))); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	n, err := db.DeleteCrawlsBefore(ctx, base.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("failed to delete: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d crawls, want 1", n)
	}

	urls, err := db.ProductURLs(ctx, oldID)
	if err != nil {
		t.Fatalf("failed to get product urls: %v", err)
	}
	if len(urls) != 0 {
		t.Errorf("product urls of deleted crawl remain: %v", urls)
	}
}

// TestDiffProducts tests the set difference helper.
func TestDiffProducts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		old, new    []string
		wantAdded   []string
		wantRemoved []string
	}{
		{"both empty", nil, nil, []string{}, []string{}},
		{"all added", nil, []string{"b", "a"}, []string{"a", "b"}, []string{}},
		{"all removed", []string{"a"}, nil, []string{}, []string{"a"}},
		{"mixed", []string{"a", "b"}, []string{"b", "c"}, []string{"c"}, []string{"a"}},
		{"duplicates", []string{"a", "a"}, []string{"a", "b", "b"}, []string{"b"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			added, removed := DiffProducts(tt.old, tt.new)
			if !slices.Equal(added, tt.wantAdded) {
				t.Errorf("added = %v, want %v", added, tt.wantAdded)
			}
			if !slices.Equal(removed, tt.wantRemoved) {
				t.Errorf("removed = %v, want %v", removed, tt.wantRemoved)
			}
		})
	}
}

// TestParseTimestamp tests timestamp parsing fallbacks.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for _, s := range []string{
		"2026-03-01T10:00:00.000000000Z",
		"2026-03-01T10:00:00Z",
		"2026-03-01 10:00:00",
	} {
		if got := parseTimestamp(s); !got.Equal(want) {
			t.Errorf("parseTimestamp(%q) = %v, want %v", s, got, want)
		}
	}
	if !parseTimestamp("garbage").IsZero() {
		t.Error("garbage should parse to zero time")
	}
}
