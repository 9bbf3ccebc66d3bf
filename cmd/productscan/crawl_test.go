package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/productscan/internal/config"
	"github.com/nao1215/productscan/internal/database"
	"github.com/nao1215/productscan/internal/model"
)

// TestNewCrawlCmd tests the crawl command creation.
func TestNewCrawlCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCrawlCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "crawl [site...]" {
			t.Errorf("expected use 'crawl [site...]', got %q", cmd.Use)
		}
	})

	t.Run("has descriptions", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" || cmd.Long == "" {
			t.Error("expected non-empty descriptions")
		}
	})

	flags := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"config", "c", ""},
		{"max-pages", "p", "100"},
		{"workers", "w", "5"},
		{"handles", "", "5"},
		{"timeout", "t", "15s"},
		{"seed-attempts", "", "2"},
		{"wait", "", "networkidle"},
		{"scroll", "", "0"},
		{"rps", "", "0"},
		{"robots", "", "false"},
		{"engine", "e", "chromedp"},
		{"browser", "", "chromium"},
		{"headful", "", "false"},
		{"proxy", "", ""},
		{"output", "o", "product_urls.json"},
		{"json", "j", "false"},
		{"markdown", "m", "false"},
		{"report-file", "r", ""},
		{"excel", "", ""},
		{"no-db", "", "false"},
		{"db-dir", "", ""},
	}
	for _, tt := range flags {
		t.Run("has "+tt.name+" flag", func(t *testing.T) {
			t.Parallel()
			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("expected shorthand %q, got %q", tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("expected default %q, got %q", tt.defValue, flag.DefValue)
			}
		})
	}
}

func TestSetupLogger(t *testing.T) {
	t.Parallel()

	t.Run("creates logger for verbose mode", func(t *testing.T) {
		t.Parallel()
		if setupLogger(true) == nil {
			t.Error("expected non-nil logger")
		}
	})

	t.Run("creates logger for non-verbose mode", func(t *testing.T) {
		t.Parallel()
		if setupLogger(false) == nil {
			t.Error("expected non-nil logger")
		}
	})
}

// TestGetVerboseFlag tests the verbose flag retrieval.
func TestGetVerboseFlag(t *testing.T) {
	t.Run("returns false when flag not set", func(t *testing.T) {
		if getVerboseFlag(NewCrawlCmd()) {
			t.Error("expected false when flag not set")
		}
	})

	t.Run("returns value from parent verbose flag", func(t *testing.T) {
		root := NewRootCmd()
		_ = root.PersistentFlags().Set("verbose", "true")

		crawlCmd, _, err := root.Find([]string{"crawl"})
		if err != nil {
			t.Fatalf("failed to find crawl command: %v", err)
		}
		if !getVerboseFlag(crawlCmd) {
			t.Error("expected true from parent verbose flag")
		}
	})
}

// TestBuildConfig tests configuration building from flags.
func TestBuildConfig(t *testing.T) {
	t.Run("builds config with default values", func(t *testing.T) {
		cfg, err := buildConfig(NewCrawlCmd(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.MaxPages != config.DefaultMaxPages {
			t.Errorf("expected max pages %d, got %d", config.DefaultMaxPages, cfg.MaxPages)
		}
		if cfg.Engine != config.EngineChromedp {
			t.Errorf("expected chromedp engine, got %q", cfg.Engine)
		}
		if !cfg.SaveToDB {
			t.Error("expected SaveToDB by default")
		}
		if cfg.DBDir != config.XDGDataDir() {
			t.Errorf("expected XDG data dir, got %q", cfg.DBDir)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected default config to be valid: %v", err)
		}
	})

	t.Run("builds config from flags", func(t *testing.T) {
		cmd := NewCrawlCmd()
		for name, value := range map[string]string{
			"max-pages":     "250",
			"workers":       "8",
			"handles":       "3",
			"timeout":       "30s",
			"seed-attempts": "4",
			"wait":          "domcontentloaded",
			"scroll":        "3",
			"rps":           "2.5",
			"robots":        "true",
			"engine":        "playwright",
			"browser":       "firefox",
			"headful":       "true",
			"output":        "out/products.json",
			"markdown":      "true",
			"report-file":   "out/report.md",
			"excel":         "out/products.xlsx",
			"no-db":         "true",
			"db-dir":        "/tmp/productscan-db",
		} {
			if err := cmd.Flags().Set(name, value); err != nil {
				t.Fatalf("failed to set %s: %v", name, err)
			}
		}

		cfg, err := buildConfig(cmd, []string{"tatacliq", "westside"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.MaxPages != 250 || cfg.Workers != 8 || cfg.RenderHandles != 3 {
			t.Errorf("unexpected sizes: %+v", cfg)
		}
		if cfg.Timeout != 30*time.Second || cfg.SeedAttempts != 4 {
			t.Errorf("unexpected timeout or attempts: %v %d", cfg.Timeout, cfg.SeedAttempts)
		}
		if cfg.WaitCondition != "domcontentloaded" || cfg.ScrollSteps != 3 {
			t.Errorf("unexpected wait or scroll: %q %d", cfg.WaitCondition, cfg.ScrollSteps)
		}
		if cfg.RequestsPerSecond != 2.5 || !cfg.RespectRobots {
			t.Errorf("unexpected politeness: %v %v", cfg.RequestsPerSecond, cfg.RespectRobots)
		}
		if cfg.Engine != "playwright" || cfg.Browser != "firefox" || !cfg.Headful {
			t.Errorf("unexpected engine: %q %q %v", cfg.Engine, cfg.Browser, cfg.Headful)
		}
		if cfg.Output != "out/products.json" || !cfg.MarkdownReport || cfg.ReportFile != "out/report.md" {
			t.Errorf("unexpected outputs: %+v", cfg)
		}
		if cfg.ExcelFile != "out/products.xlsx" {
			t.Errorf("unexpected excel file: %q", cfg.ExcelFile)
		}
		if cfg.SaveToDB || cfg.DBDir != "/tmp/productscan-db" {
			t.Errorf("unexpected db settings: %v %q", cfg.SaveToDB, cfg.DBDir)
		}
		if !slices.Equal(cfg.SiteFilter, []string{"tatacliq", "westside"}) {
			t.Errorf("unexpected site filter: %v", cfg.SiteFilter)
		}
	})

	t.Run("conflicting report formats fail validation", func(t *testing.T) {
		cmd := NewCrawlCmd()
		_ = cmd.Flags().Set("json", "true")
		_ = cmd.Flags().Set("markdown", "true")

		cfg, err := buildConfig(cmd, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := cfg.Validate(); err == nil {
			t.Error("expected validation error")
		}
	})
}

func TestPrintSiteProgress(t *testing.T) {
	t.Parallel()

	t.Run("successful site", func(t *testing.T) {
		t.Parallel()

		result := model.NewSiteResult("https://www.westside.com/", "westside")
		result.SetProducts([]string{"https://www.westside.com/products/a"})
		result.Visited = 12

		var buf bytes.Buffer
		printSiteProgress(&buf, result, 0, 4)
		if !strings.HasPrefix(buf.String(), "[1/4] https://www.westside.com/: 1 product(s), 12 page(s) visited") {
			t.Errorf("unexpected progress line: %q", buf.String())
		}
	})

	t.Run("failed site", func(t *testing.T) {
		t.Parallel()

		result := model.NewSiteResult("https://www.virgio.com/", "virgio")
		result.Error = "session failed"

		var buf bytes.Buffer
		printSiteProgress(&buf, result, 3, 4)
		if buf.String() != "[4/4] https://www.virgio.com/: failed: session failed\n" {
			t.Errorf("unexpected progress line: %q", buf.String())
		}
	})
}

// newShopServer starts a small storefront with two products, one category
// page and a cart page that must be ignored.
func newShopServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body string
		switch r.URL.Path {
		case "/":
			body = `<a href="/products/red-shirt">Red</a><a href="/collections/men">Men</a><a href="/cart">Cart</a>`
		case "/collections/men":
			body = `<a href="/products/blue-jeans">Jeans</a><a href="/products/red-shirt">Red</a>`
		case "/products/red-shirt":
			body = `<a href="/">Home</a>`
		case "/products/blue-jeans":
			body = `<a href="/">Home</a><a href="https://elsewhere.example/products/x">Partner</a>`
		case "/cart":
			body = `<a href="/products/secret">Hidden</a>`
		default:
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<!DOCTYPE html><html><body>%s</body></html>", body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// writeSiteConfig writes a configuration file listing the given base URLs.
func writeSiteConfig(t *testing.T, dir string, baseURLs ...string) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("defaults:\n  ignorePatterns:\n    - \"/cart*\"\nsites:\n")
	for _, u := range baseURLs {
		fmt.Fprintf(&b, "  - url: %q\n    patterns:\n      - kind: product\n        match: '/products/[a-z\\-]+$'\n", u)
	}

	path := filepath.Join(dir, ".productscan")
	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// testCrawlConfig returns a config crawling with the http engine and
// writing every output below dir.
func testCrawlConfig(dir, configPath string) *config.Config {
	cfg := config.NewConfig()
	cfg.ConfigFilePath = configPath
	cfg.Engine = config.EngineHTTP
	cfg.Workers = 3
	cfg.RenderHandles = 2
	cfg.Timeout = 5 * time.Second
	cfg.Output = filepath.Join(dir, "out", "product_urls.json")
	cfg.DBDir = filepath.Join(dir, "db")
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runCrawlWithDeadline(t *testing.T, cfg *config.Config, out, errOut io.Writer) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return runCrawl(ctx, cfg, discardLogger(), out, errOut)
}

func TestRunCrawl(t *testing.T) {
	t.Parallel()

	t.Run("writes product map, report and history", func(t *testing.T) {
		t.Parallel()

		srv := newShopServer(t)
		dir := t.TempDir()
		base := srv.URL + "/"
		cfg := testCrawlConfig(dir, writeSiteConfig(t, dir, base))
		cfg.ExcelFile = filepath.Join(dir, "out", "products.xlsx")

		var out, errOut bytes.Buffer
		if err := runCrawlWithDeadline(t, cfg, &out, &errOut); err != nil {
			t.Fatalf("runCrawl() error = %v", err)
		}

		data, err := os.ReadFile(cfg.Output)
		if err != nil {
			t.Fatalf("failed to read output: %v", err)
		}
		var products map[string][]string
		if err := json.Unmarshal(data, &products); err != nil {
			t.Fatalf("invalid output json: %v", err)
		}
		want := []string{srv.URL + "/products/blue-jeans", srv.URL + "/products/red-shirt"}
		if !slices.Equal(products[base], want) {
			t.Errorf("products = %v, want %v", products[base], want)
		}

		if !strings.Contains(out.String(), "PRODUCTSCAN REPORT") {
			t.Errorf("expected text summary on stdout, got:\n%s", out.String())
		}
		if !strings.Contains(errOut.String(), "[1/1] "+base+": 2 product(s)") {
			t.Errorf("expected progress on stderr, got:\n%s", errOut.String())
		}
		if _, err := os.Stat(cfg.ExcelFile); err != nil {
			t.Errorf("expected excel workbook: %v", err)
		}

		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()
		history, err := db.SiteHistory(context.Background(), base)
		if err != nil {
			t.Fatalf("SiteHistory() error = %v", err)
		}
		if len(history) != 1 || history[0].ProductCount != 2 {
			t.Errorf("unexpected history: %+v", history)
		}
	})

	t.Run("failed site contributes empty list", func(t *testing.T) {
		t.Parallel()

		srv := newShopServer(t)
		// Nothing listens on port 1, so every render is refused.
		deadURL := "http://127.0.0.1:1/"

		dir := t.TempDir()
		base := srv.URL + "/"
		cfg := testCrawlConfig(dir, writeSiteConfig(t, dir, deadURL, base))
		cfg.SaveToDB = false
		cfg.JSONReport = true

		var out, errOut bytes.Buffer
		if err := runCrawlWithDeadline(t, cfg, &out, &errOut); err != nil {
			t.Fatalf("runCrawl() error = %v", err)
		}

		data, err := os.ReadFile(cfg.Output)
		if err != nil {
			t.Fatalf("failed to read output: %v", err)
		}
		var products map[string][]string
		if err := json.Unmarshal(data, &products); err != nil {
			t.Fatalf("invalid output json: %v", err)
		}
		if got, ok := products[deadURL]; !ok || len(got) != 0 {
			t.Errorf("expected empty list for failed site, got %v", got)
		}
		if len(products[base]) != 2 {
			t.Errorf("expected 2 products for working site, got %v", products[base])
		}
		if !strings.Contains(out.String(), `"failed_sites": 1`) {
			t.Errorf("expected json summary with one failed site, got:\n%s", out.String())
		}
		if _, err := os.Stat(filepath.Join(dir, "db")); !os.IsNotExist(err) {
			t.Error("expected no database with SaveToDB disabled")
		}
	})

	t.Run("site filter selects sites", func(t *testing.T) {
		t.Parallel()

		srv := newShopServer(t)
		dir := t.TempDir()
		cfg := testCrawlConfig(dir, writeSiteConfig(t, dir, srv.URL+"/"))
		cfg.SaveToDB = false
		cfg.SiteFilter = []string{"unknown-site"}

		err := runCrawlWithDeadline(t, cfg, io.Discard, io.Discard)
		if err == nil {
			t.Fatal("expected error when no site matches")
		}
		if _, statErr := os.Stat(cfg.Output); !os.IsNotExist(statErr) {
			t.Error("expected no output file")
		}
	})

	t.Run("missing explicit config file", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cfg := testCrawlConfig(dir, filepath.Join(dir, "missing.yaml"))
		if err := runCrawlWithDeadline(t, cfg, io.Discard, io.Discard); err == nil {
			t.Fatal("expected error for missing config file")
		}
	})

	t.Run("unknown engine aborts before crawling", func(t *testing.T) {
		t.Parallel()

		srv := newShopServer(t)
		dir := t.TempDir()
		cfg := testCrawlConfig(dir, writeSiteConfig(t, dir, srv.URL+"/"))
		cfg.Engine = "netscape"

		if err := runCrawlWithDeadline(t, cfg, io.Discard, io.Discard); err == nil {
			t.Fatal("expected engine error")
		}
		if _, err := os.Stat(cfg.Output); !os.IsNotExist(err) {
			t.Error("expected no output file")
		}
	})

	t.Run("cancelled run lists every configured site", func(t *testing.T) {
		t.Parallel()

		srv := newShopServer(t)
		dir := t.TempDir()
		sites := []string{srv.URL + "/", "http://127.0.0.1:1/"}
		cfg := testCrawlConfig(dir, writeSiteConfig(t, dir, sites...))
		cfg.SaveToDB = false

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := runCrawl(ctx, cfg, discardLogger(), io.Discard, io.Discard); err == nil {
			t.Fatal("expected error for cancelled run")
		}

		data, err := os.ReadFile(cfg.Output)
		if err != nil {
			t.Fatalf("expected output file: %v", err)
		}
		var products map[string][]string
		if err := json.Unmarshal(data, &products); err != nil {
			t.Fatalf("invalid json: %v\n%s", err, data)
		}
		for _, site := range sites {
			got, ok := products[site]
			if !ok || len(got) != 0 {
				t.Errorf("expected empty list for %s, got %v (present %v)", site, got, ok)
			}
		}
	})

	t.Run("proxy errors abort before crawling", func(t *testing.T) {
		t.Parallel()

		srv := newShopServer(t)
		for _, proxy := range []string{"ftp://127.0.0.1:21", "http://127.0.0.1:1"} {
			dir := t.TempDir()
			cfg := testCrawlConfig(dir, writeSiteConfig(t, dir, srv.URL+"/"))
			cfg.Proxy = proxy

			if err := runCrawlWithDeadline(t, cfg, io.Discard, io.Discard); err == nil {
				t.Fatalf("expected error for proxy %s", proxy)
			}
			if _, err := os.Stat(cfg.Output); !os.IsNotExist(err) {
				t.Errorf("expected no output file for proxy %s", proxy)
			}
		}
	})
}
