package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/productscan/internal/config"
	"github.com/nao1215/productscan/internal/crawler"
	"github.com/nao1215/productscan/internal/database"
	"github.com/nao1215/productscan/internal/model"
	"github.com/nao1215/productscan/internal/pipeline"
	"github.com/nao1215/productscan/internal/render"
	"github.com/nao1215/productscan/internal/report"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [site...]",
		Short: "Crawl the configured sites and collect product URLs",
		Long: `Crawl renders every configured site with a headless browser and collects
the URLs of its product detail pages.

Sites are crawled one after another. Within a site a pool of workers
shares one frontier of URLs; the crawl of a site stops when the frontier is
empty or the page budget (--max-pages) is used up. A site that fails is
recorded with an empty product list and the run continues with the next
site. The run only aborts when the render engine cannot be started.

Positional arguments restrict the run to sites whose key (e.g. tatacliq),
registrable domain or base URL is given.

Examples:
  # Crawl every site in .productscan (or the built-in list)
  productscan crawl

  # Crawl two sites with a larger budget
  productscan crawl tatacliq westside --max-pages 500

  # Use playwright with firefox and respect robots.txt
  productscan crawl --engine playwright --browser firefox --robots

  # Plain HTTP fetching without a browser, with a Markdown summary
  productscan crawl --engine http --markdown --report-file report.md

  # Also write an Excel workbook
  productscan crawl --excel products.xlsx`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Input
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .productscan in current, XDG config or home directory)")

	// Crawl behavior
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages visited or queued per site")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of concurrent fetch workers per site")
	cmd.Flags().Int("handles", config.DefaultRenderHandles,
		"Number of browser tabs per site (capped at --workers)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each page render")
	cmd.Flags().Int("seed-attempts", config.DefaultSeedAttempts,
		"Render attempts per seed URL")
	cmd.Flags().String("wait", config.DefaultWaitCondition,
		"Page state to wait for: load, domcontentloaded or networkidle")
	cmd.Flags().Int("scroll", 0,
		"Scroll passes after load to trigger lazily loaded products")
	cmd.Flags().Float64("rps", 0,
		"Maximum renders per second per site (0 = unlimited)")
	cmd.Flags().Bool("robots", false,
		"Skip links disallowed by the site's robots.txt")

	// Render engine
	cmd.Flags().StringP("engine", "e", config.DefaultEngine,
		"Render engine: chromedp, playwright or http")
	cmd.Flags().String("browser", config.DefaultBrowser,
		"Playwright browser: chromium, firefox or webkit")
	cmd.Flags().Bool("headful", false,
		"Show the browser window")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent of every session")
	cmd.Flags().String("proxy", "",
		"Route all requests through a proxy (socks5://host:port or http://host:port)")

	// Output
	cmd.Flags().StringP("output", "o", config.DefaultOutput,
		"JSON file receiving the site to product URL map (overwritten)")
	cmd.Flags().BoolP("json", "j", false,
		"Print the run summary as JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Print the run summary as Markdown (mutually exclusive with --json)")
	cmd.Flags().StringP("report-file", "r", "",
		"Write the run summary to a file instead of stdout")
	cmd.Flags().String("excel", "",
		"Also write an Excel workbook to this path")

	// History
	cmd.Flags().Bool("no-db", false,
		"Do not store the run in the history database")
	cmd.Flags().String("db-dir", "",
		"Directory of the history database (default: XDG data directory)")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.Workers, err = flags.GetInt("workers"); err != nil {
		return nil, err
	}
	if cfg.RenderHandles, err = flags.GetInt("handles"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.SeedAttempts, err = flags.GetInt("seed-attempts"); err != nil {
		return nil, err
	}
	if cfg.WaitCondition, err = flags.GetString("wait"); err != nil {
		return nil, err
	}
	if cfg.ScrollSteps, err = flags.GetInt("scroll"); err != nil {
		return nil, err
	}
	if cfg.RequestsPerSecond, err = flags.GetFloat64("rps"); err != nil {
		return nil, err
	}
	if cfg.RespectRobots, err = flags.GetBool("robots"); err != nil {
		return nil, err
	}
	if cfg.Engine, err = flags.GetString("engine"); err != nil {
		return nil, err
	}
	if cfg.Browser, err = flags.GetString("browser"); err != nil {
		return nil, err
	}
	if cfg.Headful, err = flags.GetBool("headful"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.Proxy, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.Output, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("report-file"); err != nil {
		return nil, err
	}
	if cfg.ExcelFile, err = flags.GetString("excel"); err != nil {
		return nil, err
	}

	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB

	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}

	cfg.SiteFilter = args
	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// runCrawl loads the sites, crawls them and writes the outputs.
// Progress goes to errOut so that stdout only carries the summary report.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, out, errOut io.Writer) error {
	file, path, err := config.Load(cfg)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return fmt.Errorf("%w: %s", err, cfg.ConfigFilePath)
		}
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	if path == "" {
		logger.Info("no configuration file found, using built-in sites")
	}

	sites, err := file.Resolve(cfg)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	wait, err := render.ParseWaitCondition(cfg.WaitCondition)
	if err != nil {
		return err
	}

	var proxyURL *url.URL
	if cfg.Proxy != "" {
		if proxyURL, err = render.ParseProxy(cfg.Proxy); err != nil {
			return err
		}
	}

	engine, err := render.NewEngine(ctx, render.Options{
		Engine:      cfg.Engine,
		Browser:     cfg.Browser,
		Headless:    !cfg.Headful,
		ScrollSteps: cfg.ScrollSteps,
		Proxy:       proxyURL,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("failed to start render engine: %w", err)
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Warn("failed to close render engine", "error", err)
		}
	}()

	crawlerOpts := []crawler.Option{
		crawler.WithWorkers(cfg.Workers),
		crawler.WithRenderHandles(cfg.RenderHandles),
		crawler.WithTimeout(cfg.Timeout),
		crawler.WithWait(wait),
		crawler.WithSeedAttempts(cfg.SeedAttempts),
		crawler.WithRateLimit(cfg.RequestsPerSecond),
		crawler.WithLogger(logger),
	}
	if cfg.RespectRobots {
		var robotsClient *http.Client
		if proxyURL != nil {
			if robotsClient, err = render.NewProxyClient(proxyURL); err != nil {
				return err
			}
			robotsClient.Timeout = cfg.Timeout
		}
		crawlerOpts = append(crawlerOpts, crawler.WithRobots(robotsClient))
	}
	siteCrawler := crawler.NewSiteCrawler(engine, config.NewClassifier(sites, file.ClassifierHeuristic()), crawlerOpts...)

	// Saving runs after a failed crawl too, so failures appear in the history.
	p := pipeline.New(
		pipeline.WithLogger(logger),
		pipeline.WithContinueOnError(true),
	)
	p.AddStep(pipeline.NewCrawlStep(siteCrawler, pipeline.WithCrawlLogger(logger)))

	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		p.AddStep(pipeline.NewSaveStep(db, pipeline.WithSaveLogger(logger)))
		logger.Info("database opened", "path", db.Path())
	}

	fmt.Fprintf(errOut, "Crawling %d site(s) with the %s engine...\n", len(sites), cfg.Engine)
	orchestrator := pipeline.NewOrchestrator(p,
		pipeline.WithOrchestratorLogger(logger),
		pipeline.WithSiteCallback(func(result *model.SiteResult, index, total int) {
			printSiteProgress(errOut, result, index, total)
		}),
	)
	runReport, runErr := orchestrator.Run(ctx, sites)

	siteURLs := make([]string, 0, len(sites))
	for _, site := range sites {
		siteURLs = append(siteURLs, site.URL)
	}
	if err := writeOutputs(cfg, runReport, siteURLs, out); err != nil {
		return err
	}
	fmt.Fprintf(errOut, "Wrote %d product URL(s) to %s in %s\n",
		runReport.TotalProducts(), cfg.Output, runReport.Duration().Round(time.Millisecond))

	if runErr != nil {
		return fmt.Errorf("run aborted: %w", runErr)
	}
	return nil
}

// printSiteProgress writes one progress line for a finished site.
func printSiteProgress(w io.Writer, result *model.SiteResult, index, total int) {
	if result.Failed() {
		fmt.Fprintf(w, "[%d/%d] %s: failed: %s\n", index+1, total, result.URL, result.Error)
		return
	}
	fmt.Fprintf(w, "[%d/%d] %s: %d product(s), %d page(s) visited in %s\n",
		index+1, total, result.URL, len(result.Products), result.Visited,
		result.Duration.Round(time.Millisecond))
}

// writeOutputs writes the product JSON file, the summary report and the
// optional Excel workbook. Every site in siteURLs gets a key in the product
// file, including sites an aborted run never reached.
func writeOutputs(cfg *config.Config, runReport *model.RunReport, siteURLs []string, out io.Writer) error {
	if err := report.WriteFile(cfg.Output, runReport, func(w io.Writer) report.Writer {
		return report.NewProductWriter(w, report.WithSiteURLs(siteURLs))
	}); err != nil {
		return err
	}

	summary := func(w io.Writer) report.Writer {
		switch {
		case cfg.JSONReport:
			return report.NewJSONWriter(w, report.WithPrettyPrint(), report.WithVersion(getVersion()))
		case cfg.MarkdownReport:
			return report.NewMarkdownWriter(w)
		default:
			return report.NewSimpleWriter(w, report.WithVerbose(cfg.Verbose))
		}
	}
	if cfg.ReportFile != "" {
		if err := report.WriteFile(cfg.ReportFile, runReport, summary); err != nil {
			return err
		}
	} else if _, err := summary(out).Write(runReport); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if cfg.ExcelFile != "" {
		if err := report.WriteFile(cfg.ExcelFile, runReport, func(w io.Writer) report.Writer {
			return report.NewExcelWriter(w)
		}); err != nil {
			return err
		}
	}
	return nil
}
