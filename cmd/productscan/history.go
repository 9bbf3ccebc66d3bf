package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/productscan/internal/config"
	"github.com/nao1215/productscan/internal/database"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [site-url]",
		Short: "Show stored runs and diff the product URLs of a site",
		Long: `History reads the run database written by 'productscan crawl'.

Without flags it compares the latest two crawls of a site and prints the
product URLs that appeared and disappeared between them.

Examples:
  # List every site with stored crawls
  productscan history --list-sites

  # List the crawls of a site
  productscan history --list https://www.tatacliq.com/

  # Diff the latest two crawls of a site
  productscan history https://www.tatacliq.com/

  # Diff the latest crawl against crawl 12
  productscan history --with-crawl-id 12 https://www.tatacliq.com/

  # Delete crawls older than a date
  productscan history --prune-before 2026-01-01`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list-sites", "L", false,
		"List all sites with stored crawls")
	cmd.Flags().BoolP("list", "l", false,
		"List the crawls of the specified site")
	cmd.Flags().Int64P("with-crawl-id", "i", 0,
		"Compare the latest crawl with a specific crawl ID (use --list to see IDs)")
	cmd.Flags().String("prune-before", "",
		"Delete crawls started before this date (format: YYYY-MM-DD)")
	cmd.Flags().BoolP("json", "j", false,
		"Output the comparison in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output the comparison in Markdown format")
	cmd.Flags().String("db-dir", "",
		"Directory of the history database (default: XDG data directory)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	listSites, err := flags.GetBool("list-sites")
	if err != nil {
		return err
	}
	pruneBefore, err := flags.GetString("prune-before")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	var siteURL string
	if len(args) > 0 {
		siteURL = strings.TrimSpace(args[0])
	}
	if !listSites && pruneBefore == "" && siteURL == "" {
		return errors.New("site URL is required (use --list-sites to see stored sites)")
	}

	jsonOutput, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := flags.GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return config.ErrConflictingReportFormats
	}

	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(dbDir, opts)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	if pruneBefore != "" {
		return pruneHistory(ctx, db, pruneBefore, out)
	}
	if listSites {
		return listStoredSites(ctx, db, out)
	}

	listCrawls, err := flags.GetBool("list")
	if err != nil {
		return err
	}
	if listCrawls {
		return listSiteHistory(ctx, db, siteURL, out)
	}

	withCrawlID, err := flags.GetInt64("with-crawl-id")
	if err != nil {
		return err
	}
	diff, err := loadDiff(ctx, db, siteURL, withCrawlID)
	if err != nil {
		return err
	}

	switch {
	case jsonOutput:
		return outputDiffJSON(out, diff)
	case markdownOutput:
		return outputDiffMarkdown(out, diff)
	default:
		return outputDiffText(out, diff)
	}
}

// pruneHistory deletes crawls started before the given date.
func pruneHistory(ctx context.Context, db *database.CrawlDB, date string, out io.Writer) error {
	before, err := time.Parse("2006-01-02", date)
	if err != nil {
		return fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
	}
	n, err := db.DeleteCrawlsBefore(ctx, before)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted %d crawl(s) started before %s\n", n, date)
	return nil
}

// listStoredSites lists all sites that have crawl records in the database.
func listStoredSites(ctx context.Context, db *database.CrawlDB, out io.Writer) error {
	sites, err := db.ListSites(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sites: %w", err)
	}

	if len(sites) == 0 {
		fmt.Fprintln(out, "No crawled sites found in the database.")
		fmt.Fprintln(out, "\nUse 'productscan crawl' to crawl the configured sites.")
		return nil
	}

	fmt.Fprintf(out, "Crawled sites (%d):\n\n", len(sites))
	for _, site := range sites {
		fmt.Fprintf(out, "  • %s\n", site)
	}
	fmt.Fprintln(out, "\nUse 'productscan history --list <site-url>' to see the crawls of a site.")
	return nil
}

// listSiteHistory lists the crawls of one site, newest first.
func listSiteHistory(ctx context.Context, db *database.CrawlDB, siteURL string, out io.Writer) error {
	records, err := db.SiteHistory(ctx, siteURL)
	if err != nil {
		return fmt.Errorf("failed to get crawl history: %w", err)
	}

	if len(records) == 0 {
		fmt.Fprintf(out, "No crawl history found for %s\n", siteURL)
		return nil
	}

	fmt.Fprintf(out, "Crawl history for %s (%d crawls):\n\n", siteURL, len(records))
	fmt.Fprintf(out, "  %-6s  %-20s  %-9s  %-8s  %s\n", "ID", "Date", "Products", "Visited", "Status")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 60))
	for _, r := range records {
		status := "ok"
		if r.Error != "" {
			status = "failed"
		}
		fmt.Fprintf(out, "  %-6d  %-20s  %-9d  %-8d  %s\n",
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.ProductCount,
			r.Visited,
			status,
		)
	}

	fmt.Fprintln(out, "\nUse 'productscan history <site-url>' to compare the latest two crawls.")
	return nil
}

// loadDiff returns the diff between the latest crawl of siteURL and either
// the previous crawl or the crawl withID.
func loadDiff(ctx context.Context, db *database.CrawlDB, siteURL string, withID int64) (*database.ProductDiff, error) {
	history, err := db.SiteHistory(ctx, siteURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl history: %w", err)
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("no crawl history found for %s", siteURL)
	}

	if withID > 0 {
		previous, err := db.GetCrawl(ctx, withID)
		if err != nil {
			return nil, fmt.Errorf("failed to get crawl with ID %d: %w", withID, err)
		}
		if previous.SiteURL != siteURL {
			return nil, fmt.Errorf("crawl ID %d belongs to %s, not %s", withID, previous.SiteURL, siteURL)
		}
		return db.Compare(ctx, withID, history[0].ID)
	}

	if len(history) < 2 {
		return nil, fmt.Errorf("at least 2 crawls are required for comparison (found %d)", len(history))
	}
	return db.CompareLatest(ctx, siteURL)
}

// diffJSON is the JSON form of a product diff.
type diffJSON struct {
	Site     string        `json:"site"`
	Previous crawlSnapshot `json:"previous"`
	Current  crawlSnapshot `json:"current"`
	Added    []string      `json:"added"`
	Removed  []string      `json:"removed"`
}

// crawlSnapshot summarizes one side of a comparison.
type crawlSnapshot struct {
	ID        int64     `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Products  int       `json:"products"`
	Error     string    `json:"error,omitempty"`
}

func snapshot(r database.CrawlRecord) crawlSnapshot {
	return crawlSnapshot{ID: r.ID, StartedAt: r.StartedAt, Products: r.ProductCount, Error: r.Error}
}

// outputDiffJSON outputs the comparison in JSON format.
func outputDiffJSON(out io.Writer, diff *database.ProductDiff) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(diffJSON{
		Site:     diff.New.SiteURL,
		Previous: snapshot(diff.Old),
		Current:  snapshot(diff.New),
		Added:    nonNil(diff.Added),
		Removed:  nonNil(diff.Removed),
	})
}

// outputDiffMarkdown outputs the comparison in Markdown format.
func outputDiffMarkdown(out io.Writer, diff *database.ProductDiff) error {
	md := markdown.NewMarkdown(out)
	md.H1f("Crawl Comparison: %s", diff.New.SiteURL)
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows: [][]string{
			{"Crawl ID", strconv.FormatInt(diff.Old.ID, 10), strconv.FormatInt(diff.New.ID, 10), "-"},
			{"Date", diff.Old.StartedAt.Local().Format("2006-01-02 15:04"), diff.New.StartedAt.Local().Format("2006-01-02 15:04"), "-"},
			{"Products", strconv.Itoa(diff.Old.ProductCount), strconv.Itoa(diff.New.ProductCount), formatDelta(diff.New.ProductCount - diff.Old.ProductCount)},
		},
	})
	md.PlainText("")

	if len(diff.Added) > 0 {
		md.H2f("New Product URLs (%d)", len(diff.Added))
		md.PlainText("")
		md.BulletList(diff.Added...)
		md.PlainText("")
	}
	if len(diff.Removed) > 0 {
		md.H2f("Disappeared Product URLs (%d)", len(diff.Removed))
		md.PlainText("")
		md.BulletList(diff.Removed...)
		md.PlainText("")
	}
	if len(diff.Added) == 0 && len(diff.Removed) == 0 {
		md.Note("The product URL sets are identical.")
	}
	return md.Build()
}

// outputDiffText outputs the comparison in human-readable text format.
func outputDiffText(out io.Writer, diff *database.ProductDiff) error {
	fmt.Fprintf(out, "Crawl Comparison: %s\n", diff.New.SiteURL)
	fmt.Fprintln(out, strings.Repeat("=", 60))

	fmt.Fprintf(out, "\nPrevious crawl: #%d %s (%d products)\n",
		diff.Old.ID, diff.Old.StartedAt.Local().Format("2006-01-02 15:04:05"), diff.Old.ProductCount)
	fmt.Fprintf(out, "Current crawl:  #%d %s (%d products)\n",
		diff.New.ID, diff.New.StartedAt.Local().Format("2006-01-02 15:04:05"), diff.New.ProductCount)
	fmt.Fprintf(out, "Change:         %s\n", formatDelta(diff.New.ProductCount-diff.Old.ProductCount))

	if len(diff.Added) > 0 {
		fmt.Fprintf(out, "\nNew Product URLs (%d):\n", len(diff.Added))
		for _, u := range diff.Added {
			fmt.Fprintf(out, "  [+] %s\n", u)
		}
	}
	if len(diff.Removed) > 0 {
		fmt.Fprintf(out, "\nDisappeared Product URLs (%d):\n", len(diff.Removed))
		for _, u := range diff.Removed {
			fmt.Fprintf(out, "  [-] %s\n", u)
		}
	}
	if len(diff.Added) == 0 && len(diff.Removed) == 0 {
		fmt.Fprintln(out, "\nNo changes in product URLs.")
	}
	return nil
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
