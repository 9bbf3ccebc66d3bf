package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/productscan/internal/model"
)

// DBFileName is the name of the history database inside the data directory.
const DBFileName = "productscan.db"

// ErrCrawlNotFound is returned when a crawl ID does not exist.
var ErrCrawlNotFound = errors.New("crawl not found")

// storedTimeFormat is a fixed-width UTC layout so that timestamps sort
// lexically in SQL.
const storedTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// CrawlDB stores the outcome of every site crawl and the product URLs it
// found, so that runs can be compared over time.
type CrawlDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the CrawlDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (run a crawl first)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return cdb, nil
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

func (cdb *CrawlDB) createTables() error {
	schema := `
	-- One row per site crawl
	CREATE TABLE IF NOT EXISTS crawls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		site_url TEXT NOT NULL,
		site_key TEXT NOT NULL,
		started_at TEXT NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		visited INTEGER NOT NULL DEFAULT 0,
		render_attempts INTEGER NOT NULL DEFAULT 0,
		render_failures INTEGER NOT NULL DEFAULT 0,
		product_count INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_crawls_site ON crawls(site_url);
	CREATE INDEX IF NOT EXISTS idx_crawls_started ON crawls(started_at);

	-- Product URLs found by a crawl
	CREATE TABLE IF NOT EXISTS product_urls (
		crawl_id INTEGER NOT NULL REFERENCES crawls(id),
		url TEXT NOT NULL,
		PRIMARY KEY (crawl_id, url)
	);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// CrawlRecord is the stored summary of one site crawl.
type CrawlRecord struct {
	ID             int64
	SiteURL        string
	SiteKey        string
	StartedAt      time.Time
	Duration       time.Duration
	Visited        int
	RenderAttempts int
	RenderFailures int
	ProductCount   int
	Error          string
}

// SaveSiteResult stores result and its product URLs in one transaction
// and returns the new crawl ID.
func (cdb *CrawlDB) SaveSiteResult(ctx context.Context, result *model.SiteResult) (int64, error) {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after Commit
	}()

	startedAt := result.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	res, err := tx.ExecContext(ctx, `
	INSERT INTO crawls (site_url, site_key, started_at, duration_ms, visited, render_attempts, render_failures, product_count, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		result.URL,
		result.SiteKey,
		startedAt.UTC().Format(storedTimeFormat),
		result.Duration.Milliseconds(),
		result.Visited,
		result.RenderAttempts,
		result.RenderFailures,
		len(result.Products),
		result.Error,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert crawl: %w", err)
	}
	crawlID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get crawl id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO product_urls (crawl_id, url) VALUES (?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare product insert: %w", err)
	}
	defer stmt.Close()

	for _, u := range result.Products {
		if _, err := stmt.ExecContext(ctx, crawlID, u); err != nil {
			return 0, fmt.Errorf("failed to insert product url: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit crawl: %w", err)
	}
	return crawlID, nil
}

// ListSites returns the URLs of all sites with stored crawls.
func (cdb *CrawlDB) ListSites(ctx context.Context) ([]string, error) {
	rows, err := cdb.db.QueryContext(ctx, `SELECT DISTINCT site_url FROM crawls ORDER BY site_url`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	sites := make([]string, 0)
	for rows.Next() {
		var site string
		if err := rows.Scan(&site); err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

// SiteHistory returns the crawls of siteURL, newest first.
func (cdb *CrawlDB) SiteHistory(ctx context.Context, siteURL string) ([]CrawlRecord, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT id, site_url, site_key, started_at, duration_ms, visited, render_attempts, render_failures, product_count, error
	FROM crawls
	WHERE site_url = ?
	ORDER BY started_at DESC, id DESC
	`, siteURL)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	records := make([]CrawlRecord, 0)
	for rows.Next() {
		record, err := scanCrawl(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// GetCrawl returns the crawl with the given ID.
func (cdb *CrawlDB) GetCrawl(ctx context.Context, id int64) (*CrawlRecord, error) {
	row := cdb.db.QueryRowContext(ctx, `
	SELECT id, site_url, site_key, started_at, duration_ms, visited, render_attempts, render_failures, product_count, error
	FROM crawls
	WHERE id = ?
	`, id)

	record, err := scanCrawl(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrCrawlNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ProductURLs returns the product URLs of a crawl, sorted.
func (cdb *CrawlDB) ProductURLs(ctx context.Context, crawlID int64) ([]string, error) {
	rows, err := cdb.db.QueryContext(ctx, `SELECT url FROM product_urls WHERE crawl_id = ? ORDER BY url`, crawlID)
	if err != nil {
		return nil, fmt.Errorf("failed to query product urls: %w", err)
	}
	defer rows.Close()

	urls := make([]string, 0)
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan product url: %w", err)
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

// DeleteCrawlsBefore removes crawls started before t together with their
// product URLs and returns the number of removed crawls.
func (cdb *CrawlDB) DeleteCrawlsBefore(ctx context.Context, t time.Time) (int64, error) {
	cutoff := t.UTC().Format(storedTimeFormat)

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after Commit
	}()

	if _, err := tx.ExecContext(ctx, `
	DELETE FROM product_urls
	WHERE crawl_id IN (SELECT id FROM crawls WHERE started_at < ?)
	`, cutoff); err != nil {
		return 0, fmt.Errorf("failed to delete product urls: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM crawls WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete crawls: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted crawls: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit delete: %w", err)
	}
	return n, nil
}

// ProductDiff is the difference between two crawls of a site.
type ProductDiff struct {
	Old     CrawlRecord
	New     CrawlRecord
	Added   []string
	Removed []string
}

// CompareLatest diffs the product URLs of the two most recent crawls of
// siteURL. It returns nil when fewer than two crawls are stored.
func (cdb *CrawlDB) CompareLatest(ctx context.Context, siteURL string) (*ProductDiff, error) {
	history, err := cdb.SiteHistory(ctx, siteURL)
	if err != nil {
		return nil, err
	}
	if len(history) < 2 {
		return nil, nil
	}
	return cdb.Compare(ctx, history[1].ID, history[0].ID)
}

// Compare diffs the product URLs of crawl oldID against crawl newID.
func (cdb *CrawlDB) Compare(ctx context.Context, oldID, newID int64) (*ProductDiff, error) {
	oldRecord, err := cdb.GetCrawl(ctx, oldID)
	if err != nil {
		return nil, err
	}
	newRecord, err := cdb.GetCrawl(ctx, newID)
	if err != nil {
		return nil, err
	}
	oldURLs, err := cdb.ProductURLs(ctx, oldID)
	if err != nil {
		return nil, err
	}
	newURLs, err := cdb.ProductURLs(ctx, newID)
	if err != nil {
		return nil, err
	}

	added, removed := DiffProducts(oldURLs, newURLs)
	return &ProductDiff{
		Old:     *oldRecord,
		New:     *newRecord,
		Added:   added,
		Removed: removed,
	}, nil
}

// DiffProducts returns the URLs only in newURLs and the URLs only in
// oldURLs, both sorted.
func DiffProducts(oldURLs, newURLs []string) (added, removed []string) {
	oldSet := make(map[string]struct{}, len(oldURLs))
	for _, u := range oldURLs {
		oldSet[u] = struct{}{}
	}
	newSet := make(map[string]struct{}, len(newURLs))
	for _, u := range newURLs {
		newSet[u] = struct{}{}
	}

	added = make([]string, 0)
	for u := range newSet {
		if _, ok := oldSet[u]; !ok {
			added = append(added, u)
		}
	}
	removed = make([]string, 0)
	for u := range oldSet {
		if _, ok := newSet[u]; !ok {
			removed = append(removed, u)
		}
	}
	slices.Sort(added)
	slices.Sort(removed)
	return added, removed
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCrawl(row rowScanner) (CrawlRecord, error) {
	var record CrawlRecord
	var startedAt string
	var durationMS int64
	err := row.Scan(
		&record.ID,
		&record.SiteURL,
		&record.SiteKey,
		&startedAt,
		&durationMS,
		&record.Visited,
		&record.RenderAttempts,
		&record.RenderFailures,
		&record.ProductCount,
		&record.Error,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return record, err
		}
		return record, fmt.Errorf("failed to scan crawl: %w", err)
	}
	record.StartedAt = parseTimestamp(startedAt)
	record.Duration = time.Duration(durationMS) * time.Millisecond
	return record, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
