package config

import (
	"path/filepath"
	"slices"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "productscan"

	// DefaultMaxPages is the per-site page budget. It bounds
	// |visited| + |pending| for every site crawl.
	DefaultMaxPages = 100

	// DefaultWorkers is the number of concurrent fetch workers per site.
	DefaultWorkers = 5

	// DefaultRenderHandles is the number of browser tabs or pages shared by
	// the workers of one site.
	DefaultRenderHandles = 5

	// DefaultTimeout bounds a single page render.
	DefaultTimeout = 15 * time.Second

	// DefaultSeedAttempts is how many times a seed is rendered before it is
	// given up. A seed is retried on error and when it yields no links.
	DefaultSeedAttempts = 2

	// DefaultWaitCondition is the page state a render waits for.
	DefaultWaitCondition = "networkidle"

	// DefaultEngine is the render engine.
	DefaultEngine = "chromedp"

	// DefaultBrowser is the playwright browser type.
	DefaultBrowser = "chromium"

	// DefaultUserAgent is the desktop Chrome user agent sent by every engine.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

	// DefaultLocale is the browser locale of every session.
	DefaultLocale = "en-US"

	// DefaultViewportWidth and DefaultViewportHeight size the browser window.
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 800

	// DefaultOutput is the JSON file that receives site -> product URLs.
	DefaultOutput = "product_urls.json"
)

// Engine names accepted by Config.Engine.
const (
	EngineChromedp   = "chromedp"
	EnginePlaywright = "playwright"
	EngineHTTP       = "http"
)

// WaitConditions lists the accepted values of Config.WaitCondition.
func WaitConditions() []string {
	return []string{"load", "domcontentloaded", "networkidle"}
}

// Engines lists the accepted values of Config.Engine.
func Engines() []string {
	return []string{EngineChromedp, EnginePlaywright, EngineHTTP}
}

// Browsers lists the accepted values of Config.Browser.
func Browsers() []string {
	return []string{"chromium", "firefox", "webkit"}
}

// Config holds all run options for productscan.
// It is populated from CLI flags and passed down explicitly.
type Config struct {
	// MaxPages is the per-site page budget. A site's MaxPages in the
	// configuration file overrides it for that site.
	MaxPages int

	// Workers is the number of concurrent fetch workers per site.
	Workers int

	// RenderHandles is the size of the render handle pool per site.
	// It may be smaller than Workers, in which case workers queue for a handle.
	RenderHandles int

	// Timeout bounds each page render.
	Timeout time.Duration

	// SeedAttempts is the number of render attempts per seed URL.
	SeedAttempts int

	// WaitCondition is the page state to wait for: load, domcontentloaded
	// or networkidle.
	WaitCondition string

	// ScrollSteps is the number of scroll passes performed after load to
	// trigger lazily loaded product grids. Zero disables scrolling.
	ScrollSteps int

	// Engine selects the renderer: chromedp, playwright or http.
	Engine string

	// Browser selects the playwright browser type.
	Browser string

	// Headful shows the browser window instead of running headless.
	Headful bool

	// UserAgent is the User-Agent of every session.
	UserAgent string

	// Locale is the browser locale of every session.
	Locale string

	// RequestsPerSecond limits renders per site. Zero means unlimited.
	RequestsPerSecond float64

	// RespectRobots skips links disallowed by the site's robots.txt.
	RespectRobots bool

	// Proxy routes every request through an HTTP or SOCKS5 proxy,
	// e.g. socks5://127.0.0.1:9050. Empty means direct connections.
	Proxy string

	// Output is the JSON file that receives the site -> product URL map.
	// It is overwritten on every run.
	Output string

	// JSONReport prints the run summary as JSON.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport prints the run summary as Markdown.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile writes the run summary to a file instead of stdout.
	ReportFile string

	// ExcelFile additionally writes an Excel workbook of the results.
	ExcelFile string

	// ConfigFilePath is the path to the configuration file.
	// If empty, .productscan is searched in the current and home directories.
	ConfigFilePath string

	// SiteFilter restricts the run to sites whose key or base URL is listed.
	SiteFilter []string

	// DBDir is the directory of the run history database.
	DBDir string

	// SaveToDB stores every run in the history database.
	SaveToDB bool

	// Verbose enables debug logging.
	Verbose bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		MaxPages:      DefaultMaxPages,
		Workers:       DefaultWorkers,
		RenderHandles: DefaultRenderHandles,
		Timeout:       DefaultTimeout,
		SeedAttempts:  DefaultSeedAttempts,
		WaitCondition: DefaultWaitCondition,
		Engine:        DefaultEngine,
		Browser:       DefaultBrowser,
		UserAgent:     DefaultUserAgent,
		Locale:        DefaultLocale,
		Output:        DefaultOutput,
		DBDir:         XDGDataDir(),
		SaveToDB:      true,
	}
}

// XDGDataDir returns the XDG data directory for productscan.
// On Linux: ~/.local/share/productscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for productscan.
// On Linux: ~/.config/productscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
func (c *Config) Validate() error {
	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.RenderHandles <= 0 {
		return ErrInvalidRenderHandles
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.SeedAttempts <= 0 {
		return ErrInvalidSeedAttempts
	}
	if !slices.Contains(WaitConditions(), c.WaitCondition) {
		return ErrInvalidWaitCondition
	}
	if c.ScrollSteps < 0 {
		return ErrInvalidScrollSteps
	}
	if !slices.Contains(Engines(), c.Engine) {
		return ErrUnknownEngine
	}
	if c.Engine == EnginePlaywright && !slices.Contains(Browsers(), c.Browser) {
		return ErrUnknownBrowser
	}
	if c.RequestsPerSecond < 0 {
		return ErrInvalidRate
	}
	if c.Output == "" {
		return ErrEmptyOutput
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}
