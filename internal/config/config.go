package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "siteaudit"

	// DefaultTimeout bounds a single page fetch, including the headless
	// render when one is needed.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxPages is the page budget of one audit. An audit samples a
	// site rather than mirroring it, so a few dozen pages are enough to
	// expose template-level defects.
	DefaultMaxPages = 50

	// DefaultMaxDepth is the maximum number of link hops from the seed.
	DefaultMaxDepth = 3

	// DefaultTimeBudget is the wall-clock budget of one crawl.
	DefaultTimeBudget = 5 * time.Minute

	// DefaultConcurrency is the number of concurrent static fetches.
	DefaultConcurrency = 4

	// DefaultHeadlessConcurrency is the number of concurrent headless
	// renders. Each render runs a browser tab, so this stays small.
	DefaultHeadlessConcurrency = 1

	// DefaultBatchSize is the number of sites audited concurrently from a
	// --list file.
	DefaultBatchSize = 2

	// DefaultCrawlDelay is the minimum delay between requests to the
	// audited site.
	DefaultCrawlDelay = 200 * time.Millisecond

	// DefaultAnalysisTimeout bounds the analysis of a single page.
	DefaultAnalysisTimeout = 10 * time.Second

	// DefaultSeedRetries is the number of retries for the seed URL.
	DefaultSeedRetries = 2

	// DefaultSeedBackoff is the delay before the first seed retry. It
	// doubles on every further retry.
	DefaultSeedBackoff = 1 * time.Second

	// DefaultUserAgent identifies siteaudit in HTTP requests.
	DefaultUserAgent = "SiteAudit/1.0 (+https://github.com/nao1215/siteaudit)"

	// DefaultMaxBodySize limits the response body size to read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB
)

// Config holds all configuration options for siteaudit.
// It is populated from CLI flags and the configuration file and passed
// through the application rather than kept as global state.
type Config struct {
	// Targets is the list of site URLs to audit.
	Targets []string

	// MaxPages is the page budget per audit.
	MaxPages int

	// MaxDepth is the maximum link depth from the seed URL.
	// Depth 0 means only the seed (and sitemap entries) are fetched.
	MaxDepth int

	// UseJavaScript forces headless rendering of every page.
	UseJavaScript bool

	// FollowSitemaps enables sitemap discovery before link-following.
	FollowSitemaps bool

	// RespectRobots makes the crawler skip URLs disallowed by robots.txt.
	RespectRobots bool

	// TimeBudget is the wall-clock budget of the crawl.
	TimeBudget time.Duration

	// Timeout is the per-page fetch timeout.
	Timeout time.Duration

	// AnalysisTimeout is the per-page analysis timeout.
	AnalysisTimeout time.Duration

	// Concurrency is the number of crawl workers.
	Concurrency int

	// HeadlessConcurrency caps concurrent headless renders.
	HeadlessConcurrency int

	// BatchSize is the number of concurrent audits for --list.
	BatchSize int

	// CrawlDelay is the politeness delay between requests.
	CrawlDelay time.Duration

	// SeedRetries is how often a failing seed URL is retried before the
	// job is aborted.
	SeedRetries int

	// SeedBackoff is the initial retry delay for the seed URL.
	SeedBackoff time.Duration

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes.
	MaxBodySize int64

	// Verbose enables debug logging.
	Verbose bool

	// LogFormat selects the log handler: "text" or "json".
	LogFormat string

	// ConfigFilePath is the path to the configuration file.
	// If empty, .siteaudit is searched in the current and home directory.
	ConfigFilePath string

	// Explicit marks the crawl settings given on the command line, keyed
	// by flag name. They win over the site entries of the file.
	Explicit map[string]bool

	// SiteConfigs holds the configuration file contents.
	SiteConfigs *File

	// Policy holds scoring and grouping tunables.
	Policy Policy

	// JSONReport selects JSON output.
	JSONReport bool

	// MarkdownReport selects Markdown output.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When empty, the report is written to stdout.
	ReportFile string

	// DBDir is the directory of the SQLite database.
	// Defaults to the XDG data directory.
	DBDir string

	// SaveToDB enables persisting audit results.
	SaveToDB bool

	// MetricsAddr is the listen address of the Prometheus endpoint.
	// Empty disables it.
	MetricsAddr string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		MaxPages:            DefaultMaxPages,
		MaxDepth:            DefaultMaxDepth,
		FollowSitemaps:      true,
		RespectRobots:       true,
		TimeBudget:          DefaultTimeBudget,
		Timeout:             DefaultTimeout,
		AnalysisTimeout:     DefaultAnalysisTimeout,
		Concurrency:         DefaultConcurrency,
		HeadlessConcurrency: DefaultHeadlessConcurrency,
		BatchSize:           DefaultBatchSize,
		CrawlDelay:          DefaultCrawlDelay,
		SeedRetries:         DefaultSeedRetries,
		SeedBackoff:         DefaultSeedBackoff,
		UserAgent:           DefaultUserAgent,
		MaxBodySize:         DefaultMaxBodySize,
		LogFormat:           "text",
		Policy:              DefaultPolicy(),
		DBDir:               XDGDataDir(),
		SaveToDB:            true,
	}
}

// XDGDataDir returns the XDG data directory for siteaudit.
// On Linux: ~/.local/share/siteaudit
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for siteaudit.
// On Linux: ~/.config/siteaudit
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for siteaudit.
// The headless browser profile lives here.
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}
	if c.Timeout <= 0 || c.AnalysisTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.TimeBudget < 0 {
		return ErrInvalidTimeBudget
	}
	if c.Concurrency <= 0 || c.HeadlessConcurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.HeadlessConcurrency > c.Concurrency {
		return ErrHeadlessConcurrency
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return ErrInvalidLogFormat
	}
	return c.Policy.Validate()
}

// ApplySite overrides crawl settings with a site's configuration file
// entry. Values set explicitly on the command line are applied afterwards
// by the caller and therefore win.
func (c *Config) ApplySite(site SiteConfig) {
	if site.MaxPages > 0 {
		c.MaxPages = site.MaxPages
	}
	if site.Depth > 0 {
		c.MaxDepth = site.Depth
	}
	if site.UseJavaScript != nil {
		c.UseJavaScript = *site.UseJavaScript
	}
}
