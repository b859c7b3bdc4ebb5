package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/siteaudit/internal/audit"
	"github.com/nao1215/siteaudit/internal/config"
	"github.com/nao1215/siteaudit/internal/crawler"
	"github.com/nao1215/siteaudit/internal/database"
	"github.com/nao1215/siteaudit/internal/log"
	"github.com/nao1215/siteaudit/internal/metrics"
	"github.com/nao1215/siteaudit/internal/model"
	"github.com/nao1215/siteaudit/internal/pipeline"
	"github.com/nao1215/siteaudit/internal/render"
	"github.com/nao1215/siteaudit/internal/report"
)

// NewAuditCmd creates the audit command.
func NewAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit [url]",
		Short: "Crawl a website and audit it for SEO problems",
		Long: `Audit crawls a website, analyzes every page and prints a scored report.

Each page is checked for:
- Content quality (titles, descriptions, headings, depth, authorship)
- Technical SEO (status codes, canonical tags, indexability, structured data)
- Local SEO (business name, address and phone consistency, location pages)
- Usability (mobile viewport, images, calls to action)

Issues that share a root cause across pages are grouped and ranked so that
the fixes with the widest impact come first.

Examples:
  # Audit a single site
  siteaudit audit https://example.com

  # Audit up to 200 pages and render JavaScript on every page
  siteaudit audit --max-pages 200 --js https://example.com

  # Audit every site listed in a file, three at a time
  siteaudit audit --list sites.txt --batch-size 3

  # Write a Markdown report
  siteaudit audit --markdown -o report.md https://example.com

  # Expose Prometheus metrics while auditing
  siteaudit audit --metrics-addr :9090 https://example.com`,
		Args: cobra.ArbitraryArgs,
		RunE: runAuditCmd,
	}

	// Crawl budget flags
	cmd.Flags().IntP("max-pages", "m", config.DefaultMaxPages,
		"Maximum number of pages to crawl per site")
	cmd.Flags().IntP("max-depth", "d", config.DefaultMaxDepth,
		"Maximum link depth from the start URL")
	cmd.Flags().Duration("time-budget", config.DefaultTimeBudget,
		"Wall-clock budget of the crawl (0 for none)")
	cmd.Flags().Bool("js", false,
		"Render every page in headless Chrome")
	cmd.Flags().Bool("no-sitemap", false,
		"Do not read sitemaps before following links")
	cmd.Flags().Bool("no-robots", false,
		"Ignore robots.txt disallow rules")

	// Fetch behavior flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each page fetch")
	cmd.Flags().Duration("analysis-timeout", config.DefaultAnalysisTimeout,
		"Timeout for analyzing one page")
	cmd.Flags().IntP("concurrency", "c", config.DefaultConcurrency,
		"Number of concurrent page fetches")
	cmd.Flags().Int("headless-concurrency", config.DefaultHeadlessConcurrency,
		"Number of concurrent headless renders")
	cmd.Flags().Duration("crawl-delay", config.DefaultCrawlDelay,
		"Minimum delay between requests to a site")
	cmd.Flags().Float64("similarity-threshold", config.DefaultPolicy().SimilarityThreshold,
		"Similarity at or above which pages count as duplicates")

	// Batch flags
	cmd.Flags().StringP("list", "l", "",
		"File with one site URL per line")
	cmd.Flags().IntP("batch-size", "b", config.DefaultBatchSize,
		"Number of sites audited concurrently")

	// Configuration file
	cmd.Flags().String("config", "",
		"Configuration file path (default: .siteaudit in current or home directory)")

	// Persistence and monitoring
	cmd.Flags().Bool("no-save", false,
		"Do not store the result in the database")
	cmd.Flags().String("metrics-addr", "",
		"Serve Prometheus metrics on this address (e.g. :9090)")

	addReportFlags(cmd)

	return cmd
}

// runAuditCmd executes the audit command.
func runAuditCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	details, err := cmd.Flags().GetBool("details")
	if err != nil {
		return err
	}
	out, closeOut, err := openOutput(cmd, cfg.ReportFile)
	if err != nil {
		return err
	}
	defer closeOut() //nolint:errcheck // the report is flushed by the writers

	writer := newReportWriter(out, reportOptions{
		json:     cfg.JSONReport,
		markdown: cfg.MarkdownReport,
		details:  details,
	})
	return runAudit(ctx, cfg, writer, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getLogFormatFlag retrieves the log format from the command or its parent.
func getLogFormatFlag(cmd *cobra.Command) string {
	format, err := cmd.Flags().GetString("log-format")
	if err != nil {
		format, err = cmd.Root().PersistentFlags().GetString("log-format")
		if err != nil {
			return "text"
		}
	}
	return format
}

// setupLogger creates a sanitizing structured logger.
func setupLogger(w io.Writer, verbose bool, format string) *slog.Logger {
	return log.NewLogger(w, verbose, format)
}

// buildConfig creates a Config from the configuration file and the cobra
// command flags. Flags set explicitly win over the file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.MaxDepth, err = flags.GetInt("max-depth"); err != nil {
		return nil, err
	}
	if cfg.TimeBudget, err = flags.GetDuration("time-budget"); err != nil {
		return nil, err
	}
	if cfg.UseJavaScript, err = flags.GetBool("js"); err != nil {
		return nil, err
	}
	noSitemap, err := flags.GetBool("no-sitemap")
	if err != nil {
		return nil, err
	}
	cfg.FollowSitemaps = !noSitemap
	cfg.Explicit = map[string]bool{
		"max-pages": flags.Changed("max-pages"),
		"max-depth": flags.Changed("max-depth"),
		"js":        flags.Changed("js"),
	}
	noRobots, err := flags.GetBool("no-robots")
	if err != nil {
		return nil, err
	}
	cfg.RespectRobots = !noRobots

	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.AnalysisTimeout, err = flags.GetDuration("analysis-timeout"); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.HeadlessConcurrency, err = flags.GetInt("headless-concurrency"); err != nil {
		return nil, err
	}
	if cfg.CrawlDelay, err = flags.GetDuration("crawl-delay"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch-size"); err != nil {
		return nil, err
	}

	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if err := loadConfigFile(cfg); err != nil {
		return nil, err
	}
	if flags.Changed("similarity-threshold") {
		if cfg.Policy.SimilarityThreshold, err = flags.GetFloat64("similarity-threshold"); err != nil {
			return nil, err
		}
	}

	ro, err := getReportOptions(cmd)
	if err != nil {
		return nil, err
	}
	cfg.JSONReport = ro.json
	cfg.MarkdownReport = ro.markdown
	cfg.ReportFile = ro.output
	cfg.DBDir = ro.dbDir

	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	if cfg.MetricsAddr, err = flags.GetString("metrics-addr"); err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)
	cfg.LogFormat = getLogFormatFlag(cmd)

	listFile, err := flags.GetString("list")
	if err != nil {
		return nil, err
	}
	for _, arg := range args {
		cfg.Targets = append(cfg.Targets, normalizeTarget(arg))
	}
	if listFile != "" {
		listed, err := readTargetList(listFile)
		if err != nil {
			return nil, err
		}
		cfg.Targets = append(cfg.Targets, listed...)
	}

	return cfg, nil
}

// loadConfigFile loads site configurations and the policy from the
// configuration file. A file given with --config must exist; otherwise a
// missing file means built-in defaults.
func loadConfigFile(cfg *config.Config) error {
	explicit := cfg.ConfigFilePath != ""
	path := config.FindConfigFile(cfg.ConfigFilePath)

	switch {
	case path != "":
		file, err := config.LoadConfigFile(path)
		if err != nil {
			return fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		cfg.SiteConfigs = file
		cfg.Policy = cfg.Policy.Merge(file.Policy)
	case explicit:
		return fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}
	}
	return nil
}

// readTargetList reads site URLs from a file, one per line. Blank lines
// and lines starting with # are ignored.
func readTargetList(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided list path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open target list: %w", err)
	}
	defer f.Close()

	var targets []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, normalizeTarget(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read target list: %w", err)
	}
	return targets, nil
}

// auditor runs audits with the settings shared by all targets.
type auditor struct {
	cfg       *config.Config
	db        *database.AuditDB
	collector *metrics.Collector
	logger    *slog.Logger
}

// runAudit audits every target and writes one report per target. A single
// target's error is returned as is; in a batch, failures are reported per
// site and summarized.
func runAudit(ctx context.Context, cfg *config.Config, writer report.Writer, logger *slog.Logger) error {
	logger.Info("starting audit",
		"targets", cfg.Targets,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	a := &auditor{cfg: cfg, logger: logger}
	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		a.db = db
		logger.Info("database opened", "path", db.Path())
	}

	if cfg.MetricsAddr != "" {
		a.collector = metrics.NewCollector()
		go func() {
			if err := a.collector.Serve(ctx, cfg.MetricsAddr, logger); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	if len(cfg.Targets) == 1 {
		result, err := a.run(ctx, cfg.Targets[0])
		if result != nil && !model.IsJobFatal(err) {
			if _, werr := writer.Write(result); werr != nil {
				return fmt.Errorf("failed to write report: %w", werr)
			}
		}
		if err != nil {
			return fmt.Errorf("audit of %s failed: %w", cfg.Targets[0], err)
		}
		return nil
	}

	return a.runBatch(ctx, writer)
}

// runBatch audits all targets with bounded concurrency and writes each
// report as soon as its audit finishes.
func (a *auditor) runBatch(ctx context.Context, writer report.Writer) error {
	bp := pipeline.NewBatchProcessor(a.run,
		pipeline.WithConcurrency(a.cfg.BatchSize),
		pipeline.WithBatchLogger(a.logger),
	)

	var (
		mu     sync.Mutex
		failed []error
	)
	err := bp.ProcessBatchWithCallback(ctx, a.cfg.Targets, func(item pipeline.BatchItem, _ int) {
		mu.Lock()
		defer mu.Unlock()
		if item.Result != nil && !model.IsJobFatal(item.Err) {
			if _, werr := writer.Write(item.Result); werr != nil {
				failed = append(failed, fmt.Errorf("%s: failed to write report: %w", item.Seed, werr))
			}
		}
		if item.Err != nil {
			failed = append(failed, fmt.Errorf("%s: %w", item.Seed, item.Err))
		}
	})
	if err != nil {
		return err
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d audits failed: %w", len(failed), len(a.cfg.Targets), errors.Join(failed...))
	}
	return nil
}

// run audits one site with its site-specific configuration.
func (a *auditor) run(ctx context.Context, target string) (*model.AuditResult, error) {
	site := a.cfg.SiteConfigs.GetSiteConfig(target)
	factory, closeRenderer := newCrawlerFactory(ctx, a.cfg, site, target, a.logger)
	defer closeRenderer()

	opts := []audit.Option{
		audit.WithPolicy(a.cfg.Policy),
		audit.WithAnalysisConcurrency(a.cfg.Concurrency),
		audit.WithAnalysisTimeout(a.cfg.AnalysisTimeout),
		audit.WithLogger(a.logger),
	}
	if a.db != nil {
		opts = append(opts, audit.WithStore(a.db))
	}
	if a.collector != nil {
		opts = append(opts, audit.WithRecorder(a.collector))
	}
	svc := audit.NewService(factory, opts...)
	defer svc.Close()

	return svc.Run(ctx, target, crawlOptions(a.cfg, site))
}

// crawlOptions returns the crawl options of one site. The site's entry in
// the configuration file overrides the defaults; flags given on the
// command line override both.
func crawlOptions(cfg *config.Config, site config.SiteConfig) model.CrawlOptions {
	c := *cfg
	c.ApplySite(site)
	if cfg.Explicit["max-pages"] {
		c.MaxPages = cfg.MaxPages
	}
	if cfg.Explicit["max-depth"] {
		c.MaxDepth = cfg.MaxDepth
	}
	if cfg.Explicit["js"] {
		c.UseJavaScript = cfg.UseJavaScript
	}
	return model.CrawlOptions{
		MaxPages:            c.MaxPages,
		MaxDepth:            c.MaxDepth,
		UseJavaScript:       c.UseJavaScript,
		FollowSitemaps:      c.FollowSitemaps,
		TimeBudget:          c.TimeBudget,
		SimilarityThreshold: c.Policy.SimilarityThreshold,
	}
}

// newCrawlerFactory builds the renderers of one site and returns a factory
// for its crawlers. Pages are fetched statically and rendered in headless
// Chrome when they turn out to be script shells or --js is set. The
// returned function shuts the browser down.
func newCrawlerFactory(ctx context.Context, cfg *config.Config, site config.SiteConfig, target string, logger *slog.Logger) (audit.CrawlerFactory, func()) {
	client := &http.Client{Timeout: cfg.Timeout}

	static := render.NewStaticRenderer(client,
		render.WithUserAgent(cfg.UserAgent),
		render.WithMaxBodySize(cfg.MaxBodySize),
		render.WithHeaders(site.Headers),
		render.WithCookie(site.Cookie),
	)
	headless := render.NewHeadlessRenderer(ctx,
		render.WithHeadlessUserAgent(cfg.UserAgent),
		render.WithHeadlessHeaders(site.Headers, site.Cookie),
		render.WithProfileDir(profileDir(target)),
	)
	renderer := render.NewAdaptiveRenderer(static, headless,
		render.WithConcurrency(cfg.Concurrency, cfg.HeadlessConcurrency),
		render.WithLogger(logger),
	)

	factory := func(observer crawler.Observer) pipeline.Crawler {
		return crawler.NewSpider(renderer,
			crawler.WithHTTPClient(client),
			crawler.WithLogger(logger),
			crawler.WithObserver(observer),
			crawler.WithConcurrency(cfg.Concurrency),
			crawler.WithPageTimeout(cfg.Timeout),
			crawler.WithDelay(cfg.CrawlDelay),
			crawler.WithSpiderUserAgent(cfg.UserAgent),
			crawler.WithRespectRobots(cfg.RespectRobots),
			crawler.WithShingleSize(cfg.Policy.ShingleSize),
			crawler.WithSeedRetry(cfg.SeedRetries, cfg.SeedBackoff),
			crawler.WithIgnorePatterns(site.IgnorePatterns),
			crawler.WithFollowPatterns(site.FollowPatterns),
		)
	}
	return factory, headless.Close
}

// profileDir returns the browser profile directory of a site. Profiles are
// per host so that concurrent batch audits do not share a locked profile.
func profileDir(target string) string {
	host := strings.NewReplacer("://", "_", "/", "_", ":", "_").Replace(target)
	return filepath.Join(config.XDGCacheDir(), "chrome", host)
}
