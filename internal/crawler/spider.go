package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/siteaudit/internal/cms"
	"github.com/nao1215/siteaudit/internal/model"
	"github.com/nao1215/siteaudit/internal/render"
	"github.com/nao1215/siteaudit/internal/similarity"
)

// Defaults for a Spider.
const (
	DefaultMaxPages    = 50
	DefaultMaxDepth    = 3
	DefaultConcurrency = 4
	DefaultPageTimeout = 30 * time.Second
	DefaultSeedRetries = 2
	DefaultSeedBackoff = time.Second
	DefaultUserAgent   = render.DefaultUserAgent
)

// Page outcomes reported to an Observer.
const (
	OutcomeOK        = "ok"
	OutcomeDuplicate = "duplicate"
	OutcomeError     = "error"
	OutcomeSkipped   = "skipped"
)

// Observer receives crawl events.
type Observer interface {
	PageFetched(outcome string, rendered bool, d time.Duration)
	FrontierSize(n int)
}

type nopObserver struct{}

func (nopObserver) PageFetched(string, bool, time.Duration) {}
func (nopObserver) FrontierSize(int)                        {}

type multiObserver []Observer

func (m multiObserver) PageFetched(outcome string, rendered bool, d time.Duration) {
	for _, o := range m {
		o.PageFetched(outcome, rendered, d)
	}
}

func (m multiObserver) FrontierSize(n int) {
	for _, o := range m {
		o.FrontierSize(n)
	}
}

// Observers fans crawl events out to several observers. Nil observers are
// dropped.
func Observers(observers ...Observer) Observer {
	out := make(multiObserver, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

// Result is the outcome of one crawl.
type Result struct {
	// Seed is the URL the crawl started from.
	Seed string
	// Outputs holds one CrawlerOutput per attempted page in discovery
	// order, including error pages.
	Outputs   []*model.CrawlerOutput
	Structure model.SiteStructure
	Stats     model.CrawlStats
	// Platform is the detected publishing platform, or nil.
	Platform *cms.PlatformGuess
	// Discovered is the number of distinct URLs admitted to the frontier.
	Discovered int
}

// Spider crawls one site. A Spider holds configuration only; every Crawl
// call builds its own job, so one Spider may run several crawls at once.
type Spider struct {
	renderer render.Renderer

	// client fetches robots.txt and sitemaps.
	client   *http.Client
	detector *cms.Detector
	logger   *slog.Logger
	observer Observer

	concurrency   int
	pageTimeout   time.Duration
	delay         time.Duration
	userAgent     string
	respectRobots bool
	shingleSize   int
	seedRetries   int
	seedBackoff   time.Duration

	// ignorePatterns and followPatterns are URL path globs
	// (e.g. "/admin/*", "*.pdf").
	ignorePatterns []string
	followPatterns []string
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithHTTPClient sets the client used for robots.txt and sitemaps.
func WithHTTPClient(client *http.Client) SpiderOption {
	return func(s *Spider) {
		if client != nil {
			s.client = client
		}
	}
}

// WithDetector sets the CMS detector.
func WithDetector(d *cms.Detector) SpiderOption {
	return func(s *Spider) {
		s.detector = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver sets the receiver of crawl events.
func WithObserver(o Observer) SpiderOption {
	return func(s *Spider) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithConcurrency sets the number of fetch workers.
func WithConcurrency(n int) SpiderOption {
	return func(s *Spider) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithPageTimeout sets the per-page fetch timeout.
func WithPageTimeout(d time.Duration) SpiderOption {
	return func(s *Spider) {
		if d > 0 {
			s.pageTimeout = d
		}
	}
}

// WithDelay sets the minimum interval between fetches. A larger robots.txt
// Crawl-delay takes precedence.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithSpiderUserAgent sets the User-Agent for robots.txt and sitemaps and
// the agent robots.txt rules are matched against.
func WithSpiderUserAgent(ua string) SpiderOption {
	return func(s *Spider) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// WithRespectRobots enables or disables robots.txt Disallow rules.
func WithRespectRobots(respect bool) SpiderOption {
	return func(s *Spider) {
		s.respectRobots = respect
	}
}

// WithShingleSize sets the shingle size of the duplicate filter.
func WithShingleSize(k int) SpiderOption {
	return func(s *Spider) {
		s.shingleSize = k
	}
}

// WithSeedRetry sets how often a failing seed is retried and the initial
// backoff, which doubles on every attempt.
func WithSeedRetry(retries int, backoff time.Duration) SpiderOption {
	return func(s *Spider) {
		if retries >= 0 {
			s.seedRetries = retries
		}
		if backoff >= 0 {
			s.seedBackoff = backoff
		}
	}
}

// WithIgnorePatterns sets URL path patterns to skip.
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns restricts crawling to paths matching at least one
// pattern. Empty allows every path.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.followPatterns = patterns
	}
}

// NewSpider creates a Spider that fetches pages through renderer.
func NewSpider(renderer render.Renderer, opts ...SpiderOption) *Spider {
	s := &Spider{
		renderer:      renderer,
		client:        &http.Client{Timeout: DefaultPageTimeout},
		detector:      cms.NewDetector(),
		logger:        slog.Default(),
		observer:      nopObserver{},
		concurrency:   DefaultConcurrency,
		pageTimeout:   DefaultPageTimeout,
		userAgent:     DefaultUserAgent,
		respectRobots: true,
		shingleSize:   similarity.DefaultShingleSize,
		seedRetries:   DefaultSeedRetries,
		seedBackoff:   DefaultSeedBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Crawl discovers and fetches pages of the site at seed within the budgets
// of opts. It returns a *model.JobFatalError, together with the partial
// result, when the seed stays unreachable after retries. Budget stops are
// not errors; they are recorded in Result.Stats.
func (s *Spider) Crawl(ctx context.Context, seed string, opts model.CrawlOptions) (*Result, error) {
	start := time.Now()

	seedURL, err := parseSeed(seed)
	if err != nil {
		return nil, err
	}
	opts = withDefaults(opts)

	parent := ctx
	if opts.TimeBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.TimeBudget)
		defer cancel()
	}
	if opts.UseJavaScript {
		ctx = render.ForceJavaScript(ctx)
	}

	j := newJob(seedURL, opts, s)
	delay := s.delay
	if s.respectRobots || opts.FollowSitemaps {
		j.robots = fetchRobots(ctx, s.client, seedURL, s.userAgent)
		delay = max(delay, j.robots.crawlDelay())
	}
	j.setDelay(delay)

	s.logger.Info("crawl started", "seed", seedURL.String(), "max_pages", opts.MaxPages, "max_depth", opts.MaxDepth, "javascript", opts.UseJavaScript)

	if err := s.crawlSeed(ctx, j, seedURL); err != nil {
		res := j.finish(parent, ctx, seed, time.Since(start))
		if parent.Err() != nil {
			return res, parent.Err()
		}
		return res, err
	}

	if opts.FollowSitemaps {
		s.seedSitemaps(ctx, j)
	}

	g, gctx := errgroup.WithContext(ctx)
	stop := context.AfterFunc(gctx, j.wake)
	defer stop()
	for range s.concurrency {
		g.Go(func() error {
			s.work(gctx, j)
			return nil
		})
	}
	_ = g.Wait() // workers never fail; page errors are recorded in the job

	res := j.finish(parent, ctx, seed, time.Since(start))
	s.logger.Info("crawl finished",
		"seed", seed,
		"pages_crawled", res.Stats.PagesCrawled,
		"pages_skipped", res.Stats.PagesSkipped,
		"duplicates", res.Stats.DuplicatesFound,
		"errors", res.Stats.ErrorsEncountered,
		"stop_reason", res.Stats.StopReason,
		"duration", res.Stats.Duration)

	if parent.Err() != nil {
		return res, parent.Err()
	}
	return res, nil
}

// crawlSeed fetches the seed, retrying temporary failures with exponential
// backoff. A seed that stays unreachable aborts the job.
func (s *Spider) crawlSeed(ctx context.Context, j *job, seedURL *url.URL) error {
	key, err := NormalizeURL(seedURL.String())
	if err != nil {
		return err
	}
	j.mu.Lock()
	j.frontier.push(cleanURL(seedURL), key, 0, ClassHomepage)
	e, _ := j.frontier.pop()
	j.reserved++
	j.mu.Unlock()

	var (
		out      *model.CrawlerOutput
		attempts int
	)
	for attempt := 0; attempt <= s.seedRetries; attempt++ {
		if attempt > 0 {
			wait := s.seedBackoff << (attempt - 1)
			s.logger.Warn("seed fetch failed, retrying", "url", e.url, "attempt", attempt, "backoff", wait, "error", err)
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
			case <-timer.C:
			}
			if ctx.Err() != nil {
				err = ctx.Err()
				break
			}
		}
		attempts++
		out, err = s.fetchPage(ctx, j, e)
		if err == nil || !retryable(err) || ctx.Err() != nil {
			break
		}
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if out != nil {
		j.record(e, out, err)
	}
	if err != nil {
		j.stats.StopReason = model.StopFatal
		s.logger.Error("seed unreachable", "url", e.url, "attempts", attempts, "error", err)
		return &model.JobFatalError{URL: e.url, Attempts: attempts, Err: err}
	}

	// Links are internal relative to where the seed ended up.
	if final, perr := url.Parse(out.EffectiveURL()); perr == nil && final.Host != "" {
		j.siteHost = final.Host
		j.siteScheme = final.Scheme
	}
	return nil
}

func retryable(err error) bool {
	var fe *model.FetchError
	return errors.As(err, &fe) && fe.Temporary()
}

// seedSitemaps enqueues sitemap URLs ahead of discovered links.
func (s *Spider) seedSitemaps(ctx context.Context, j *job) {
	j.mu.Lock()
	base := &url.URL{Scheme: j.siteScheme, Host: j.siteHost}
	j.mu.Unlock()

	sm := discoverSitemaps(ctx, s.client, s.userAgent, base, j.robots.sitemapRefs())

	j.mu.Lock()
	defer j.mu.Unlock()
	j.structure.SitemapFound = len(sm.Sitemaps) > 0
	j.structure.SitemapURLs = sm.Sitemaps
	for _, u := range sm.URLs {
		j.enqueue(u, 1, ClassSitemap)
	}
	j.observer.FrontierSize(j.frontier.len())
	s.logger.Debug("sitemaps read", "sitemaps", len(sm.Sitemaps), "urls", len(sm.URLs))
}

func (s *Spider) work(ctx context.Context, j *job) {
	for {
		e, ok := j.next(ctx)
		if !ok {
			return
		}
		out, err := s.fetchPage(ctx, j, e)
		if err != nil {
			s.logger.Debug("page failed", "url", e.url, "error", err)
		}
		j.done(ctx, e, out, err)
	}
}

// fetchPage fetches and extracts one page. It always returns an output;
// on failure the output carries only the URL, status and error.
func (s *Spider) fetchPage(ctx context.Context, j *job, e entry) (*model.CrawlerOutput, error) {
	failed := func(resp *render.Response, err error) (*model.CrawlerOutput, error) {
		out := &model.CrawlerOutput{URL: e.url, Depth: e.depth, Error: err.Error()}
		if resp != nil {
			out.StatusCode = resp.StatusCode
			out.Headers = resp.Headers
			out.ResponseTime = resp.Duration
			if resp.FinalURL != e.url {
				out.FinalURL = resp.FinalURL
			}
		}
		return out, err
	}

	if err := j.limiter.Wait(ctx); err != nil {
		return failed(nil, err)
	}

	pctx, cancel := context.WithTimeout(ctx, s.pageTimeout)
	defer cancel()

	resp, err := s.renderer.Render(pctx, e.url)
	if err != nil {
		return failed(nil, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return failed(resp, &model.FetchError{URL: e.url, Op: "status", StatusCode: resp.StatusCode})
	}
	if ct := strings.ToLower(resp.Headers.Get("Content-Type")); ct != "" && !strings.Contains(ct, "html") {
		return failed(resp, fmt.Errorf("%w: %s", ErrNotHTML, ct))
	}

	out, err := Extract(resp)
	if err != nil {
		return failed(resp, err)
	}
	out.Depth = e.depth

	if guess := j.platform.Detect(resp.HTML, resp.Headers); guess != nil {
		out.Platform = guess.Name
	}

	h1 := ""
	if len(out.Headings.H1) > 0 {
		h1 = out.Headings.H1[0]
	}
	out.Role = Classify(out.EffectiveURL(), e.class == ClassHomepage, out.Title, h1)

	if dup := j.filter.Check(out.URL, out.Text); dup.IsDuplicate {
		out.MarkDuplicate(dup.SimilarURL, dup.Similarity)
	}
	return out, nil
}

func parseSeed(seed string) (*url.URL, error) {
	raw := strings.TrimSpace(seed)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty seed", ErrInvalidURL)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: %q has no host", ErrInvalidURL, seed)
	}
	return u, nil
}

func withDefaults(opts model.CrawlOptions) model.CrawlOptions {
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	if opts.MaxDepth < 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.SimilarityThreshold <= 0 || opts.SimilarityThreshold > 1 {
		opts.SimilarityThreshold = similarity.DefaultThreshold
	}
	return opts
}
