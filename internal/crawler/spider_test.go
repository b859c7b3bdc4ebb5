package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/siteaudit/internal/model"
	"github.com/nao1215/siteaudit/internal/render"
)

// testSite serves HTML pages by path and counts requests per path.
type testSite struct {
	*httptest.Server

	mu       sync.Mutex
	pages    map[string]string
	extra    map[string]http.HandlerFunc
	requests map[string]int
}

func newTestSite(t *testing.T, pages map[string]string) *testSite {
	t.Helper()

	s := &testSite{pages: pages, extra: make(map[string]http.HandlerFunc), requests: make(map[string]int)}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests[r.URL.Path]++
		h, hasExtra := s.extra[r.URL.Path]
		body, hasPage := s.pages[r.URL.Path]
		s.mu.Unlock()

		switch {
		case hasExtra:
			h(w, r)
		case hasPage:
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, body)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *testSite) handle(path string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extra[path] = h
}

func (s *testSite) setPage(path, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[path] = body
}

func (s *testSite) count(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[path]
}

func (s *testSite) spider(opts ...SpiderOption) *Spider {
	base := []SpiderOption{
		WithHTTPClient(s.Client()),
		WithSeedRetry(1, time.Millisecond),
		WithConcurrency(1),
	}
	return NewSpider(render.NewStaticRenderer(s.Client()), append(base, opts...)...)
}

// page builds a document with distinct body text and the given links.
func page(title string, links ...string) string {
	var sb strings.Builder
	sb.WriteString("<html lang=\"en\"><head><title>" + title + "</title></head><body><main><h1>" + title + "</h1><p>")
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&sb, "%s paragraph %d talks about %s in detail. ", title, i, strings.ToLower(title))
	}
	sb.WriteString("</p>")
	for _, l := range links {
		sb.WriteString(`<a href="` + l + `">` + l + `</a> `)
	}
	sb.WriteString("</main></body></html>")
	return sb.String()
}

func opts(maxPages, maxDepth int) model.CrawlOptions {
	return model.CrawlOptions{MaxPages: maxPages, MaxDepth: maxDepth, FollowSitemaps: true}
}

// TestCrawlThreePageSite tests a small static site within budget.
func TestCrawlThreePageSite(t *testing.T) {
	t.Parallel()

	site := newTestSite(t, map[string]string{
		"/":        page("Home", "/about", "/contact"),
		"/about":   page("About", "/", "/contact"),
		"/contact": page("Contact", "/"),
	})

	res, err := site.spider().Crawl(context.Background(), site.URL, opts(10, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.Outputs) != 3 {
		t.Fatalf("expected 3 outputs, got %d", len(res.Outputs))
	}
	if res.Structure.Homepage != site.URL+"/" {
		t.Errorf("expected homepage %s/, got %q", site.URL, res.Structure.Homepage)
	}
	if res.Structure.ContactPage != site.URL+"/contact" {
		t.Errorf("expected contact page, got %q", res.Structure.ContactPage)
	}
	if res.Stats.ReachedMaxPages {
		t.Error("expected reachedMaxPages to be false")
	}
	if res.Stats.StopReason != model.StopFrontierEmpty {
		t.Errorf("expected frontier-empty, got %s", res.Stats.StopReason)
	}
	if res.Stats.PagesCrawled != 3 || res.Stats.PagesSkipped != 0 {
		t.Errorf("unexpected stats: %+v", res.Stats)
	}
	if res.Outputs[0].Role != model.PageRoleHomepage {
		t.Errorf("expected seed to be the homepage, got %s", res.Outputs[0].Role)
	}
	for _, p := range []string{"/", "/about", "/contact"} {
		if n := site.count(p); n != 1 {
			t.Errorf("expected %s to be fetched once, got %d", p, n)
		}
	}
}

// TestCrawlAllPagesFail tests that an unreachable seed aborts the job.
func TestCrawlAllPagesFail(t *testing.T) {
	t.Parallel()

	site := newTestSite(t, nil)
	site.handle("/", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	res, err := site.spider().Crawl(context.Background(), site.URL, opts(10, 3))

	var fatal *model.JobFatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("expected JobFatalError, got %v", err)
	}
	if fatal.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", fatal.Attempts)
	}
	if site.count("/") != 2 {
		t.Errorf("expected 2 requests to the seed, got %d", site.count("/"))
	}
	if res == nil {
		t.Fatal("expected partial result")
	}
	if res.Stats.PagesCrawled > 1 {
		t.Errorf("expected at most 1 crawled page, got %d", res.Stats.PagesCrawled)
	}
	if res.Stats.ErrorsEncountered < 1 {
		t.Error("expected errors to be counted")
	}
	if res.Stats.StopReason != model.StopFatal {
		t.Errorf("expected fatal stop, got %s", res.Stats.StopReason)
	}
}

// TestCrawlSeedRetry tests that a temporary seed failure is retried.
func TestCrawlSeedRetry(t *testing.T) {
	t.Parallel()

	site := newTestSite(t, nil)
	var calls atomic.Int32
	site.handle("/", func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, page("Home"))
	})

	res, err := site.spider().Crawl(context.Background(), site.URL, opts(10, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Stats.PagesCrawled != 1 || res.Stats.ErrorsEncountered != 0 {
		t.Errorf("unexpected stats: %+v", res.Stats)
	}
}

// TestCrawlSeedNotFoundIsNotRetried tests that a 404 seed fails at once.
func TestCrawlSeedNotFoundIsNotRetried(t *testing.T) {
	t.Parallel()

	site := newTestSite(t, nil)
	_, err := site.spider().Crawl(context.Background(), site.URL+"/missing", opts(10, 3))
	if !model.IsJobFatal(err) {
		t.Fatalf("expected JobFatalError, got %v", err)
	}
	if site.count("/missing") != 1 {
		t.Errorf("expected 1 request, got %d", site.count("/missing"))
	}
}

// TestCrawlTrailingSlashEquivalence tests that slash variants are crawled once.
func TestCrawlTrailingSlashEquivalence(t *testing.T) {
	t.Parallel()

	site := newTestSite(t, map[string]string{})
	site.setPage("/", page("Home", site.URL, site.URL+"/", "/#top", "/about", "/about/", "/about#team"))
	site.setPage("/about", page("About", "/"))
	site.setPage("/about/", page("About", "/"))

	res, err := site.spider().Crawl(context.Background(), site.URL, opts(10, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if site.count("/") != 1 {
		t.Errorf("expected the homepage to be fetched once, got %d", site.count("/"))
	}
	if got := site.count("/about") + site.count("/about/"); got != 1 {
		t.Errorf("expected /about to be fetched once, got %d", got)
	}
	if len(res.Outputs) != 2 {
		t.Errorf("expected 2 outputs, got %d", len(res.Outputs))
	}

	keys := make(map[string]bool)
	for _, o := range res.Outputs {
		key, err := NormalizeURL(o.URL)
		if err != nil {
			t.Fatalf("failed to normalize %s: %v", o.URL, err)
		}
		if keys[key] {
			t.Errorf("URL %s visited twice", key)
		}
		keys[key] = true
	}
}

// TestCrawlPageBudget tests the page budget under concurrency.
func TestCrawlPageBudget(t *testing.T) {
	t.Parallel()

	pages := map[string]string{}
	links := make([]string, 0, 30)
	for i := 0; i < 30; i++ {
		p := fmt.Sprintf("/page-%d", i)
		links = append(links, p)
		pages[p] = page(fmt.Sprintf("Page %d", i), "/")
	}
	pages["/"] = page("Home", links...)
	site := newTestSite(t, pages)

	for _, maxPages := range []int{1, 5, 12} {
		t.Run(fmt.Sprintf("max pages %d", maxPages), func(t *testing.T) {
			t.Parallel()

			res, err := site.spider(WithConcurrency(4)).Crawl(context.Background(), site.URL, opts(maxPages, 3))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Stats.Attempted() > maxPages {
				t.Errorf("expected at most %d pages, got %d", maxPages, res.Stats.Attempted())
			}
			if res.Stats.PagesCrawled != maxPages {
				t.Errorf("expected %d crawled pages, got %d", maxPages, res.Stats.PagesCrawled)
			}
			if !res.Stats.ReachedMaxPages || res.Stats.StopReason != model.StopMaxPages {
				t.Errorf("expected max-pages stop, got %+v", res.Stats)
			}
			if !res.Structure.BudgetExhausted {
				t.Error("expected budget exhausted")
			}
		})
	}
}

// TestCrawlSitemapPriority tests that sitemap URLs are fetched before links.
func TestCrawlSitemapPriority(t *testing.T) {
	t.Parallel()

	site := newTestSite(t, map[string]string{
		"/":         page("Home", "/linked"),
		"/linked":   page("Linked"),
		"/from-map": page("From Map"),
	})
	site.handle("/sitemap.xml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>%s/from-map</loc></url>
  <url><loc>https://elsewhere.example/page</loc></url>
</urlset>`, site.URL)
	})

	res, err := site.spider().Crawl(context.Background(), site.URL, opts(2, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Structure.SitemapFound {
		t.Error("expected sitemap to be found")
	}
	if len(res.Outputs) != 2 || res.Outputs[1].URL != site.URL+"/from-map" {
		t.Errorf("expected sitemap URL second, got %v", urls(res.Outputs))
	}
	if site.count("/linked") != 0 {
		t.Error("expected linked page to be left for lack of budget")
	}
}

// TestCrawlSitemapPriorityForLinkedPages tests that a sitemap URL the
// homepage already links to still gets sitemap priority.
func TestCrawlSitemapPriorityForLinkedPages(t *testing.T) {
	t.Parallel()

	site := newTestSite(t, map[string]string{
		"/":        page("Home", "/about", "/contact"),
		"/about":   page("About"),
		"/contact": page("Contact"),
		"/zeta":    page("Zeta"),
	})
	site.handle("/sitemap.xml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>%s/contact</loc></url>
  <url><loc>%s/zeta</loc></url>
</urlset>`, site.URL, site.URL)
	})

	res, err := site.spider().Crawl(context.Background(), site.URL, opts(2, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Outputs) != 2 || res.Outputs[1].URL != site.URL+"/contact" {
		t.Errorf("expected the first sitemap URL second, got %v", urls(res.Outputs))
	}
	if site.count("/about") != 0 || site.count("/zeta") != 0 {
		t.Error("expected the remaining pages to be left for lack of budget")
	}
}

// TestCrawlSitemapIndexFromRobots tests robots.txt sitemap references and
// sitemap indexes.
func TestCrawlSitemapIndexFromRobots(t *testing.T) {
	t.Parallel()

	site := newTestSite(t, map[string]string{
		"/":       page("Home"),
		"/hidden": page("Hidden"),
	})
	site.handle("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, "User-agent: *\nAllow: /\nSitemap: %s/maps/index.xml\n", site.URL)
	})
	site.handle("/maps/index.xml", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `<sitemapindex><sitemap><loc>%s/maps/pages.xml</loc></sitemap></sitemapindex>`, site.URL)
	})
	site.handle("/maps/pages.xml", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `<urlset><url><loc>%s/hidden</loc></url></urlset>`, site.URL)
	})

	res, err := site.spider().Crawl(context.Background(), site.URL, opts(10, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Structure.SitemapURLs) != 2 {
		t.Errorf("expected 2 sitemaps, got %v", res.Structure.SitemapURLs)
	}
	if site.count("/hidden") != 1 {
		t.Error("expected the sitemap-only page to be crawled")
	}
}

// TestCrawlDuplicatesAreNotExpanded tests the similarity gate.
func TestCrawlDuplicatesAreNotExpanded(t *testing.T) {
	t.Parallel()

	site := newTestSite(t, map[string]string{
		"/":                    page("Home", "/p1", "/p2"),
		"/p1":                  page("Listing"),
		"/p2":                  page("Listing", "/only-from-duplicate"),
		"/only-from-duplicate": page("Orphan"),
	})

	res, err := site.spider().Crawl(context.Background(), site.URL, opts(10, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Stats.DuplicatesFound != 1 {
		t.Errorf("expected 1 duplicate, got %d", res.Stats.DuplicatesFound)
	}
	if site.count("/only-from-duplicate") != 0 {
		t.Error("expected links of duplicate pages not to be followed")
	}

	var dup *model.CrawlerOutput
	for _, o := range res.Outputs {
		if o.IsDuplicate {
			dup = o
		}
	}
	if dup == nil || dup.URL != site.URL+"/p2" || dup.SimilarURL != site.URL+"/p1" {
		t.Fatalf("expected /p2 to duplicate /p1, got %+v", dup)
	}
	if dup.Similarity < 0.9 {
		t.Errorf("expected similarity >= 0.9, got %v", dup.Similarity)
	}
}

// TestCrawlErrorPagesContinue tests page-scoped failures.
func TestCrawlErrorPagesContinue(t *testing.T) {
	t.Parallel()

	site := newTestSite(t, map[string]string{
		"/":   page("Home", "/missing", "/ok"),
		"/ok": page("Fine"),
	})

	res, err := site.spider().Crawl(context.Background(), site.URL, opts(10, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Stats.PagesCrawled != 2 || res.Stats.PagesSkipped != 1 || res.Stats.ErrorsEncountered != 1 {
		t.Errorf("unexpected stats: %+v", res.Stats)
	}
	var missing *model.CrawlerOutput
	for _, o := range res.Outputs {
		if strings.HasSuffix(o.URL, "/missing") {
			missing = o
		}
	}
	if missing == nil || !missing.Failed() || missing.StatusCode != http.StatusNotFound {
		t.Errorf("expected failed 404 output, got %+v", missing)
	}
}

// TestCrawlRobotsDisallow tests robots.txt rules.
func TestCrawlRobotsDisallow(t *testing.T) {
	t.Parallel()

	newSite := func(t *testing.T) *testSite {
		t.Helper()
		site := newTestSite(t, map[string]string{
			"/":          page("Home", "/private/a", "/public"),
			"/private/a": page("Private"),
			"/public":    page("Public"),
		})
		site.handle("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
		})
		return site
	}

	t.Run("disallowed paths are skipped", func(t *testing.T) {
		t.Parallel()
		site := newSite(t)
		if _, err := site.spider().Crawl(context.Background(), site.URL, opts(10, 3)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if site.count("/private/a") != 0 {
			t.Error("expected disallowed page not to be fetched")
		}
		if site.count("/public") != 1 {
			t.Error("expected allowed page to be fetched")
		}
	})

	t.Run("rules can be ignored", func(t *testing.T) {
		t.Parallel()
		site := newSite(t)
		if _, err := site.spider(WithRespectRobots(false)).Crawl(context.Background(), site.URL, opts(10, 3)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if site.count("/private/a") != 1 {
			t.Error("expected page to be fetched")
		}
	})
}

// TestCrawlMaxDepth tests the depth budget.
func TestCrawlMaxDepth(t *testing.T) {
	t.Parallel()

	site := newTestSite(t, map[string]string{
		"/":  page("Home", "/a"),
		"/a": page("Level One", "/b", "/"),
		"/b": page("Level Two"),
	})

	res, err := site.spider().Crawl(context.Background(), site.URL, opts(10, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if site.count("/b") != 0 {
		t.Error("expected /b to be beyond the depth budget")
	}
	if res.Stats.StopReason != model.StopMaxDepth {
		t.Errorf("expected max-depth stop, got %s", res.Stats.StopReason)
	}
	if res.Stats.ReachedMaxPages {
		t.Error("expected reachedMaxPages to be false")
	}
}

// TestCrawlIgnorePatterns tests per-site path filters.
func TestCrawlIgnorePatterns(t *testing.T) {
	t.Parallel()

	site := newTestSite(t, map[string]string{
		"/":            page("Home", "/blog/post", "/admin/login", "/files/menu.pdf", "/services"),
		"/blog/post":   page("Post"),
		"/admin/login": page("Admin"),
		"/services":    page("Services"),
	})

	res, err := site.spider(WithIgnorePatterns([]string{"/admin/*"})).Crawl(context.Background(), site.URL, opts(10, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if site.count("/admin/login") != 0 || site.count("/files/menu.pdf") != 0 {
		t.Error("expected ignored paths not to be fetched")
	}
	if len(res.Structure.ServicePages) != 1 {
		t.Errorf("expected 1 service page, got %v", res.Structure.ServicePages)
	}
}

// TestCrawlTimeBudget tests that an expired time budget ends the crawl
// with the pages that finished.
func TestCrawlTimeBudget(t *testing.T) {
	t.Parallel()

	links := make([]string, 0, 40)
	pages := map[string]string{}
	for i := 0; i < 40; i++ {
		p := fmt.Sprintf("/slow-%d", i)
		links = append(links, p)
		pages[p] = page(fmt.Sprintf("Slow %d", i))
	}
	pages["/"] = page("Home", links...)
	site := newTestSite(t, pages)
	for p, body := range pages {
		if p == "/" {
			continue
		}
		site.handle(p, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(40 * time.Millisecond):
			case <-r.Context().Done():
				return
			}
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, body)
		})
	}

	o := opts(100, 3)
	o.TimeBudget = 300 * time.Millisecond
	res, err := site.spider().Crawl(context.Background(), site.URL, o)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Stats.StopReason != model.StopTimeBudget || !res.Stats.TimeLimited || !res.Stats.ReachedMaxPages {
		t.Errorf("expected time-budget stop, got %+v", res.Stats)
	}
	if res.Stats.PagesCrawled < 1 || res.Stats.PagesCrawled > 40 {
		t.Errorf("unexpected page count %d", res.Stats.PagesCrawled)
	}
}

// TestCrawlCancelled tests cooperative cancellation.
func TestCrawlCancelled(t *testing.T) {
	t.Parallel()

	site := newTestSite(t, map[string]string{"/": page("Home")})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := site.spider().Crawl(ctx, site.URL, opts(10, 3))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// TestCrawlInvalidSeed tests seed validation.
func TestCrawlInvalidSeed(t *testing.T) {
	t.Parallel()

	spider := NewSpider(render.NewStaticRenderer(nil))
	testCases := []struct {
		name string
		seed string
		want error
	}{
		{"unsupported scheme", "ftp://example.com", ErrUnsupportedScheme},
		{"empty", "", ErrInvalidURL},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := spider.Crawl(context.Background(), tc.seed, opts(1, 0))
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

// recordingObserver counts crawl events.
type recordingObserver struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (o *recordingObserver) PageFetched(outcome string, _ bool, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes[outcome]++
}

func (o *recordingObserver) FrontierSize(int) {}

// TestCrawlObserver tests that every recorded page is reported.
func TestCrawlObserver(t *testing.T) {
	t.Parallel()

	site := newTestSite(t, map[string]string{
		"/":  page("Home", "/a", "/gone"),
		"/a": page("Alpha"),
	})
	obs := &recordingObserver{outcomes: make(map[string]int)}
	second := &recordingObserver{outcomes: make(map[string]int)}

	spider := site.spider(WithObserver(Observers(obs, nil, second)))
	if _, err := spider.Crawl(context.Background(), site.URL, opts(10, 3)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, o := range []*recordingObserver{obs, second} {
		if o.outcomes[OutcomeOK] != 2 || o.outcomes[OutcomeError] != 1 {
			t.Errorf("unexpected outcomes: %v", o.outcomes)
		}
	}
}

func urls(outputs []*model.CrawlerOutput) []string {
	out := make([]string, 0, len(outputs))
	for _, o := range outputs {
		out = append(out, o.URL)
	}
	return out
}
