package crawler

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/nao1215/siteaudit/internal/cms"
	"github.com/nao1215/siteaudit/internal/model"
	"github.com/nao1215/siteaudit/internal/similarity"
)

// job is the state of one crawl. It is owned by a single Crawl call and
// shared by that call's workers; mu guards everything below it.
type job struct {
	maxPages int
	maxDepth int

	siteHost      string
	siteScheme    string
	paths         pathFilter
	robots        *robotsPolicy
	respectRobots bool

	limiter  *rate.Limiter
	filter   *similarity.Filter
	platform *cms.Cache
	observer Observer

	mu          sync.Mutex
	cond        *sync.Cond
	frontier    *frontier
	reserved    int
	inflight    int
	depthPruned bool
	structure   model.SiteStructure
	stats       model.CrawlStats
	outputs     []orderedOutput
}

type orderedOutput struct {
	order int
	out   *model.CrawlerOutput
}

func newJob(seed *url.URL, opts model.CrawlOptions, s *Spider) *job {
	j := &job{
		maxPages:      opts.MaxPages,
		maxDepth:      opts.MaxDepth,
		siteHost:      seed.Host,
		siteScheme:    seed.Scheme,
		paths:         pathFilter{ignore: s.ignorePatterns, follow: s.followPatterns},
		respectRobots: s.respectRobots,
		limiter:       rate.NewLimiter(rate.Inf, 0),
		filter:        similarity.NewFilter(opts.SimilarityThreshold, s.shingleSize),
		platform:      cms.NewCache(s.detector),
		observer:      s.observer,
		frontier:      newFrontier(),
	}
	j.cond = sync.NewCond(&j.mu)
	return j
}

// setDelay spaces fetches by at least d.
func (j *job) setDelay(d time.Duration) {
	if d > 0 {
		j.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// wake releases workers blocked in next.
func (j *job) wake() {
	j.mu.Lock()
	j.cond.Broadcast()
	j.mu.Unlock()
}

// enqueue admits a discovered URL if it is on the site, allowed by the
// path filter and robots.txt, not seen before and within the depth budget.
// The caller holds mu.
func (j *job) enqueue(raw string, depth int, class Class) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || !sameSite(u.Host, j.siteHost) {
		return
	}
	if !j.paths.allows(u.Path) {
		return
	}
	key, err := NormalizeURL(raw)
	if err != nil {
		return
	}
	if j.frontier.has(key) {
		j.frontier.promote(key, depth, class)
		return
	}
	if j.respectRobots && !j.robots.allowed(robotsPath(u)) {
		return
	}
	if depth > j.maxDepth {
		j.depthPruned = true
		return
	}
	j.frontier.push(cleanURL(u), key, depth, class)
}

// next reserves a page slot and returns the next entry. It blocks while
// the frontier is empty and other workers may still add to it. It returns
// false once the page budget is used, the context is done or no work is
// left.
func (j *job) next(ctx context.Context) (entry, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	for {
		if ctx.Err() != nil || j.reserved >= j.maxPages {
			return entry{}, false
		}
		if e, ok := j.frontier.pop(); ok {
			j.reserved++
			j.inflight++
			j.observer.FrontierSize(j.frontier.len())
			return e, true
		}
		if j.inflight == 0 {
			return entry{}, false
		}
		j.cond.Wait()
	}
}

// done records the outcome of an entry returned by next. Pages that failed
// because the job itself was cancelled are dropped.
func (j *job) done(ctx context.Context, e entry, out *model.CrawlerOutput, err error) {
	j.mu.Lock()
	defer func() {
		j.cond.Broadcast()
		j.mu.Unlock()
	}()

	j.inflight--
	if err != nil && ctx.Err() != nil {
		return
	}
	j.record(e, out, err)
}

// record stores an output and expands its links. The caller holds mu.
func (j *job) record(e entry, out *model.CrawlerOutput, err error) {
	j.outputs = append(j.outputs, orderedOutput{order: e.order, out: out})

	if err != nil {
		j.stats.PagesSkipped++
		outcome := OutcomeSkipped
		if isFetchError(err) {
			j.stats.ErrorsEncountered++
			outcome = OutcomeError
		}
		j.observer.PageFetched(outcome, false, out.ResponseTime)
		return
	}

	j.stats.PagesCrawled++
	if out.Rendered {
		j.stats.HeadlessRenders++
	}
	if out.FinalURL != "" {
		if key, err := NormalizeURL(out.FinalURL); err == nil {
			j.frontier.markSeen(key)
		}
	}
	j.structure.Add(out.Role, out.URL)

	if out.IsDuplicate {
		j.stats.DuplicatesFound++
		j.observer.PageFetched(OutcomeDuplicate, out.Rendered, out.ResponseTime)
		return
	}
	j.observer.PageFetched(OutcomeOK, out.Rendered, out.ResponseTime)

	for _, l := range out.InternalLinks {
		j.enqueue(l.Href, e.depth+1, ClassLink)
	}
	j.observer.FrontierSize(j.frontier.len())
}

// finish decides the stop reason and assembles the result.
func (j *job) finish(parent, ctx context.Context, seed string, elapsed time.Duration) *Result {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.stats.StopReason == model.StopNone {
		switch {
		case parent.Err() != nil:
			j.stats.StopReason = model.StopCancelled
		case ctx.Err() != nil:
			j.stats.StopReason = model.StopTimeBudget
		case j.reserved >= j.maxPages && j.frontier.len() > 0:
			j.stats.StopReason = model.StopMaxPages
		case j.depthPruned:
			j.stats.StopReason = model.StopMaxDepth
		default:
			j.stats.StopReason = model.StopFrontierEmpty
		}
	}
	j.stats.TimeLimited = j.stats.StopReason == model.StopTimeBudget
	j.stats.ReachedMaxPages = j.stats.StopReason == model.StopMaxPages || j.stats.TimeLimited
	j.stats.Duration = elapsed
	j.structure.BudgetExhausted = j.stats.StopReason.IsBudgetExceeded()

	sort.SliceStable(j.outputs, func(a, b int) bool {
		return j.outputs[a].order < j.outputs[b].order
	})
	outputs := make([]*model.CrawlerOutput, 0, len(j.outputs))
	for _, o := range j.outputs {
		outputs = append(outputs, o.out)
	}

	return &Result{
		Seed:       seed,
		Outputs:    outputs,
		Structure:  j.structure,
		Stats:      j.stats,
		Platform:   j.platform.Detect("", nil),
		Discovered: j.frontier.seenCount(),
	}
}

func isFetchError(err error) bool {
	var fe *model.FetchError
	return errors.As(err, &fe)
}

func robotsPath(u *url.URL) string {
	p := u.EscapedPath()
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}
