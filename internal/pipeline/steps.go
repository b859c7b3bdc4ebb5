package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/siteaudit/internal/analyzer"
	"github.com/nao1215/siteaudit/internal/config"
	"github.com/nao1215/siteaudit/internal/crawler"
	"github.com/nao1215/siteaudit/internal/issues"
	"github.com/nao1215/siteaudit/internal/model"
	"github.com/nao1215/siteaudit/internal/normalizer"
	"github.com/nao1215/siteaudit/internal/score"
)

// Step names.
const (
	StepCrawl        = "crawl"
	StepNormalize    = "normalize"
	StepAnalyze      = "analyze"
	StepScore        = "score"
	StepGroup        = "group"
	StepCompleteness = "completeness"
)

// Crawler crawls one site. *crawler.Spider implements it.
type Crawler interface {
	Crawl(ctx context.Context, seed string, opts model.CrawlOptions) (*crawler.Result, error)
}

// CrawlStep crawls the site and records the site structure and crawl
// statistics.
type CrawlStep struct {
	crawler Crawler
	logger  *slog.Logger
}

// NewCrawlStep creates a crawl step.
func NewCrawlStep(c Crawler, logger *slog.Logger) *CrawlStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &CrawlStep{crawler: c, logger: logger}
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return StepCrawl
}

// Do executes the crawl. A partial crawl result is kept when the seed is
// unreachable or the audit is cancelled.
func (s *CrawlStep) Do(ctx context.Context, audit *Audit) error {
	res, err := s.crawler.Crawl(ctx, audit.Seed, audit.Options)
	if res != nil {
		audit.Crawl = res
		audit.Result.Structure = res.Structure
		audit.Result.Stats = res.Stats
		if res.Platform != nil {
			audit.Result.Platform = res.Platform.Name
			if res.Platform.Version != "" {
				audit.Result.Platform += " " + res.Platform.Version
			}
		}
	}
	if err == nil {
		return nil
	}

	var fatal *model.JobFatalError
	switch {
	case errors.As(err, &fatal):
		audit.Result.Stats.StopReason = model.StopFatal
		audit.Result.MarkIncomplete(fatal.Error())
	case errors.Is(err, context.Canceled):
		audit.Result.MarkIncomplete("audit cancelled during crawl")
	default:
		audit.Result.MarkIncomplete("crawl failed: " + err.Error())
	}
	return err
}

// NormalizeStep turns successful crawler outputs into analyzer input.
// Failed and invalid pages are recorded as skipped.
type NormalizeStep struct {
	normalizer *normalizer.Normalizer
	logger     *slog.Logger
}

// NewNormalizeStep creates a normalize step.
func NewNormalizeStep(n *normalizer.Normalizer, logger *slog.Logger) *NormalizeStep {
	if n == nil {
		n = normalizer.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NormalizeStep{normalizer: n, logger: logger}
}

// Name returns the step name.
func (s *NormalizeStep) Name() string {
	return StepNormalize
}

// Do normalizes every crawled page.
func (s *NormalizeStep) Do(_ context.Context, audit *Audit) error {
	if audit.Crawl == nil {
		return nil
	}
	for _, out := range audit.Crawl.Outputs {
		if out.Failed() {
			audit.Result.AddSkipped(out.URL, out.Error)
			continue
		}
		page, err := s.normalizer.Normalize(out)
		if err != nil {
			audit.ValidationFailures++
			s.logger.Warn("page failed validation", "url", out.URL, "error", err)
			audit.Result.AddSkipped(out.URL, err.Error())
			continue
		}
		audit.Pages = append(audit.Pages, page)
	}
	return nil
}

// AnalyzeStep runs the analyzer engine on every page and computes page
// scores.
type AnalyzeStep struct {
	engine      *analyzer.Engine
	weights     score.Weights
	concurrency int
}

// NewAnalyzeStep creates an analyze step analyzing up to concurrency pages
// at once.
func NewAnalyzeStep(engine *analyzer.Engine, weights score.Weights, concurrency int) *AnalyzeStep {
	return &AnalyzeStep{engine: engine, weights: weights, concurrency: concurrency}
}

// Name returns the step name.
func (s *AnalyzeStep) Name() string {
	return StepAnalyze
}

// Do analyzes the pages.
func (s *AnalyzeStep) Do(ctx context.Context, audit *Audit) error {
	results, err := s.engine.AnalyzeAll(ctx, audit.Pages, s.concurrency)
	if err != nil {
		audit.Result.MarkIncomplete("audit cancelled during analysis")
		return err
	}
	pages := make([]model.PageScore, 0, len(audit.Pages))
	for i, page := range audit.Pages {
		pages = append(pages, score.Page(page, results[i], s.weights))
	}
	audit.Result.Pages = pages
	return nil
}

// ScoreStep computes the site score and the per-analyzer means.
type ScoreStep struct {
	roles score.RoleWeights
}

// NewScoreStep creates a score step.
func NewScoreStep(roles score.RoleWeights) *ScoreStep {
	return &ScoreStep{roles: roles}
}

// Name returns the step name.
func (s *ScoreStep) Name() string {
	return StepScore
}

// Do aggregates the page scores.
func (s *ScoreStep) Do(_ context.Context, audit *Audit) error {
	site := score.AggregateSite(audit.Result.Pages, s.roles)
	audit.Result.Score = site.Value
	audit.Result.Category = site.Category
	audit.Result.AnalyzerScores = score.AnalyzerMeans(audit.Result.Pages)
	return nil
}

// GroupStep merges the issues of all pages into prioritized groups.
type GroupStep struct {
	policy issues.Policy
}

// NewGroupStep creates a group step.
func NewGroupStep(policy issues.Policy) *GroupStep {
	return &GroupStep{policy: policy}
}

// Name returns the step name.
func (s *GroupStep) Name() string {
	return StepGroup
}

// Do groups the issues in discovery order: page order, then analyzer
// order, then the order each analyzer reported them.
func (s *GroupStep) Do(_ context.Context, audit *Audit) error {
	roles := make(map[string]model.PageRole, len(audit.Result.Pages))
	var all []model.Issue
	for _, p := range audit.Result.Pages {
		roles[p.URL] = p.Role
		for _, r := range p.Results {
			all = append(all, r.Issues...)
		}
	}
	audit.Result.IssueGroups = issues.Group(all, roles, s.policy)
	return nil
}

// CompletenessStep flags results whose analysis may be incomplete.
type CompletenessStep struct {
	errorRatio float64
}

// NewCompletenessStep creates a completeness step. A result is flagged
// when the share of failed pages reaches errorRatio.
func NewCompletenessStep(errorRatio float64) *CompletenessStep {
	return &CompletenessStep{errorRatio: errorRatio}
}

// Name returns the step name.
func (s *CompletenessStep) Name() string {
	return StepCompleteness
}

// Do records the incompleteness reasons and completes the result.
func (s *CompletenessStep) Do(_ context.Context, audit *Audit) error {
	r := audit.Result
	stats := r.Stats

	if stats.ReachedMaxPages && !stats.TimeLimited {
		r.MarkIncomplete(fmt.Sprintf("page budget of %d reached", audit.Options.MaxPages))
	}
	if stats.TimeLimited {
		r.MarkIncomplete("time budget reached")
	}
	if attempted := stats.Attempted(); stats.ErrorsEncountered > 0 && attempted > 0 &&
		float64(stats.ErrorsEncountered) >= s.errorRatio*float64(attempted) {
		r.MarkIncomplete(fmt.Sprintf("%d of %d pages failed to load", stats.ErrorsEncountered, attempted))
	}
	if audit.ValidationFailures > 0 {
		r.MarkIncomplete(fmt.Sprintf("%d pages failed validation", audit.ValidationFailures))
	}
	if len(r.Pages) == 0 {
		r.MarkIncomplete("no page could be analyzed")
	}
	r.CompletedAt = time.Now()
	return nil
}

// Components are the collaborators of a standard audit pipeline.
type Components struct {
	Crawler    Crawler
	Normalizer *normalizer.Normalizer
	Engine     *analyzer.Engine
	Policy     config.Policy

	// AnalysisConcurrency bounds the pages analyzed at once.
	AnalysisConcurrency int

	Logger *slog.Logger
}

// NewAuditPipeline builds the standard audit pipeline.
func NewAuditPipeline(c Components, opts ...Option) *Pipeline {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Engine == nil {
		c.Engine = analyzer.NewDefaultEngine(analyzer.WithLogger(c.Logger))
	}
	if c.Policy.SeverityWeights == nil {
		c.Policy = config.DefaultPolicy().Merge(c.Policy)
	}
	weights, roles := score.FromPolicy(c.Policy)

	p := New(append([]Option{WithLogger(c.Logger)}, opts...)...)
	p.AddSteps(
		NewCrawlStep(c.Crawler, c.Logger),
		NewNormalizeStep(c.Normalizer, c.Logger),
		NewAnalyzeStep(c.Engine, weights, c.AnalysisConcurrency),
		NewScoreStep(roles),
		NewGroupStep(issues.FromPolicy(c.Policy)),
		NewCompletenessStep(c.Policy.IncompleteErrorRatio),
	)
	return p
}
