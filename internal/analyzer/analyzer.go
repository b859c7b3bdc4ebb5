package analyzer

import (
	"context"
	"math"
	"strings"

	"github.com/nao1215/siteaudit/internal/model"
)

// Analyzer names. They double as the keys of the analyzer weights in the
// scoring policy.
const (
	NameContent   = "content"
	NameTechnical = "technical"
	NameLocal     = "local"
	NameUX        = "ux"
)

// NeutralScore is the score of a factor or analyzer that could not be
// evaluated.
const NeutralScore = 50.0

// Analyzer scores one aspect of a page.
//
// Analyze must not modify the page and must not return an error: input it
// cannot evaluate is reported as a missing-data issue with a neutral
// factor score.
type Analyzer interface {
	// Name returns the analyzer's name for weighting and reporting.
	Name() string

	// Category returns the issue category the analyzer reports under.
	Category() model.IssueCategory

	// Analyze scores the page.
	Analyze(ctx context.Context, page *model.PageCrawlResult) model.AnalyzerResult
}

// Default returns the built-in analyzers in reporting order.
func Default() []Analyzer {
	return []Analyzer{
		NewContentAnalyzer(),
		NewTechnicalAnalyzer(),
		NewLocalAnalyzer(),
		NewUXAnalyzer(),
	}
}

// scorecard accumulates weighted factor scores and issues for one analyzer
// run on one page.
type scorecard struct {
	analyzer string
	category model.IssueCategory
	url      string

	sum     float64
	weights float64
	factors map[string]float64
	issues  []model.Issue
}

func newScorecard(a Analyzer, page *model.PageCrawlResult) *scorecard {
	return &scorecard{
		analyzer: a.Name(),
		category: a.Category(),
		url:      page.URL,
		factors:  make(map[string]float64),
		issues:   make([]model.Issue, 0),
	}
}

// add records a factor score, clamped to 0..100.
func (s *scorecard) add(factor string, weight, score float64) {
	score = clamp(score)
	s.factors[factor] = score
	s.sum += weight * score
	s.weights += weight
}

// missing scores a factor neutrally and reports the missing data. The
// factor is described in words; its key uses underscores.
func (s *scorecard) missing(factor string, weight float64) {
	s.add(strings.ReplaceAll(factor, " ", "_"), weight, NeutralScore)
	err := &model.AnalyzerDataError{Analyzer: s.analyzer, Factor: factor, URL: s.url}
	s.issues = append(s.issues, err.Issue(s.category))
}

// flag records an issue from the catalog.
func (s *scorecard) flag(issueType, template string, args ...any) {
	issue := model.NewIssue(issueType, s.url, template, args...)
	issue.Analyzer = s.analyzer
	s.issues = append(s.issues, issue)
}

func (s *scorecard) result() model.AnalyzerResult {
	score := NeutralScore
	if s.weights > 0 {
		score = round1(s.sum / s.weights)
	}
	return model.AnalyzerResult{
		Analyzer: s.analyzer,
		Score:    score,
		Category: model.CategoryFor(score),
		Issues:   s.issues,
		Factors:  s.factors,
	}
}

// neutralResult is the result of an analyzer that could not run to
// completion on a page.
func neutralResult(a Analyzer, page *model.PageCrawlResult) model.AnalyzerResult {
	s := newScorecard(a, page)
	s.missing("analyzer "+a.Name(), 1)
	return s.result()
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func round1(v float64) float64 {
	return math.Round(clamp(v)*10) / 10
}

// ratio returns part/whole as a 0..100 score. An empty whole scores 100.
func ratio(part, whole int) float64 {
	if whole <= 0 {
		return 100
	}
	return 100 * float64(part) / float64(whole)
}
