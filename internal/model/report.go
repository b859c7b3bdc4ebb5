package model

import (
	"fmt"
	"time"
)

// CrawlOptions bound one crawl job.
type CrawlOptions struct {
	MaxPages       int  `json:"max_pages"`
	MaxDepth       int  `json:"max_depth"`
	UseJavaScript  bool `json:"use_javascript"`
	FollowSitemaps bool `json:"follow_sitemaps"`

	// TimeBudget is the wall-clock budget of the crawl. Zero means none.
	TimeBudget time.Duration `json:"time_budget"`

	// SimilarityThreshold is the Jaccard similarity at or above which a
	// page counts as a duplicate.
	SimilarityThreshold float64 `json:"similarity_threshold"`
}

// CrawlStats summarizes a finished crawl.
type CrawlStats struct {
	PagesCrawled      int           `json:"pages_crawled"`
	PagesSkipped      int           `json:"pages_skipped"`
	DuplicatesFound   int           `json:"duplicates_found"`
	ErrorsEncountered int           `json:"errors_encountered"`
	HeadlessRenders   int           `json:"headless_renders"`
	ReachedMaxPages   bool          `json:"reached_max_pages"`
	TimeLimited       bool          `json:"time_limited"`
	StopReason        StopReason    `json:"stop_reason"`
	Duration          time.Duration `json:"duration"`
}

// Attempted is the number of pages that consumed page budget.
func (s CrawlStats) Attempted() int {
	return s.PagesCrawled + s.PagesSkipped
}

// AnalyzerResult is the outcome of one analyzer on one page.
type AnalyzerResult struct {
	Analyzer string        `json:"analyzer"`
	Score    float64       `json:"score"`
	Category ScoreCategory `json:"category"`
	Issues   []Issue       `json:"issues,omitempty"`

	// Factors holds the named sub-factor scores the score was built from.
	Factors map[string]float64 `json:"factors,omitempty"`
}

// PageScore is the combined analysis of one page.
type PageScore struct {
	URL       string           `json:"url"`
	Role      PageRole         `json:"role"`
	Duplicate bool             `json:"duplicate,omitempty"`
	Score     float64          `json:"score"`
	Category  ScoreCategory    `json:"category"`
	Results   []AnalyzerResult `json:"results"`
}

// SkippedPage is a page that consumed budget but was not analyzed.
type SkippedPage struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// AuditResult is the terminal artifact of one audit job.
type AuditResult struct {
	JobID       string    `json:"job_id"`
	Site        string    `json:"site"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`

	Options  CrawlOptions `json:"options"`
	Platform string       `json:"platform,omitempty"`

	Structure SiteStructure `json:"site_structure"`
	Stats     CrawlStats    `json:"stats"`

	Score          float64            `json:"score"`
	Category       ScoreCategory      `json:"category"`
	AnalyzerScores map[string]float64 `json:"analyzer_scores,omitempty"`

	Pages        []PageScore   `json:"pages"`
	IssueGroups  []IssueGroup  `json:"issue_groups"`
	SkippedPages []SkippedPage `json:"skipped_pages,omitempty"`

	// Incomplete flags that analysis may be incomplete.
	Incomplete        bool     `json:"incomplete"`
	IncompleteReasons []string `json:"incomplete_reasons,omitempty"`
}

// NewAuditResult creates an empty result for a job.
func NewAuditResult(jobID, site string) *AuditResult {
	return &AuditResult{
		JobID:          jobID,
		Site:           site,
		StartedAt:      time.Now(),
		Category:       ScorePoor,
		AnalyzerScores: make(map[string]float64),
		Pages:          []PageScore{},
		IssueGroups:    []IssueGroup{},
	}
}

// MarkIncomplete flags the result and records why. Duplicate reasons are
// ignored.
func (r *AuditResult) MarkIncomplete(reason string) {
	r.Incomplete = true
	for _, existing := range r.IncompleteReasons {
		if existing == reason {
			return
		}
	}
	r.IncompleteReasons = append(r.IncompleteReasons, reason)
}

// AddSkipped records a page that was not analyzed.
func (r *AuditResult) AddSkipped(url, reason string) {
	r.SkippedPages = append(r.SkippedPages, SkippedPage{URL: url, Reason: reason})
}

// IssueCount returns the number of raw issues across all groups.
func (r *AuditResult) IssueCount() int {
	n := 0
	for _, g := range r.IssueGroups {
		n += g.IssueCount
	}
	return n
}

// SeverityCounts returns the number of issue groups per severity.
func (r *AuditResult) SeverityCounts() map[Severity]int {
	counts := make(map[Severity]int, len(AllSeverities()))
	for _, g := range r.IssueGroups {
		counts[g.Severity]++
	}
	return counts
}

// Summary returns a one-line description of the result.
func (r *AuditResult) Summary() string {
	return fmt.Sprintf("%s: %.1f (%s), %d pages, %d issue groups",
		r.Site, r.Score, r.Category, len(r.Pages), len(r.IssueGroups))
}

// JobProgress is the externally visible state of an audit job.
type JobProgress struct {
	JobID        string    `json:"job_id"`
	Site         string    `json:"site"`
	Status       JobStatus `json:"status"`
	Phase        string    `json:"phase,omitempty"`
	PagesCrawled int       `json:"pages_crawled"`
	MaxPages     int       `json:"max_pages"`
	// Percent is an estimate in 0..100.
	Percent   float64   `json:"percent"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
