package report

import (
	"math"
	"sort"
	"time"

	"github.com/nao1215/siteaudit/internal/model"
)

// Summary is the condensed view of an audit result shared by all formats.
type Summary struct {
	Site     string              `json:"site"`
	JobID    string              `json:"job_id"`
	Date     time.Time           `json:"date"`
	Score    float64             `json:"score"`
	Category model.ScoreCategory `json:"category"`
	Platform string              `json:"platform,omitempty"`

	PagesAnalyzed int `json:"pages_analyzed"`
	PagesSkipped  int `json:"pages_skipped"`

	Incomplete        bool     `json:"incomplete"`
	IncompleteReasons []string `json:"incomplete_reasons,omitempty"`

	// SeverityCounts counts issue groups per severity name.
	SeverityCounts map[string]int `json:"severity_counts"`
	IssueGroups    int            `json:"issue_groups"`
	Issues         int            `json:"issues"`

	// AnalyzerScores lists the mean analyzer scores sorted by name.
	AnalyzerScores []NamedScore `json:"analyzer_scores"`
}

// NamedScore is a score with its label.
type NamedScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// NewSummary condenses a result.
func NewSummary(result *model.AuditResult) *Summary {
	s := &Summary{
		Site:              result.Site,
		JobID:             result.JobID,
		Date:              result.StartedAt,
		Score:             result.Score,
		Category:          result.Category,
		Platform:          result.Platform,
		PagesAnalyzed:     len(result.Pages),
		PagesSkipped:      len(result.SkippedPages),
		Incomplete:        result.Incomplete,
		IncompleteReasons: result.IncompleteReasons,
		SeverityCounts:    make(map[string]int),
		IssueGroups:       len(result.IssueGroups),
		Issues:            result.IssueCount(),
	}
	for sev, n := range result.SeverityCounts() {
		s.SeverityCounts[sev.String()] = n
	}
	for name, score := range result.AnalyzerScores {
		s.AnalyzerScores = append(s.AnalyzerScores, NamedScore{Name: name, Score: score})
	}
	sort.Slice(s.AnalyzerScores, func(i, j int) bool {
		return s.AnalyzerScores[i].Name < s.AnalyzerScores[j].Name
	})
	return s
}

// Count returns the number of issue groups of a severity.
func (s *Summary) Count(sev model.Severity) int {
	return s.SeverityCounts[sev.String()]
}

// HistoryEntry is one past audit of a site.
type HistoryEntry struct {
	JobID       string              `json:"job_id"`
	StartedAt   time.Time           `json:"started_at"`
	Score       float64             `json:"score"`
	Category    model.ScoreCategory `json:"category"`
	Incomplete  bool                `json:"incomplete"`
	PageCount   int                 `json:"page_count"`
	IssueGroups int                 `json:"issue_groups"`
}

// History is the audit history of a site, most recent first.
type History struct {
	Site    string         `json:"site"`
	Entries []HistoryEntry `json:"entries"`

	// Delta is the score change between the two most recent audits. Nil
	// with fewer than two audits.
	Delta *float64 `json:"delta,omitempty"`
}

// NewHistory creates a History and computes the score delta. entries
// must be ordered most recent first.
func NewHistory(site string, entries []HistoryEntry) *History {
	h := &History{Site: site, Entries: entries}
	if h.Entries == nil {
		h.Entries = []HistoryEntry{}
	}
	if len(entries) >= 2 {
		d := math.Round((entries[0].Score-entries[1].Score)*10) / 10
		h.Delta = &d
	}
	return h
}

// severityOrder lists severities from most to least severe.
var severityOrder = []model.Severity{
	model.SeverityCritical,
	model.SeverityHigh,
	model.SeverityMedium,
	model.SeverityLow,
	model.SeverityInfo,
}

// groupsBySeverity returns the groups of one severity in priority order.
func groupsBySeverity(result *model.AuditResult, sev model.Severity) []model.IssueGroup {
	var out []model.IssueGroup
	for _, g := range result.IssueGroups {
		if g.Severity == sev {
			out = append(out, g)
		}
	}
	return out
}

// truncateString truncates a string to maxLen bytes with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
