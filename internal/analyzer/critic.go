package analyzer

import (
	"context"
	"strings"

	"github.com/nao1215/siteaudit/internal/model"
	"github.com/nao1215/siteaudit/internal/provider"
)

// NameCritic is the name of the content critique analyzer.
const NameCritic = "critic"

// CriticPassScore is the critique score below which a page is flagged.
const CriticPassScore = 60.0

// CriticAnalyzer scores content with an external ContentCritic. It is not
// part of Default; register it on an engine when a critic is configured.
type CriticAnalyzer struct {
	critic provider.ContentCritic
}

// NewCriticAnalyzer creates a CriticAnalyzer.
func NewCriticAnalyzer(critic provider.ContentCritic) *CriticAnalyzer {
	return &CriticAnalyzer{critic: critic}
}

// Name returns the analyzer name.
func (a *CriticAnalyzer) Name() string {
	return NameCritic
}

// Category returns the issue category.
func (a *CriticAnalyzer) Category() model.IssueCategory {
	return model.CategoryContent
}

// Analyze asks the critic about the page. Pages without text, critic
// failures and exhausted quotas are scored neutrally.
func (a *CriticAnalyzer) Analyze(ctx context.Context, page *model.PageCrawlResult) model.AnalyzerResult {
	s := newScorecard(a, page)
	if strings.TrimSpace(page.Text) == "" {
		s.missing("content critique", 1)
		return s.result()
	}

	critique, err := a.critic.Critique(ctx, page)
	if err != nil {
		s.missing("content critique", 1)
		return s.result()
	}

	s.add("critique", 1, critique.Score)
	if critique.Score < CriticPassScore {
		summary := critique.Summary
		if summary == "" {
			summary = "no summary"
		}
		s.flag("weak_content", "Content review scored the page %.0f/100: %s", critique.Score, summary)
	}
	return s.result()
}
