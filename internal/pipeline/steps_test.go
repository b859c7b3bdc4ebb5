package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nao1215/siteaudit/internal/crawler"
	"github.com/nao1215/siteaudit/internal/model"
)

type fakeCrawler struct {
	result *crawler.Result
	err    error
}

func (f *fakeCrawler) Crawl(context.Context, string, model.CrawlOptions) (*crawler.Result, error) {
	return f.result, f.err
}

func crawledPage(url string, role model.PageRole) *model.CrawlerOutput {
	return &model.CrawlerOutput{
		URL:          url,
		StatusCode:   200,
		Role:         role,
		Title:        "Acme Plumbing",
		Headings:     model.Headings{H1: []string{"Acme Plumbing"}, Outline: []int{1}},
		ResponseTime: 300_000_000,
		Text:         "Acme Plumbing fixes leaks.",
		WordCount:    4,
	}
}

func sampleCrawl() *crawler.Result {
	return &crawler.Result{
		Seed: "https://example.com/",
		Outputs: []*model.CrawlerOutput{
			crawledPage("https://example.com/", model.PageRoleHomepage),
			crawledPage("https://example.com/contact", model.PageRoleContact),
			{URL: "https://example.com/broken", StatusCode: 500, Error: "HTTP 500"},
			{URL: "https://example.com/odd"},
		},
		Structure: model.SiteStructure{
			Homepage:    "https://example.com/",
			ContactPage: "https://example.com/contact",
		},
		Stats: model.CrawlStats{PagesCrawled: 3, PagesSkipped: 1, ErrorsEncountered: 1},
	}
}

func TestAuditPipeline(t *testing.T) {
	t.Parallel()

	t.Run("runs every step and fills the result", func(t *testing.T) {
		t.Parallel()

		p := NewAuditPipeline(Components{
			Crawler: &fakeCrawler{result: sampleCrawl()},
			Logger:  quietLogger(),
		})
		audit := newTestAudit()
		if err := p.Execute(context.Background(), audit); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		r := audit.Result
		if len(audit.Steps) != 6 || audit.Steps[5] != StepCompleteness {
			t.Errorf("unexpected steps %v", audit.Steps)
		}
		if len(r.Pages) != 2 {
			t.Fatalf("expected 2 analyzed pages, got %d", len(r.Pages))
		}
		if r.Pages[0].Role != model.PageRoleHomepage || len(r.Pages[0].Results) != 4 {
			t.Errorf("unexpected first page %+v", r.Pages[0])
		}
		if len(r.SkippedPages) != 2 {
			t.Fatalf("expected 2 skipped pages, got %v", r.SkippedPages)
		}
		if r.SkippedPages[0].Reason != "HTTP 500" {
			t.Errorf("expected the fetch error as reason, got %q", r.SkippedPages[0].Reason)
		}
		if audit.ValidationFailures != 1 {
			t.Errorf("expected 1 validation failure, got %d", audit.ValidationFailures)
		}
		if r.Score <= 0 || r.Score > 100 {
			t.Errorf("score out of range: %v", r.Score)
		}
		if len(r.AnalyzerScores) != 4 {
			t.Errorf("expected 4 analyzer means, got %v", r.AnalyzerScores)
		}
		if len(r.IssueGroups) == 0 {
			t.Fatal("expected issue groups")
		}
		for i := 1; i < len(r.IssueGroups); i++ {
			if r.IssueGroups[i].Priority > r.IssueGroups[i-1].Priority {
				t.Errorf("groups not sorted by priority at %d", i)
			}
		}
		if r.Structure.ContactPage != "https://example.com/contact" {
			t.Errorf("structure not copied: %+v", r.Structure)
		}
		if !r.Incomplete {
			t.Fatal("expected an incomplete result")
		}
		if !hasReason(r, "1 pages failed validation") || !hasReason(r, "1 of 4 pages failed to load") {
			t.Errorf("unexpected reasons %v", r.IncompleteReasons)
		}
		if r.CompletedAt.IsZero() {
			t.Error("expected CompletedAt to be set")
		}
	})

	t.Run("unreachable seed aborts the audit", func(t *testing.T) {
		t.Parallel()

		fatal := &model.JobFatalError{URL: "https://example.com/", Attempts: 3, Err: errors.New("connection refused")}
		p := NewAuditPipeline(Components{
			Crawler: &fakeCrawler{result: &crawler.Result{Seed: "https://example.com/"}, err: fatal},
			Logger:  quietLogger(),
		})
		audit := newTestAudit()
		err := p.Execute(context.Background(), audit)
		if !model.IsJobFatal(err) {
			t.Fatalf("expected a job fatal error, got %v", err)
		}
		if audit.Result.Stats.StopReason != model.StopFatal {
			t.Errorf("expected fatal stop reason, got %q", audit.Result.Stats.StopReason)
		}
		if !audit.Result.Incomplete || !strings.Contains(audit.Result.IncompleteReasons[0], "unreachable") {
			t.Errorf("unexpected reasons %v", audit.Result.IncompleteReasons)
		}
		if len(audit.Steps) != 0 {
			t.Errorf("expected no completed steps, got %v", audit.Steps)
		}
	})
}

func TestCompletenessStep(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		stats  model.CrawlStats
		pages  int
		reason string
	}{
		{name: "page budget", stats: model.CrawlStats{PagesCrawled: 10, ReachedMaxPages: true}, pages: 1, reason: "page budget of 10 reached"},
		{name: "time budget", stats: model.CrawlStats{PagesCrawled: 3, ReachedMaxPages: true, TimeLimited: true}, pages: 1, reason: "time budget reached"},
		{name: "error ratio reached", stats: model.CrawlStats{PagesCrawled: 4, ErrorsEncountered: 1}, pages: 1, reason: "1 of 4 pages failed to load"},
		{name: "nothing analyzed", stats: model.CrawlStats{PagesCrawled: 1}, reason: "no page could be analyzed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			audit := newTestAudit()
			audit.Result.Stats = tt.stats
			audit.Result.Pages = make([]model.PageScore, tt.pages)
			if err := NewCompletenessStep(0.25).Do(context.Background(), audit); err != nil {
				t.Fatal(err)
			}
			if !hasReason(audit.Result, tt.reason) {
				t.Errorf("expected reason %q, got %v", tt.reason, audit.Result.IncompleteReasons)
			}
		})
	}

	t.Run("error ratio below threshold is complete", func(t *testing.T) {
		t.Parallel()

		audit := newTestAudit()
		audit.Result.Stats = model.CrawlStats{PagesCrawled: 5, ErrorsEncountered: 1}
		audit.Result.Pages = make([]model.PageScore, 4)
		if err := NewCompletenessStep(0.25).Do(context.Background(), audit); err != nil {
			t.Fatal(err)
		}
		if audit.Result.Incomplete {
			t.Errorf("unexpected reasons %v", audit.Result.IncompleteReasons)
		}
	})
}

func hasReason(r *model.AuditResult, reason string) bool {
	for _, got := range r.IncompleteReasons {
		if got == reason {
			return true
		}
	}
	return false
}
