package analyzer

import (
	"context"
	"errors"
	"testing"

	"github.com/nao1215/siteaudit/internal/model"
	"github.com/nao1215/siteaudit/internal/provider"
)

type stubCritic struct {
	critique provider.Critique
	err      error
	calls    int
}

func (c *stubCritic) Name() string { return "stub" }

func (c *stubCritic) Critique(context.Context, *model.PageCrawlResult) (provider.Critique, error) {
	c.calls++
	return c.critique, c.err
}

// TestCriticAnalyzer tests scoring with an external content critic.
func TestCriticAnalyzer(t *testing.T) {
	t.Parallel()

	t.Run("uses the critique score", func(t *testing.T) {
		t.Parallel()

		a := NewCriticAnalyzer(&stubCritic{critique: provider.Critique{Score: 85}})
		res := a.Analyze(context.Background(), goodPage())
		if res.Score != 85 {
			t.Errorf("expected 85, got %v", res.Score)
		}
		requireNoIssue(t, res, "weak_content")
	})

	t.Run("flags a weak critique", func(t *testing.T) {
		t.Parallel()

		a := NewCriticAnalyzer(&stubCritic{critique: provider.Critique{Score: 35, Summary: "generic copy"}})
		res := a.Analyze(context.Background(), goodPage())
		requireIssue(t, res, "weak_content")
	})

	t.Run("exhausted quota scores neutrally", func(t *testing.T) {
		t.Parallel()

		critic := &stubCritic{critique: provider.Critique{Score: 90}}
		metered := provider.NewMetered(provider.NewMemoryCounter(),
			provider.WithContentCritic(critic), provider.WithLimit(1))
		a := NewCriticAnalyzer(metered)

		first := a.Analyze(context.Background(), goodPage())
		second := a.Analyze(context.Background(), goodPage())
		if first.Score != 90 {
			t.Errorf("expected the first call to pass, got %v", first.Score)
		}
		if second.Score != NeutralScore {
			t.Errorf("expected a neutral score, got %v", second.Score)
		}
		requireMissingData(t, second, "content critique")
		if critic.calls != 1 {
			t.Errorf("expected 1 critic call, got %d", critic.calls)
		}
	})

	t.Run("critic errors score neutrally", func(t *testing.T) {
		t.Parallel()

		a := NewCriticAnalyzer(&stubCritic{err: errors.New("timeout")})
		res := a.Analyze(context.Background(), goodPage())
		if res.Score != NeutralScore {
			t.Errorf("expected a neutral score, got %v", res.Score)
		}
	})

	t.Run("pages without text are not sent", func(t *testing.T) {
		t.Parallel()

		critic := &stubCritic{critique: provider.Critique{Score: 90}}
		page := goodPage()
		page.Text = ""
		res := NewCriticAnalyzer(critic).Analyze(context.Background(), page)
		if critic.calls != 0 {
			t.Error("expected no critic call")
		}
		requireMissingData(t, res, "content critique")
	})
}
