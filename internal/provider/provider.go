package provider

import (
	"context"

	"github.com/nao1215/siteaudit/internal/model"
)

// KeywordQuery asks for keyword ideas around a seed term.
type KeywordQuery struct {
	Seed     string
	Location string
	Limit    int
}

// KeywordIdea is one keyword with its search metrics.
type KeywordIdea struct {
	Keyword      string  `json:"keyword"`
	SearchVolume int     `json:"search_volume"`
	Difficulty   float64 `json:"difficulty"`
	CPC          float64 `json:"cpc"`
}

// KeywordProvider returns keyword metrics.
type KeywordProvider interface {
	Name() string
	Keywords(ctx context.Context, q KeywordQuery) ([]KeywordIdea, error)
}

// CompetitorQuery asks for the sites ranking for a keyword.
type CompetitorQuery struct {
	Domain   string
	Keyword  string
	Location string
	Limit    int
}

// Competitor is one ranking result.
type Competitor struct {
	Domain string `json:"domain"`
	URL    string `json:"url"`
	Title  string `json:"title,omitempty"`
	Rank   int    `json:"rank"`
}

// CompetitorProvider returns competitor lists.
type CompetitorProvider interface {
	Name() string
	Competitors(ctx context.Context, q CompetitorQuery) ([]Competitor, error)
}

// Critique is an external assessment of a page's content.
type Critique struct {
	// Score is in 0..100.
	Score       float64  `json:"score"`
	Summary     string   `json:"summary"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// ContentCritic reviews page content.
type ContentCritic interface {
	Name() string
	Critique(ctx context.Context, page *model.PageCrawlResult) (Critique, error)
}

// UsageCounter counts provider calls. Implementations must be safe for
// concurrent use.
type UsageCounter interface {
	// Increment adds n to key and returns the new value.
	Increment(ctx context.Context, key string, n int64) (int64, error)
	// Get returns the current value of key.
	Get(ctx context.Context, key string) (int64, error)
}
