package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nao1215/siteaudit/internal/model"
)

// Usage kinds, appended to the provider name to form counter keys.
const (
	KindKeywords    = "keywords"
	KindCompetitors = "competitors"
	KindCritique    = "critique"
)

// Metered wraps providers and charges every call to a UsageCounter.
// A call is charged before it is made, so failed calls count too.
type Metered struct {
	keywords    KeywordProvider
	competitors CompetitorProvider
	critic      ContentCritic

	counter UsageCounter
	limit   int64
	logger  *slog.Logger

	// mu serializes the quota check with the charge.
	mu sync.Mutex
}

// MeteredOption configures Metered.
type MeteredOption func(*Metered)

// WithKeywordProvider sets the keyword provider.
func WithKeywordProvider(p KeywordProvider) MeteredOption {
	return func(m *Metered) { m.keywords = p }
}

// WithCompetitorProvider sets the competitor provider.
func WithCompetitorProvider(p CompetitorProvider) MeteredOption {
	return func(m *Metered) { m.competitors = p }
}

// WithContentCritic sets the content critic.
func WithContentCritic(c ContentCritic) MeteredOption {
	return func(m *Metered) { m.critic = c }
}

// WithLimit caps the calls per provider kind in the counter's period.
// Zero means unlimited.
func WithLimit(limit int64) MeteredOption {
	return func(m *Metered) {
		if limit >= 0 {
			m.limit = limit
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) MeteredOption {
	return func(m *Metered) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMetered creates a Metered. A nil counter counts in memory.
func NewMetered(counter UsageCounter, opts ...MeteredOption) *Metered {
	if counter == nil {
		counter = NewMemoryCounter()
	}
	m := &Metered{counter: counter, logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Key returns the counter key of a provider and usage kind.
func Key(providerName, kind string) string {
	return providerName + ":" + kind
}

// Usage returns the current count of a provider and usage kind.
func (m *Metered) Usage(ctx context.Context, providerName, kind string) (int64, error) {
	return m.counter.Get(ctx, Key(providerName, kind))
}

func (m *Metered) charge(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.limit > 0 {
		used, err := m.counter.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to read usage of %s: %w", key, err)
		}
		if used >= m.limit {
			m.logger.Warn("provider quota exceeded", "key", key, "used", used, "limit", m.limit)
			return fmt.Errorf("%s: %w (%d of %d)", key, ErrQuotaExceeded, used, m.limit)
		}
	}
	if _, err := m.counter.Increment(ctx, key, 1); err != nil {
		return fmt.Errorf("failed to record usage of %s: %w", key, err)
	}
	return nil
}

// Keywords calls the keyword provider.
func (m *Metered) Keywords(ctx context.Context, q KeywordQuery) ([]KeywordIdea, error) {
	if m.keywords == nil {
		return nil, fmt.Errorf("%s: %w", KindKeywords, ErrNoProvider)
	}
	if err := m.charge(ctx, Key(m.keywords.Name(), KindKeywords)); err != nil {
		return nil, err
	}
	return m.keywords.Keywords(ctx, q)
}

// Competitors calls the competitor provider.
func (m *Metered) Competitors(ctx context.Context, q CompetitorQuery) ([]Competitor, error) {
	if m.competitors == nil {
		return nil, fmt.Errorf("%s: %w", KindCompetitors, ErrNoProvider)
	}
	if err := m.charge(ctx, Key(m.competitors.Name(), KindCompetitors)); err != nil {
		return nil, err
	}
	return m.competitors.Competitors(ctx, q)
}

// Critique calls the content critic.
func (m *Metered) Critique(ctx context.Context, page *model.PageCrawlResult) (Critique, error) {
	if m.critic == nil {
		return Critique{}, fmt.Errorf("%s: %w", KindCritique, ErrNoProvider)
	}
	if err := m.charge(ctx, Key(m.critic.Name(), KindCritique)); err != nil {
		return Critique{}, err
	}
	return m.critic.Critique(ctx, page)
}

// HasCritic reports whether a content critic is configured.
func (m *Metered) HasCritic() bool {
	return m.critic != nil
}

// Name identifies Metered as a provider.
func (m *Metered) Name() string {
	return "metered"
}
