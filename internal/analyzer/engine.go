package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/siteaudit/internal/model"
)

// DefaultTimeout bounds one analyzer run on one page.
const DefaultTimeout = 10 * time.Second

// Engine runs a registry of analyzers over pages.
type Engine struct {
	mu        sync.RWMutex
	analyzers []Analyzer

	timeout time.Duration
	logger  *slog.Logger

	// onFallback, if set, is called when an analyzer yields a neutral
	// result instead of completing.
	onFallback func(analyzer string, err error)
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithTimeout sets the per-page, per-analyzer timeout.
func WithTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithFallbackHook registers a function called whenever an analyzer
// panics or times out on a page.
func WithFallbackHook(hook func(analyzer string, err error)) EngineOption {
	return func(e *Engine) {
		e.onFallback = hook
	}
}

// NewEngine creates an Engine with no analyzers registered.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		analyzers: make([]Analyzer, 0),
		timeout:   DefaultTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewDefaultEngine creates an Engine with the built-in analyzers.
func NewDefaultEngine(opts ...EngineOption) *Engine {
	e := NewEngine(opts...)
	for _, a := range Default() {
		e.Register(a)
	}
	return e
}

// Register adds an analyzer. Results are reported in registration order.
func (e *Engine) Register(a Analyzer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.analyzers = append(e.analyzers, a)
}

// Analyzers returns the registered analyzers.
func (e *Engine) Analyzers() []Analyzer {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Analyzer, len(e.analyzers))
	copy(out, e.analyzers)
	return out
}

// AnalyzePage runs every analyzer on page concurrently and returns once all
// of them finished. An analyzer that panics or exceeds the timeout yields
// a neutral result with a missing-data issue.
func (e *Engine) AnalyzePage(ctx context.Context, page *model.PageCrawlResult) []model.AnalyzerResult {
	analyzers := e.Analyzers()
	results := make([]model.AnalyzerResult, len(analyzers))

	var g errgroup.Group
	for i, a := range analyzers {
		g.Go(func() error {
			results[i] = e.run(ctx, a, page)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // run never fails

	return results
}

// AnalyzeAll analyzes pages with at most concurrency pages in flight.
// Results are indexed like pages. It returns the context error when
// cancelled before every page was analyzed.
func (e *Engine) AnalyzeAll(ctx context.Context, pages []*model.PageCrawlResult, concurrency int) ([][]model.AnalyzerResult, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	results := make([][]model.AnalyzerResult, len(pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, page := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.AnalyzePage(gctx, page)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

func (e *Engine) run(ctx context.Context, a Analyzer, page *model.PageCrawlResult) model.AnalyzerResult {
	actx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type outcome struct {
		result model.AnalyzerResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: %v", ErrAnalyzerPanic, r)}
			}
		}()
		done <- outcome{result: a.Analyze(actx, page)}
	}()

	var err error
	select {
	case o := <-done:
		if o.err == nil {
			return o.result
		}
		err = o.err
	case <-actx.Done():
		err = ErrAnalyzerTimeout
		if ctx.Err() != nil {
			err = ctx.Err()
		}
	}

	e.logger.Warn("analyzer did not complete",
		"analyzer", a.Name(),
		"url", page.URL,
		"error", err,
	)
	if e.onFallback != nil {
		e.onFallback(a.Name(), err)
	}
	return neutralResult(a, page)
}
