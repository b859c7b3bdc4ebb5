package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/siteaudit/internal/model"
)

// RunFunc audits one site.
type RunFunc func(ctx context.Context, seed string) (*model.AuditResult, error)

// BatchProcessor audits several sites concurrently.
type BatchProcessor struct {
	run         RunFunc
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent audits.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a BatchProcessor. run is called once per site
// and must not share job state between calls.
func NewBatchProcessor(run RunFunc, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		run:         run,
		concurrency: 2,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// BatchItem is the outcome of one site of a batch.
type BatchItem struct {
	Seed   string
	Result *model.AuditResult
	Err    error
}

// ProcessBatch audits seeds with bounded concurrency. Items are indexed
// like seeds; a failed audit does not stop the others. The error is the
// context error when the batch was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, seeds []string) ([]BatchItem, error) {
	items := make([]BatchItem, len(seeds))
	err := bp.ProcessBatchWithCallback(ctx, seeds, func(item BatchItem, index int) {
		items[index] = item
	})
	return items, err
}

// ProcessBatchWithCallback audits seeds and calls callback for every
// finished audit from the goroutine that ran it.
func (bp *BatchProcessor) ProcessBatchWithCallback(ctx context.Context, seeds []string, callback func(item BatchItem, index int)) error {
	bp.logger.Info("starting batch audit",
		"total_sites", len(seeds),
		"concurrency", bp.concurrency,
	)
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, seed := range seeds {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			bp.logger.Info("auditing site", "site", seed, "index", i+1, "total", len(seeds))
			result, err := bp.run(gctx, seed)
			if err != nil {
				bp.logger.Warn("audit failed", "site", seed, "error", err)
			}
			callback(BatchItem{Seed: seed, Result: result, Err: err}, i)
			return nil
		})
	}

	err := g.Wait()
	bp.logger.Info("batch audit complete",
		"total_sites", len(seeds),
		"elapsed", time.Since(start),
	)
	return err
}
