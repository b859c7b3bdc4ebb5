package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/siteaudit/internal/crawler"
	"github.com/nao1215/siteaudit/internal/model"
)

// Audit is the state shared by the steps of one audit run.
type Audit struct {
	// Seed is the site URL to audit.
	Seed string

	// Options bound the crawl.
	Options model.CrawlOptions

	// Result accumulates the audit outcome. It is returned even when a
	// step fails, so it must never be nil.
	Result *model.AuditResult

	// Crawl is the raw crawl outcome.
	Crawl *crawler.Result

	// Pages are the normalized pages, in crawl order.
	Pages []*model.PageCrawlResult

	// ValidationFailures counts crawled pages rejected by the normalizer.
	ValidationFailures int

	// Steps lists the steps that ran to completion.
	Steps []string
}

// NewAudit creates the state of an audit run.
func NewAudit(jobID, seed string, opts model.CrawlOptions) *Audit {
	result := model.NewAuditResult(jobID, seed)
	result.Options = opts
	return &Audit{
		Seed:    seed,
		Options: opts,
		Result:  result,
		Pages:   make([]*model.PageCrawlResult, 0),
	}
}

// Step defines the interface that all pipeline steps must implement.
type Step interface {
	// Do executes the step. Page-scoped problems are recorded in the audit
	// and return nil; an error aborts the pipeline.
	Do(ctx context.Context, audit *Audit) error

	// Name returns the step's name for logging and progress reporting.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger

	// onStep is called before each step starts.
	onStep func(step string)
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithStepHook registers a function called with the name of every step
// before it runs.
func WithStepHook(hook func(step string)) Option {
	return func(p *Pipeline) {
		p.onStep = hook
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in sequence and stops at the first error. The
// audit result keeps whatever the completed steps produced.
func (p *Pipeline) Execute(ctx context.Context, audit *Audit) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", err,
			)
			audit.Result.MarkIncomplete("audit cancelled before " + step.Name())
			return err
		}

		if p.onStep != nil {
			p.onStep(step.Name())
		}
		p.logger.Info("executing step",
			"step", step.Name(),
			"site", audit.Seed,
		)

		if err := step.Do(ctx, audit); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"site", audit.Seed,
				"error", err,
			)
			return err
		}

		p.logger.Debug("step completed",
			"step", step.Name(),
			"site", audit.Seed,
		)
		audit.Steps = append(audit.Steps, step.Name())
	}
	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
