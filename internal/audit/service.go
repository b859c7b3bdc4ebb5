package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/siteaudit/internal/analyzer"
	"github.com/nao1215/siteaudit/internal/config"
	"github.com/nao1215/siteaudit/internal/crawler"
	"github.com/nao1215/siteaudit/internal/model"
	"github.com/nao1215/siteaudit/internal/normalizer"
	"github.com/nao1215/siteaudit/internal/pipeline"
	"github.com/nao1215/siteaudit/internal/provider"
)

// Store persists audit results and job progress. *database.AuditDB
// implements it. Getters return nil, nil for unknown jobs.
type Store interface {
	SaveAuditResult(ctx context.Context, result *model.AuditResult) error
	GetAuditResult(ctx context.Context, jobID string) (*model.AuditResult, error)
	SaveJobStatus(ctx context.Context, progress model.JobProgress) error
	GetJobStatus(ctx context.Context, jobID string) (*model.JobProgress, error)
}

// Recorder receives job metrics. *metrics.Collector implements it.
type Recorder interface {
	crawler.Observer
	StepStarted(step string)
	AnalyzerFallback(analyzer string, err error)
	AuditFinished(status string, d time.Duration, score float64)
}

// CrawlerFactory builds the crawler of one job. observer must receive the
// crawl events of that job.
type CrawlerFactory func(observer crawler.Observer) pipeline.Crawler

// Service runs audit jobs.
type Service struct {
	newCrawler  CrawlerFactory
	engine      *analyzer.Engine
	normalizer  *normalizer.Normalizer
	policy      config.Policy
	concurrency int
	timeout     time.Duration

	store    Store
	recorder Recorder
	critic   provider.ContentCritic
	logger   *slog.Logger

	mu     sync.Mutex
	jobs   map[string]*job
	wg     sync.WaitGroup
	closed bool
}

// Option configures a Service.
type Option func(*Service)

// WithStore persists results and progress.
func WithStore(store Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithRecorder reports job metrics.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

// WithPolicy sets the scoring and prioritization policy.
func WithPolicy(p config.Policy) Option {
	return func(s *Service) {
		s.policy = config.DefaultPolicy().Merge(p)
	}
}

// WithCritic adds an analyzer backed by an external content critic.
func WithCritic(c provider.ContentCritic) Option {
	return func(s *Service) {
		s.critic = c
	}
}

// WithAnalysisConcurrency bounds the pages analyzed at once per job.
func WithAnalysisConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithAnalysisTimeout bounds the analysis of a single page by one analyzer.
func WithAnalysisTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a Service.
func NewService(newCrawler CrawlerFactory, opts ...Option) *Service {
	s := &Service{
		newCrawler:  newCrawler,
		normalizer:  normalizer.New(),
		policy:      config.DefaultPolicy(),
		concurrency: 4,
		logger:      slog.Default(),
		jobs:        make(map[string]*job),
	}
	for _, opt := range opts {
		opt(s)
	}

	engineOpts := []analyzer.EngineOption{analyzer.WithLogger(s.logger)}
	if s.timeout > 0 {
		engineOpts = append(engineOpts, analyzer.WithTimeout(s.timeout))
	}
	if s.recorder != nil {
		engineOpts = append(engineOpts, analyzer.WithFallbackHook(s.recorder.AnalyzerFallback))
	}
	s.engine = analyzer.NewDefaultEngine(engineOpts...)
	if s.critic != nil {
		s.engine.Register(analyzer.NewCriticAnalyzer(s.critic))
	}
	return s
}

// StartAudit starts auditing site in the background and returns the job
// ID. The job is not bound to ctx; use Cancel to stop it.
func (s *Service) StartAudit(ctx context.Context, site string, opts model.CrawlOptions) (string, error) {
	if err := validateSite(site); err != nil {
		return "", err
	}
	j, err := s.newJob(site, opts, context.WithoutCancel(ctx))
	if err != nil {
		return "", err
	}
	s.saveStatus(ctx, j)

	go func() {
		defer s.wg.Done()
		s.execute(j)
	}()
	return j.id, nil
}

// Run audits site and waits for the result. The result is returned even
// when the audit failed, flagged incomplete.
func (s *Service) Run(ctx context.Context, site string, opts model.CrawlOptions) (*model.AuditResult, error) {
	if err := validateSite(site); err != nil {
		return nil, err
	}
	j, err := s.newJob(site, opts, ctx)
	if err != nil {
		return nil, err
	}
	defer s.wg.Done()
	s.execute(j)
	return j.result, j.err
}

// GetAuditStatus returns the progress of a job.
func (s *Service) GetAuditStatus(jobID string) (model.JobProgress, error) {
	if j := s.job(jobID); j != nil {
		return j.snapshot(), nil
	}
	if s.store != nil {
		p, err := s.store.GetJobStatus(context.Background(), jobID)
		if err != nil {
			return model.JobProgress{}, err
		}
		if p != nil {
			return *p, nil
		}
	}
	return model.JobProgress{}, fmt.Errorf("%s: %w", jobID, ErrNotFound)
}

// GetAuditResult returns the result of a finished job.
func (s *Service) GetAuditResult(ctx context.Context, jobID string) (*model.AuditResult, error) {
	if j := s.job(jobID); j != nil {
		select {
		case <-j.done:
			if j.result != nil {
				return j.result, nil
			}
		default:
			return nil, fmt.Errorf("%s: %w", jobID, ErrNotFinished)
		}
	}
	if s.store != nil {
		r, err := s.store.GetAuditResult(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if r != nil {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", jobID, ErrNotFound)
}

// Cancel stops a running job. Cancelling a finished job is a no-op.
func (s *Service) Cancel(jobID string) error {
	j := s.job(jobID)
	if j == nil {
		return fmt.Errorf("%s: %w", jobID, ErrNotFound)
	}
	j.cancel()
	return nil
}

// Wait blocks until a job finished or ctx is done, and returns its
// outcome.
func (s *Service) Wait(ctx context.Context, jobID string) (*model.AuditResult, error) {
	j := s.job(jobID)
	if j == nil {
		return nil, fmt.Errorf("%s: %w", jobID, ErrNotFound)
	}
	select {
	case <-j.done:
		return j.result, j.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close cancels every running job and waits for them to stop. No job can
// be started afterwards.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	for _, j := range s.jobs {
		j.cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Service) job(id string) *job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// newJob registers a job. The caller must call s.wg.Done once the job
// has finished.
func (s *Service) newJob(site string, opts model.CrawlOptions, parent context.Context) (*job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	ctx, cancel := context.WithCancel(parent)
	j := &job{
		id:     uuid.NewString(),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		progress: model.JobProgress{
			Site:      site,
			Status:    model.JobQueued,
			MaxPages:  opts.MaxPages,
			UpdatedAt: time.Now(),
		},
		opts: opts,
	}
	j.progress.JobID = j.id
	s.jobs[j.id] = j
	s.wg.Add(1)
	return j, nil
}

func (s *Service) execute(j *job) {
	defer close(j.done)
	defer j.cancel()
	start := time.Now()

	j.setRunning()
	s.saveStatus(j.ctx, j)
	s.logger.Info("audit started", "job", j.id, "site", j.progress.Site)

	observer := crawler.Observer(&progressObserver{job: j})
	stepHook := func(step string) {
		j.setPhase(step)
		s.saveStatus(j.ctx, j)
	}
	if s.recorder != nil {
		observer = crawler.Observers(observer, s.recorder)
		stepHook = func(step string) {
			j.setPhase(step)
			s.saveStatus(j.ctx, j)
			s.recorder.StepStarted(step)
		}
	}

	p := pipeline.NewAuditPipeline(pipeline.Components{
		Crawler:             s.newCrawler(observer),
		Normalizer:          s.normalizer,
		Engine:              s.engine,
		Policy:              s.policy,
		AnalysisConcurrency: s.concurrency,
		Logger:              s.logger,
	}, pipeline.WithStepHook(stepHook))

	a := pipeline.NewAudit(j.id, j.progress.Site, j.opts)
	err := p.Execute(j.ctx, a)
	if a.Result.CompletedAt.IsZero() {
		a.Result.CompletedAt = time.Now()
	}

	status := model.JobCompleted
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		status = model.JobCancelled
	default:
		status = model.JobFailed
	}
	j.finish(a.Result, err, status)

	// Persist with a fresh context so that cancelled jobs are stored too.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(j.ctx), 10*time.Second)
	defer cancel()
	if s.store != nil {
		if serr := s.store.SaveAuditResult(saveCtx, a.Result); serr != nil {
			s.logger.Error("failed to save audit result", "job", j.id, "error", serr)
		}
	}
	s.saveStatus(saveCtx, j)

	if s.recorder != nil {
		s.recorder.AuditFinished(status.String(), time.Since(start), a.Result.Score)
	}
	s.logger.Info("audit finished",
		"job", j.id,
		"site", j.progress.Site,
		"status", status,
		"score", a.Result.Score,
		"pages", len(a.Result.Pages),
		"elapsed", time.Since(start),
	)
}

func (s *Service) saveStatus(ctx context.Context, j *job) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveJobStatus(ctx, j.snapshot()); err != nil {
		s.logger.Warn("failed to save job status", "job", j.id, "error", err)
	}
}

func validateSite(site string) error {
	u, err := url.Parse(site)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %s", ErrInvalidURL, site)
	}
	return nil
}
