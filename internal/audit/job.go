package audit

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/nao1215/siteaudit/internal/crawler"
	"github.com/nao1215/siteaudit/internal/model"
	"github.com/nao1215/siteaudit/internal/pipeline"
)

// crawlShare is the share of the progress estimate taken by crawling.
const crawlShare = 80.0

// phaseProgress is the progress estimate at the start of each step after
// the crawl.
var phaseProgress = map[string]float64{
	pipeline.StepNormalize:    crawlShare,
	pipeline.StepAnalyze:      crawlShare + 5,
	pipeline.StepScore:        crawlShare + 15,
	pipeline.StepGroup:        crawlShare + 17,
	pipeline.StepCompleteness: crawlShare + 19,
}

type job struct {
	id     string
	opts   model.CrawlOptions
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	progress model.JobProgress
	result   *model.AuditResult
	err      error
}

func (j *job) snapshot() model.JobProgress {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.progress
}

func (j *job) setRunning() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.progress.Status = model.JobRunning
	j.progress.UpdatedAt = time.Now()
}

func (j *job) setPhase(step string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.progress.Phase = step
	if p, ok := phaseProgress[step]; ok {
		j.progress.Percent = p
	}
	j.progress.UpdatedAt = time.Now()
}

func (j *job) pageFetched() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.progress.PagesCrawled++
	if j.progress.MaxPages > 0 {
		done := float64(j.progress.PagesCrawled) / float64(j.progress.MaxPages)
		j.progress.Percent = math.Round(crawlShare*math.Min(done, 1)*10) / 10
	}
	j.progress.UpdatedAt = time.Now()
}

// finish stores the outcome. It must be called once, before done is
// closed.
func (j *job) finish(result *model.AuditResult, err error, status model.JobStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = result
	j.err = err
	j.progress.Status = status
	j.progress.Phase = ""
	j.progress.PagesCrawled = result.Stats.PagesCrawled
	if status == model.JobCompleted {
		j.progress.Percent = 100
	}
	if err != nil {
		j.progress.Error = err.Error()
	}
	j.progress.UpdatedAt = time.Now()
}

// progressObserver counts fetched pages of one job.
type progressObserver struct {
	job *job
}

var _ crawler.Observer = (*progressObserver)(nil)

func (o *progressObserver) PageFetched(outcome string, _ bool, _ time.Duration) {
	if outcome == crawler.OutcomeSkipped {
		return
	}
	o.job.pageFetched()
}

func (o *progressObserver) FrontierSize(int) {}
