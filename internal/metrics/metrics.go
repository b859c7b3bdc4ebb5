package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "siteaudit"

// Collector holds the Prometheus metrics of siteaudit. It implements
// crawler.Observer.
type Collector struct {
	registry *prometheus.Registry

	PagesFetched      *prometheus.CounterVec
	FetchDuration     *prometheus.HistogramVec
	FrontierURLs      prometheus.Gauge
	StepsStarted      *prometheus.CounterVec
	AnalyzerFallbacks *prometheus.CounterVec
	AuditsTotal       *prometheus.CounterVec
	AuditDuration     prometheus.Histogram
	AuditScore        prometheus.Histogram
}

// NewCollector creates a Collector with its own registry. Go runtime and
// process metrics are registered too.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		PagesFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Pages fetched, by outcome and renderer.",
		}, []string{"outcome", "rendered"}),
		FetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "page_fetch_duration_seconds",
			Help:      "Duration of page fetches.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"outcome"}),
		FrontierURLs: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "frontier_urls",
			Help:      "URLs waiting in the crawl frontier.",
		}),
		StepsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_steps_total",
			Help:      "Audit pipeline steps started, by step.",
		}, []string{"step"}),
		AnalyzerFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyzer_fallbacks_total",
			Help:      "Analyzer runs replaced by a neutral result, by analyzer.",
		}, []string{"analyzer"}),
		AuditsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audits_total",
			Help:      "Finished audits, by job status.",
		}, []string{"status"}),
		AuditDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "audit_duration_seconds",
			Help:      "Duration of audit jobs.",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600},
		}),
		AuditScore: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "audit_score",
			Help:      "Site scores of completed audits.",
			Buckets:   prometheus.LinearBuckets(10, 10, 9),
		}),
	}
}

// PageFetched records one crawled page.
func (c *Collector) PageFetched(outcome string, rendered bool, d time.Duration) {
	c.PagesFetched.WithLabelValues(outcome, strconv.FormatBool(rendered)).Inc()
	c.FetchDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// FrontierSize records the frontier length.
func (c *Collector) FrontierSize(n int) {
	c.FrontierURLs.Set(float64(n))
}

// StepStarted records a pipeline step.
func (c *Collector) StepStarted(step string) {
	c.StepsStarted.WithLabelValues(step).Inc()
}

// AnalyzerFallback records an analyzer that panicked or timed out.
func (c *Collector) AnalyzerFallback(analyzer string, _ error) {
	c.AnalyzerFallbacks.WithLabelValues(analyzer).Inc()
}

// AuditFinished records a finished job. score is observed only for
// completed jobs.
func (c *Collector) AuditFinished(status string, d time.Duration, score float64) {
	c.AuditsTotal.WithLabelValues(status).Inc()
	c.AuditDuration.Observe(d.Seconds())
	if status == "completed" {
		c.AuditScore.Observe(score)
	}
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler serving the metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Serve serves /metrics on addr until ctx is done.
func (c *Collector) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving metrics", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
