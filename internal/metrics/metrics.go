// Package metrics exposes the engine's prometheus collectors. Every method is
// safe to call on a nil *Metrics so components can run without a registry.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "adventa"

type Metrics struct {
	gatherer prometheus.Gatherer

	requestCounter   *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	submissions      *prometheus.CounterVec
	submitDuration   prometheus.Histogram
	refreshes        *prometheus.CounterVec
	backgroundJobs   *prometheus.CounterVec
	bufferedAnswers  prometheus.Counter
	skippedBufferRow *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(registry, registry)
}

func NewWithRegistry(registerer prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	m := &Metrics{
		gatherer: gatherer,
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "submissions_total",
				Help:      "Attempt submissions by outcome",
			},
			[]string{"outcome"},
		),
		submitDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "submission_duration_seconds",
				Help:      "Time spent grading and committing one submission",
				Buckets:   prometheus.DefBuckets,
			},
		),
		refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "community_refreshes_total",
				Help:      "Community average refreshes by level and outcome",
			},
			[]string{"level", "outcome"},
		),
		backgroundJobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "background_jobs_total",
				Help:      "Background jobs by name and outcome",
			},
			[]string{"job", "outcome"},
		),
		bufferedAnswers: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "buffered_answers_total",
				Help:      "Answers written to the progress buffer",
			},
		),
		skippedBufferRow: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "skipped_buffer_entries_total",
				Help:      "Buffered entries ignored during grading",
			},
			[]string{"reason"},
		),
	}

	registerer.MustRegister(
		m.requestCounter,
		m.requestDuration,
		m.submissions,
		m.submitDuration,
		m.refreshes,
		m.backgroundJobs,
		m.bufferedAnswers,
		m.skippedBufferRow,
	)
	return m
}

func (m *Metrics) ObserveSubmission(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
	m.submitDuration.Observe(took.Seconds())
}

func (m *Metrics) RecordRefresh(level, outcome string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(level, outcome).Inc()
}

func (m *Metrics) RecordJob(job, outcome string) {
	if m == nil {
		return
	}
	m.backgroundJobs.WithLabelValues(job, outcome).Inc()
}

func (m *Metrics) RecordBufferedAnswer() {
	if m == nil {
		return
	}
	m.bufferedAnswers.Inc()
}

func (m *Metrics) RecordSkippedEntries(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.skippedBufferRow.WithLabelValues(reason).Add(float64(n))
}

// Middleware counts requests by matched route, not raw path.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.requestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Handler() gin.HandlerFunc {
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if m != nil && m.gatherer != nil {
		gatherer = m.gatherer
	}
	h := promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
