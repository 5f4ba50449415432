// Package metrics exposes Prometheus collectors for the audit pipeline.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	crawlJobsTotal          *prometheus.CounterVec
	crawlJobsRunning        prometheus.Gauge
	crawlJobDurationSeconds prometheus.Histogram
	etlPagesLoadedTotal     prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		crawlJobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawl_jobs_total",
				Help: "Total number of crawl jobs reaching a terminal state, labeled by status.",
			},
			[]string{"status"},
		)

		crawlJobsRunning = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "crawl_jobs_running",
				Help: "Number of crawl jobs currently holding a dispatch slot.",
			},
		)

		crawlJobDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crawl_job_duration_seconds",
				Help:    "Histogram of supervised crawl process run times.",
				Buckets: []float64{30, 60, 300, 900, 1800, 3600, 7200},
			},
		)

		etlPagesLoadedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "etl_pages_loaded_total",
				Help: "Total number of page rows loaded from crawler exports.",
			},
		)
	})
}

// JobStarted records a job transitioning into the running state.
func JobStarted() {
	if crawlJobsRunning == nil {
		return
	}
	crawlJobsRunning.Inc()
}

// JobFinished records a terminal job with its final status and duration.
func JobFinished(status string, d time.Duration) {
	if crawlJobsTotal == nil {
		return
	}
	crawlJobsRunning.Dec()
	crawlJobsTotal.WithLabelValues(status).Inc()
	crawlJobDurationSeconds.Observe(d.Seconds())
}

// ETLPagesLoaded records page rows inserted by the ETL step.
func ETLPagesLoaded(n int) {
	if etlPagesLoadedTotal == nil {
		return
	}
	etlPagesLoadedTotal.Add(float64(n))
}
