package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/de-tools/access-atlas/pkg/models/domain"
)

// Metrics holds the Prometheus instruments for the review API. A nil
// *Metrics is valid and records nothing, which keeps tests quiet.
type Metrics struct {
	ReviewsRun     prometheus.Counter
	Findings       *prometheus.CounterVec
	ReviewDuration prometheus.Histogram
}

// New creates and registers all review metrics. Call it once per process;
// promauto panics on duplicate registration.
func New() *Metrics {
	return &Metrics{
		ReviewsRun: promauto.NewCounter(prometheus.CounterOpts{
			Name: "access_atlas_reviews_run_total",
			Help: "Total review runs served over HTTP",
		}),
		Findings: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "access_atlas_findings_total",
			Help: "Findings produced by review runs, by risk level",
		}, []string{"level"}),
		ReviewDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "access_atlas_review_duration_seconds",
			Help:    "Duration of a full review run including the source fetch",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

// ObserveReview records one finished review run.
func (m *Metrics) ObserveReview(result domain.ReviewResult, d time.Duration) {
	if m == nil {
		return
	}
	m.ReviewsRun.Inc()
	m.ReviewDuration.Observe(d.Seconds())
	for _, f := range result.Findings {
		m.Findings.WithLabelValues(f.Level.String()).Inc()
	}
}
