package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts scrape outcomes. A nil *Metrics is valid and records
// nothing, so library users without a metrics pipeline pay no cost.
type Metrics struct {
	attempts  *prometheus.CounterVec
	durations prometheus.Histogram
}

// NewMetrics registers scrape metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assistant",
			Subsystem: "scraper",
			Name:      "attempts_total",
			Help:      "Scrape attempts by outcome (real or demo).",
		}, []string{"outcome"}),
		durations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "assistant",
			Subsystem: "scraper",
			Name:      "fetch_duration_seconds",
			Help:      "Wall time of page fetches including parsing.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.attempts, m.durations)
	return m
}

func (m *Metrics) observe(real bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "real"
	if !real {
		outcome = "demo"
	}
	m.attempts.WithLabelValues(outcome).Inc()
	m.durations.Observe(d.Seconds())
}
