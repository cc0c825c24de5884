package schemagen

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/brunobiangulo/schemagen/validator"
)

// Metrics are the counters an Engine reports when given a registerer.
type Metrics struct {
	Runs             *prometheus.CounterVec
	Rows             *prometheus.CounterVec
	Issues           *prometheus.CounterVec
	AutoFixes        prometheus.Counter
	GenerationErrors prometheus.Counter
	RepairPasses     *prometheus.CounterVec
	RunDuration      prometheus.Histogram
}

// NewMetrics registers the schemagen metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "schemagen",
			Name:      "runs_total",
			Help:      "Batch runs by final status.",
		}, []string{"status"}),
		Rows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "schemagen",
			Name:      "validations_total",
			Help:      "Validated documents by verdict.",
		}, []string{"status"}),
		Issues: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "schemagen",
			Name:      "issues_total",
			Help:      "Validation issues by rule and severity.",
		}, []string{"rule", "severity"}),
		AutoFixes: f.NewCounter(prometheus.CounterOpts{
			Namespace: "schemagen",
			Name:      "auto_fixes_total",
			Help:      "Corrections applied by the validator.",
		}),
		GenerationErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: "schemagen",
			Name:      "generation_errors_total",
			Help:      "Rows whose document could not be generated.",
		}),
		RepairPasses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "schemagen",
			Name:      "repair_passes_total",
			Help:      "Graph wiring passes by outcome.",
		}, []string{"outcome"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "schemagen",
			Name:      "run_duration_seconds",
			Help:      "Wall time of batch runs.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
}

// observe records one validation verdict. A nil receiver is a no-op.
func (m *Metrics) observe(res validator.Result) {
	if m == nil {
		return
	}
	m.Rows.WithLabelValues(string(res.Status)).Inc()
	for _, is := range res.Issues {
		m.Issues.WithLabelValues(strconv.Itoa(is.Rule), string(is.Severity)).Inc()
	}
	m.AutoFixes.Add(float64(len(res.AutoFixes)))
}
