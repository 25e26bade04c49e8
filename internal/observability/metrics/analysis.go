package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/deepfake-scan/internal/core/domain"
)

const namespace = "deepscan"

// AnalysisMetrics covers scoring, classifier and resilience counters shared by
// the api and worker processes.
type AnalysisMetrics struct {
	service string

	analysesTotal      *prometheus.CounterVec
	authenticity       *prometheus.HistogramVec
	classifierTotal    *prometheus.CounterVec
	classifierDuration *prometheus.HistogramVec
	retriesTotal       *prometheus.CounterVec
	breakerTransitions *prometheus.CounterVec
}

func newAnalysisMetrics(service string, registry *prometheus.Registry) *AnalysisMetrics {
	analysesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "results_total",
			Help:      "Total generated analysis results by media kind, verdict and mode.",
		},
		[]string{"service", "kind", "verdict", "mode"},
	)
	authenticity := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "authenticity_score",
			Help:      "Distribution of authenticity scores.",
			Buckets:   prometheus.LinearBuckets(10, 10, 9),
		},
		[]string{"service", "kind"},
	)
	classifierTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "requests_total",
			Help:      "Total classifier calls by outcome.",
		},
		[]string{"service", "outcome"},
	)
	classifierDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "duration_seconds",
			Help:      "Classifier call duration in seconds by outcome.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "outcome"},
	)
	retriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "retries_total",
			Help:      "Total retry attempts by operation.",
		},
		[]string{"service", "operation"},
	)
	breakerTransitions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "breaker_transitions_total",
			Help:      "Circuit breaker state transitions by operation and target state.",
		},
		[]string{"service", "operation", "to"},
	)

	registry.MustRegister(analysesTotal, authenticity, classifierTotal, classifierDuration, retriesTotal, breakerTransitions)

	return &AnalysisMetrics{
		service:            service,
		analysesTotal:      analysesTotal,
		authenticity:       authenticity,
		classifierTotal:    classifierTotal,
		classifierDuration: classifierDuration,
		retriesTotal:       retriesTotal,
		breakerTransitions: breakerTransitions,
	}
}

func (m *AnalysisMetrics) ObserveAnalysis(mode string, result domain.AnalysisResult) {
	if mode == "" {
		mode = "unknown"
	}
	verdict := "authentic"
	if result.IsDeepfake {
		verdict = "deepfake"
	}
	m.analysesTotal.WithLabelValues(m.service, string(result.MediaKind), verdict, mode).Inc()
	m.authenticity.WithLabelValues(m.service, string(result.MediaKind)).Observe(result.BaseMetrics.Authenticity)
}

func (m *AnalysisMetrics) RecordClassification(outcome string, duration time.Duration) {
	m.classifierTotal.WithLabelValues(m.service, outcome).Inc()
	m.classifierDuration.WithLabelValues(m.service, outcome).Observe(duration.Seconds())
}

func (m *AnalysisMetrics) OnRetry(operation string, _ int) {
	m.retriesTotal.WithLabelValues(m.service, operation).Inc()
}

func (m *AnalysisMetrics) OnBreakerStateChange(operation string, _, to string) {
	m.breakerTransitions.WithLabelValues(m.service, operation, to).Inc()
}
