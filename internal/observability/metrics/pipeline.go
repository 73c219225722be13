package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/scan-classifier/internal/core/domain"
)

// PipelineMetrics implements ports.PipelineObserver.
type PipelineMetrics struct {
	ocrAttempts        *prometheus.CounterVec
	pages              *prometheus.CounterVec
	classifications    *prometheus.CounterVec
	confidence         prometheus.Histogram
	extractions        *prometheus.CounterVec
	failures           *prometheus.CounterVec
	breakerTransitions *prometheus.CounterVec
}

func NewPipelineMetrics(service string, registerer prometheus.Registerer) *PipelineMetrics {
	labels := prometheus.Labels{"service": service}

	m := &PipelineMetrics{
		ocrAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "ocr",
			Name:        "attempts_total",
			Help:        "OCR strategy invocations by strategy and acceptance.",
			ConstLabels: labels,
		}, []string{"strategy", "accepted"}),
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "ocr",
			Name:        "pages_total",
			Help:        "OCR'd PDF pages by whether any strategy produced text.",
			ConstLabels: labels,
		}, []string{"has_text"}),
		classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "classifier",
			Name:        "results_total",
			Help:        "Classification results by document type.",
			ConstLabels: labels,
		}, []string{"document_type"}),
		confidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "classifier",
			Name:        "confidence",
			Help:        "Distribution of classification confidence.",
			Buckets:     []float64{0, 0.1, 0.25, 0.5, 0.75, 0.9, 1},
			ConstLabels: labels,
		}),
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "extraction",
			Name:        "results_total",
			Help:        "Structured extraction outcomes by provider and status.",
			ConstLabels: labels,
		}, []string{"provider", "status"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "pipeline",
			Name:        "failures_total",
			Help:        "Pipeline failures by stage.",
			ConstLabels: labels,
		}, []string{"stage"}),
		breakerTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "resilience",
			Name:        "breaker_transitions_total",
			Help:        "Circuit breaker state changes by operation and target state.",
			ConstLabels: labels,
		}, []string{"operation", "to"}),
	}

	registerer.MustRegister(
		m.ocrAttempts,
		m.pages,
		m.classifications,
		m.confidence,
		m.extractions,
		m.failures,
		m.breakerTransitions,
	)
	return m
}

func (m *PipelineMetrics) ObserveOCRAttempt(attempt domain.OcrAttempt) {
	m.ocrAttempts.WithLabelValues(attempt.StrategyID, strconv.FormatBool(attempt.Accepted)).Inc()
}

func (m *PipelineMetrics) ObservePage(_ int, hasText bool) {
	m.pages.WithLabelValues(strconv.FormatBool(hasText)).Inc()
}

func (m *PipelineMetrics) ObserveClassification(result domain.ClassificationResult) {
	m.classifications.WithLabelValues(result.DocumentType).Inc()
	m.confidence.Observe(result.Confidence)
}

func (m *PipelineMetrics) ObserveExtraction(provider string, status domain.ExtractionStatus) {
	m.extractions.WithLabelValues(provider, string(status)).Inc()
}

func (m *PipelineMetrics) ObserveFailure(stage string) {
	m.failures.WithLabelValues(stage).Inc()
}

// ObserveBreakerTransition matches resilience.StateObserver.
func (m *PipelineMetrics) ObserveBreakerTransition(operation, _, to string) {
	m.breakerTransitions.WithLabelValues(operation, to).Inc()
}
