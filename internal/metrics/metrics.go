package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for a finished analysis.
const (
	OutcomeOK        = "ok"
	OutcomeInvalid   = "invalid"
	OutcomeFile      = "file_error"
	OutcomeModel     = "model_error"
	OutcomeMalformed = "malformed"
	OutcomeHistory   = "history_error"
	OutcomeUnknown   = "unknown"
)

// Recorder receives analysis events. A nil *Metrics is a valid no-op Recorder.
type Recorder interface {
	ObserveAnalysis(mode, platform, outcome string, elapsed time.Duration)
	ObserveModelError(kind string)
	ObserveFiles(kind string, n int)
}

type Metrics struct {
	registry    *prometheus.Registry
	analyses    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	modelErrors *prometheus.CounterVec
	files       *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "viral",
			Name:      "analyses_total",
			Help:      "Finished analyses by mode, platform and outcome.",
		}, []string{"mode", "platform", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "viral",
			Name:      "analysis_duration_seconds",
			Help:      "Wall time of an analysis from validation to history write.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160, 320},
		}, []string{"mode"}),
		modelErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "viral",
			Name:      "model_errors_total",
			Help:      "Failed model calls by error kind.",
		}, []string{"kind"}),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "viral",
			Name:      "files_total",
			Help:      "Files submitted with analyses by media kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.analyses, m.duration, m.modelErrors, m.files)
	return m
}

func (m *Metrics) ObserveAnalysis(mode, platform, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(mode, platform, outcome).Inc()
	m.duration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveModelError(kind string) {
	if m == nil {
		return
	}
	m.modelErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveFiles(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.files.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
