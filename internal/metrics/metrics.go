// Package metrics records pipeline activity in a Prometheus registry and
// writes it out in the text exposition format for the node_exporter
// textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"book-translator/internal/notify"
)

// RunMetrics observes one translation run. It implements notify.Notifier.
type RunMetrics struct {
	registry *prometheus.Registry

	stageDone     *prometheus.GaugeVec
	stageTotal    *prometheus.GaugeVec
	stageDuration *prometheus.GaugeVec
	events        *prometheus.CounterVec
	errors        *prometheus.CounterVec
	runSuccess    *prometheus.GaugeVec
}

// New creates the metrics of a run labelled with the output document name.
func New(document string) *RunMetrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"document": document}

	stageDone := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   "booktranslate",
			Name:        "stage_units_done",
			Help:        "Units (pages, chunks, paragraphs) finished per stage.",
			ConstLabels: constLabels,
		},
		[]string{"stage"},
	)
	stageTotal := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   "booktranslate",
			Name:        "stage_units_total",
			Help:        "Units to process per stage.",
			ConstLabels: constLabels,
		},
		[]string{"stage"},
	)
	stageDuration := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   "booktranslate",
			Name:        "stage_duration_seconds",
			Help:        "Wall time spent per stage.",
			ConstLabels: constLabels,
		},
		[]string{"stage"},
	)
	events := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "booktranslate",
			Name:        "events_total",
			Help:        "Warnings and notices by stage and kind (OCR fallbacks, retries, dropped sentences...).",
			ConstLabels: constLabels,
		},
		[]string{"stage", "kind"},
	)
	errors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "booktranslate",
			Name:        "errors_total",
			Help:        "Terminal errors by stage.",
			ConstLabels: constLabels,
		},
		[]string{"stage", "kind"},
	)
	runSuccess := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   "booktranslate",
			Name:        "run_success",
			Help:        "1 if the run produced an output, labelled with the output kind.",
			ConstLabels: constLabels,
		},
		[]string{"output"},
	)

	registry.MustRegister(stageDone, stageTotal, stageDuration, events, errors, runSuccess)

	return &RunMetrics{
		registry:      registry,
		stageDone:     stageDone,
		stageTotal:    stageTotal,
		stageDuration: stageDuration,
		events:        events,
		errors:        errors,
		runSuccess:    runSuccess,
	}
}

// Registry exposes the underlying registry.
func (m *RunMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *RunMetrics) Progress(stage notify.Stage, done, total int) {
	m.stageDone.WithLabelValues(string(stage)).Set(float64(done))
	m.stageTotal.WithLabelValues(string(stage)).Set(float64(total))
}

func (m *RunMetrics) Info(e notify.Event) {
	m.events.WithLabelValues(string(e.Stage), string(e.Kind)).Inc()
}

func (m *RunMetrics) Warn(e notify.Event) {
	m.events.WithLabelValues(string(e.Stage), string(e.Kind)).Inc()
}

func (m *RunMetrics) Error(e notify.Event) {
	m.errors.WithLabelValues(string(e.Stage), string(e.Kind)).Inc()
}

// ObserveStage records how long a stage took.
func (m *RunMetrics) ObserveStage(stage notify.Stage, d time.Duration) {
	m.stageDuration.WithLabelValues(string(stage)).Set(d.Seconds())
}

// Finish records the outcome of the run. output is "pdf", "text" or "" when
// nothing was produced.
func (m *RunMetrics) Finish(output string) {
	if output == "" {
		m.runSuccess.WithLabelValues("none").Set(0)
		return
	}
	m.runSuccess.WithLabelValues(output).Set(1)
}

// WriteFile writes the metrics atomically to path.
func (m *RunMetrics) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
