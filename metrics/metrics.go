// Package metrics records per-run compiler counters and exports them in the
// Prometheus text format for a node_exporter textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rulebook"

// Recorder collects metrics for one CLI run. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry *prometheus.Registry

	rulesLoaded   *prometheus.CounterVec
	parseFailures *prometheus.CounterVec
	violations    *prometheus.CounterVec
	testCases     *prometheus.CounterVec
	sections      *prometheus.GaugeVec
	lastRun       prometheus.Gauge
}

// NewRecorder creates a recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		rulesLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rules_loaded_total",
			Help:      "Rule files parsed and assigned to a section.",
		}, []string{"corpus"}),
		parseFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_failures_total",
			Help:      "Rule files that failed to parse or resolve a section.",
		}, []string{"corpus"}),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "violations_total",
			Help:      "Structural violations found by validation.",
		}, []string{"corpus"}),
		testCases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "test_cases_total",
			Help:      "Test cases extracted from labeled examples.",
		}, []string{"type"}),
		sections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sections",
			Help:      "Sections in the last compiled document of a variant.",
		}, []string{"variant"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last metrics export.",
		}),
	}

	r.registry.MustRegister(
		r.rulesLoaded,
		r.parseFailures,
		r.violations,
		r.testCases,
		r.sections,
		r.lastRun,
	)
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// RulesLoaded adds n loaded rules for a corpus.
func (r *Recorder) RulesLoaded(corpus string, n int) {
	if r == nil {
		return
	}
	r.rulesLoaded.WithLabelValues(corpus).Add(float64(n))
}

// ParseFailures adds n failed rule files for a corpus.
func (r *Recorder) ParseFailures(corpus string, n int) {
	if r == nil {
		return
	}
	r.parseFailures.WithLabelValues(corpus).Add(float64(n))
}

// Violations adds n validation violations for a corpus.
func (r *Recorder) Violations(corpus string, n int) {
	if r == nil {
		return
	}
	r.violations.WithLabelValues(corpus).Add(float64(n))
}

// TestCases adds n extracted test cases of the given polarity.
func (r *Recorder) TestCases(kind string, n int) {
	if r == nil {
		return
	}
	r.testCases.WithLabelValues(kind).Add(float64(n))
}

// Sections records the section count of a compiled variant.
func (r *Recorder) Sections(variant string, n int) {
	if r == nil {
		return
	}
	r.sections.WithLabelValues(variant).Set(float64(n))
}

// WriteTextfile stamps the run time and writes all metrics to path.
func (r *Recorder) WriteTextfile(path string, now time.Time) error {
	if r == nil || path == "" {
		return nil
	}
	r.lastRun.Set(float64(now.Unix()))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
