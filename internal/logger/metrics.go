package logger

import (
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "meetup_events"

var invalidMetricChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// Metrics tracks run metrics in a private Prometheus registry. Metrics are
// created on first use. All operations are thread-safe.
//
// Counters track incrementing values (e.g., groups fetched).
// Gauges track point-in-time values (e.g., ledger size).
// Timings are observed into a duration histogram labelled by operation.
type Metrics struct {
	mu       sync.Mutex
	registry *prometheus.Registry
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	timings  *prometheus.HistogramVec
}

var defaultMetrics = NewMetrics()

// NewMetrics creates a metrics tracker with an empty registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		counters: make(map[string]prometheus.Counter),
		gauges:   make(map[string]prometheus.Gauge),
		timings: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "duration_seconds",
			Help:      "Duration of run phases in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"operation"}),
	}
	m.registry.MustRegister(m.timings)
	return m
}

// SetDefaultMetrics replaces the package-level metrics tracker.
func SetDefaultMetrics(m *Metrics) {
	if m == nil {
		m = NewMetrics()
	}
	defaultMetrics = m
}

// DefaultMetrics returns the package-level metrics tracker.
func DefaultMetrics() *Metrics {
	return defaultMetrics
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func metricName(name string) string {
	return invalidMetricChars.ReplaceAllString(name, "_")
}

func (m *Metrics) counter(name string) prometheus.Counter {
	m.mu.Lock()
	defer m.mu.Unlock()

	name = metricName(name)
	if c, ok := m.counters[name]; ok {
		return c
	}
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      name + "_total",
		Help:      "Count of " + name + ".",
	})
	m.registry.MustRegister(c)
	m.counters[name] = c
	return c
}

func (m *Metrics) gauge(name string) prometheus.Gauge {
	m.mu.Lock()
	defer m.mu.Unlock()

	name = metricName(name)
	if g, ok := m.gauges[name]; ok {
		return g
	}
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      name,
		Help:      "Current " + name + ".",
	})
	m.registry.MustRegister(g)
	m.gauges[name] = g
	return g
}

// IncrCounter increments a counter by 1.
func (m *Metrics) IncrCounter(name string) {
	m.counter(name).Inc()
}

// AddCounter increments a counter by n. Negative values are ignored.
func (m *Metrics) AddCounter(name string, n int) {
	if n < 0 {
		return
	}
	m.counter(name).Add(float64(n))
}

// SetGauge sets a gauge to the specified value, overwriting any previous value.
func (m *Metrics) SetGauge(name string, value float64) {
	m.gauge(name).Set(value)
}

// RecordTiming observes a duration for the named operation.
func (m *Metrics) RecordTiming(name string, duration time.Duration) {
	m.timings.WithLabelValues(metricName(name)).Observe(duration.Seconds())
}

// WriteTextfile writes the registry in the Prometheus text format to path,
// for the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}

// Package-level metrics functions using the default metrics tracker

// IncrCounter increments a counter on the default metrics tracker.
func IncrCounter(name string) {
	defaultMetrics.IncrCounter(name)
}

// AddCounter adds n to a counter on the default metrics tracker.
func AddCounter(name string, n int) {
	defaultMetrics.AddCounter(name, n)
}

// SetGauge sets a gauge on the default metrics tracker.
func SetGauge(name string, value float64) {
	defaultMetrics.SetGauge(name, value)
}

// RecordTiming records a timing on the default metrics tracker.
func RecordTiming(name string, duration time.Duration) {
	defaultMetrics.RecordTiming(name, duration)
}
