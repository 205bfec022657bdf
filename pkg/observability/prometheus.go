package observability

import (
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics implements Metrics on a Prometheus registry.
//
// Vectors are created lazily. The label set of a metric is fixed by its first
// observation; later tags missing from that set are dropped and absent labels
// are reported as "".
type PrometheusMetrics struct {
	mu         sync.Mutex
	registry   *prometheus.Registry
	counters   map[string]*labeledVec[*prometheus.CounterVec]
	gauges     map[string]*labeledVec[*prometheus.GaugeVec]
	histograms map[string]*labeledVec[*prometheus.HistogramVec]
}

type labeledVec[V any] struct {
	vec    V
	labels []string
}

// NewPrometheusMetrics creates a collector backed by a fresh registry that
// also exports the Go runtime and process collectors.
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &PrometheusMetrics{
		registry:   registry,
		counters:   make(map[string]*labeledVec[*prometheus.CounterVec]),
		gauges:     make(map[string]*labeledVec[*prometheus.GaugeVec]),
		histograms: make(map[string]*labeledVec[*prometheus.HistogramVec]),
	}
}

// Registry exposes the underlying registry.
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PrometheusMetrics) Counter(name string, value int64, tags ...Tag) {
	m.mu.Lock()
	v, ok := m.counters[name]
	if !ok {
		labels := labelNames(tags)
		v = &labeledVec[*prometheus.CounterVec]{
			vec: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: promName(name),
				Help: "Counter " + name,
			}, labels),
			labels: labels,
		}
		m.counters[name] = v
		m.registry.MustRegister(v.vec)
	}
	m.mu.Unlock()
	v.vec.WithLabelValues(labelValues(v.labels, tags)...).Add(float64(value))
}

func (m *PrometheusMetrics) Gauge(name string, value float64, tags ...Tag) {
	m.mu.Lock()
	v, ok := m.gauges[name]
	if !ok {
		labels := labelNames(tags)
		v = &labeledVec[*prometheus.GaugeVec]{
			vec: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: promName(name),
				Help: "Gauge " + name,
			}, labels),
			labels: labels,
		}
		m.gauges[name] = v
		m.registry.MustRegister(v.vec)
	}
	m.mu.Unlock()
	v.vec.WithLabelValues(labelValues(v.labels, tags)...).Set(value)
}

func (m *PrometheusMetrics) Histogram(name string, value float64, tags ...Tag) {
	m.histogram(name, promName(name), value, tags)
}

// Timing records durations in seconds on a histogram suffixed _seconds.
func (m *PrometheusMetrics) Timing(name string, duration time.Duration, tags ...Tag) {
	m.histogram(name+".seconds", promName(name)+"_seconds", duration.Seconds(), tags)
}

func (m *PrometheusMetrics) histogram(key, name string, value float64, tags []Tag) {
	m.mu.Lock()
	v, ok := m.histograms[key]
	if !ok {
		labels := labelNames(tags)
		v = &labeledVec[*prometheus.HistogramVec]{
			vec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    name,
				Help:    "Histogram " + key,
				Buckets: prometheus.DefBuckets,
			}, labels),
			labels: labels,
		}
		m.histograms[key] = v
		m.registry.MustRegister(v.vec)
	}
	m.mu.Unlock()
	v.vec.WithLabelValues(labelValues(v.labels, tags)...).Observe(value)
}

func promName(name string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(name)
}

func labelNames(tags []Tag) []string {
	seen := make(map[string]bool, len(tags))
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		n := promName(t.Key)
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

func labelValues(labels []string, tags []Tag) []string {
	values := make([]string, len(labels))
	for i, label := range labels {
		for _, t := range tags {
			if promName(t.Key) == label {
				values[i] = t.Value
			}
		}
	}
	return values
}

var _ Metrics = (*PrometheusMetrics)(nil)
