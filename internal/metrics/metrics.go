// Package metrics collects walker and cipher-unit statistics on a private
// Prometheus registry.
package metrics

import (
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "xtswalk"

// Request outcomes recorded by RequestDone.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	bytes        *prometheus.CounterVec
	requests     *prometheus.CounterVec
	steals       *prometheus.CounterVec
	acquisitions prometheus.Counter
	holdSeconds  prometheus.Histogram
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_total",
			Help:      "Bytes processed by the XTS walker.",
		}, []string{"direction"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Cipher requests completed, by outcome.",
		}, []string{"direction", "result"}),
		steals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steals_total",
			Help:      "Requests that ended in a ciphertext-stealing tail.",
		}, []string{"direction"}),
		acquisitions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unit_acquisitions_total",
			Help:      "Times the shared cipher unit was acquired.",
		}),
		holdSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "unit_hold_seconds",
			Help:      "Time the cipher unit was held per acquisition.",
			Buckets:   prometheus.ExponentialBuckets(1e-7, 4, 10),
		}),
	}

	m.registry.MustRegister(m.bytes, m.requests, m.steals, m.acquisitions, m.holdSeconds)

	return m
}

// Registry exposes the underlying registry, e.g. for an HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// AddBytes records n bytes processed in direction dir.
func (m *Metrics) AddBytes(dir string, n int) {
	if m == nil {
		return
	}
	m.bytes.WithLabelValues(dir).Add(float64(n))
}

// RequestDone records the outcome of one request.
func (m *Metrics) RequestDone(dir string, err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.requests.WithLabelValues(dir, result).Inc()
}

// Steal records a ciphertext-stealing tail.
func (m *Metrics) Steal(dir string) {
	if m == nil {
		return
	}
	m.steals.WithLabelValues(dir).Inc()
}

// UnitHeld records one cipher unit acquisition that lasted d.
func (m *Metrics) UnitHeld(d time.Duration) {
	if m == nil {
		return
	}
	m.acquisitions.Inc()
	m.holdSeconds.Observe(d.Seconds())
}

// Snapshot flattens counters into "name{label=value,...}" keys. Histograms
// contribute their sample count and sum.
func (m *Metrics) Snapshot() map[string]float64 {
	out := make(map[string]float64)
	if m == nil {
		return out
	}

	families, err := m.registry.Gather()
	if err != nil {
		return out
	}

	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			labels := make([]string, 0, len(metric.GetLabel()))
			for _, lp := range metric.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			sort.Strings(labels)

			key := mf.GetName()
			if len(labels) > 0 {
				key += "{" + strings.Join(labels, ",") + "}"
			}

			switch {
			case metric.GetCounter() != nil:
				out[key] = metric.GetCounter().GetValue()
			case metric.GetHistogram() != nil:
				out[key+"_count"] = float64(metric.GetHistogram().GetSampleCount())
				out[key+"_sum"] = metric.GetHistogram().GetSampleSum()
			}
		}
	}

	return out
}
