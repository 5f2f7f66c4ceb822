package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CreateCounter registers a counter vector in the application registry.
func (m *Metrics) CreateCounter(name, help string, labels []string) Counter {
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      name,
		Help:      help,
	}, labels)
	m.wrappedApplicationRegisterer.MustRegister(vec)
	return &counterVec{vec: vec}
}

// CreateHistogram registers a histogram vector in the application registry.
func (m *Metrics) CreateHistogram(name, help string, labels []string, buckets []float64) Histogram {
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labels)
	m.wrappedApplicationRegisterer.MustRegister(vec)
	return &histogramVec{vec: vec}
}

// CreateGauge registers a gauge vector in the application registry.
func (m *Metrics) CreateGauge(name, help string, labels []string) Gauge {
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      name,
		Help:      help,
	}, labels)
	m.wrappedApplicationRegisterer.MustRegister(vec)
	return &gaugeVec{vec: vec}
}
