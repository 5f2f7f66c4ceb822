package metrics

// MetricsCollector creates application metrics. Every metric is registered in the
// application registry under the configured namespace and carries the service label.
type MetricsCollector interface {
	// CreateCounter creates a counter vector.
	//
	//   counter := m.CreateCounter("spans_total", "Spans converted", []string{"type"})
	//   counter.WithLabelValues("server").Inc()
	CreateCounter(name, help string, labels []string) Counter

	// CreateHistogram creates a histogram vector. nil buckets use the Prometheus
	// defaults.
	CreateHistogram(name, help string, labels []string, buckets []float64) Histogram

	// CreateGauge creates a gauge vector.
	CreateGauge(name, help string, labels []string) Gauge
}
