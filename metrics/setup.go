package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the system and application registries and the HTTP servers exposing
// them. A server is nil when its endpoint is disabled.
type Metrics struct {
	// SystemServer serves Go runtime, process and build info metrics.
	SystemServer *http.Server

	// ApplicationServer serves the bridge metrics.
	ApplicationServer *http.Server

	SystemRegistry      *prometheus.Registry
	ApplicationRegistry *prometheus.Registry

	// wrappedApplicationRegisterer adds the service label to application metrics.
	wrappedApplicationRegisterer prometheus.Registerer
	namespace                    string
}

// NewMetrics builds both registries and their servers. Servers are not started.
//
//	m := metrics.NewMetrics(metrics.Config{ServiceName: "apmbridge"})
//	go m.ApplicationServer.ListenAndServe()
func NewMetrics(cfg Config) *Metrics {
	m := &Metrics{namespace: cfg.Namespace}
	if m.namespace == "" {
		m.namespace = DefaultNamespace
	}
	labels := prometheus.Labels{"service": cfg.ServiceName}

	systemAddr := DefaultSystemMetricsAddress
	if cfg.SystemMetricsAddress != nil {
		systemAddr = *cfg.SystemMetricsAddress
	}
	if systemAddr != "" {
		systemRegistry := prometheus.NewRegistry()
		prometheus.WrapRegistererWith(labels, systemRegistry).MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewBuildInfoCollector(),
		)

		m.SystemRegistry = systemRegistry
		m.SystemServer = &http.Server{
			Addr:    systemAddr,
			Handler: promhttp.HandlerFor(systemRegistry, promhttp.HandlerOpts{}),
		}
	}

	// The application registry always exists so observers can record into it.
	m.ApplicationRegistry = prometheus.NewRegistry()
	m.wrappedApplicationRegisterer = prometheus.WrapRegistererWith(labels, m.ApplicationRegistry)

	appAddr := DefaultApplicationMetricsAddress
	if cfg.ApplicationMetricsAddress != nil {
		appAddr = *cfg.ApplicationMetricsAddress
	}
	if appAddr != "" {
		m.ApplicationServer = &http.Server{
			Addr:    appAddr,
			Handler: promhttp.HandlerFor(m.ApplicationRegistry, promhttp.HandlerOpts{}),
		}
	}

	return m
}
