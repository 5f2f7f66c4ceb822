// Package metrics exposes the bridge's Prometheus metrics.
//
// Two endpoints are served. The system endpoint (default :9090) carries Go runtime,
// process and build info collectors. The application endpoint (default :9091)
// carries what the bridge itself measures:
//
//   - OperationObserver counts and times every processor and rule source operation
//     it is handed as an observability.Observer.
//   - TransactionSink counts ended transactions by type with their duration, segment
//     count and exceptions, then forwards them to the next sink.
//
// Both endpoints label every metric with service=<ServiceName>; application metric
// names are prefixed with the namespace (default "apmbridge").
//
// Standalone use:
//
//	m := metrics.NewMetrics(metrics.Config{ServiceName: "checkout", SystemMetricsAddress: metrics.Ptr("")})
//	observer := metrics.NewOperationObserver(m)
//	sink := metrics.NewTransactionSink(m, exporter)
//
//	synth := synthesizer.New(synthesizer.Options{Rules: store, Sink: sink})
//	p := processor.NewSpanProcessor(cfg, synth, namer).WithObserver(observer)
//
// With fx, FXModule provides the observer and the sink and runs both servers for the
// lifetime of the application.
package metrics
