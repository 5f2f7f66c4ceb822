package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aalemi-dev/apmbridge/apm"
	"github.com/aalemi-dev/apmbridge/observability"
)

// Operation status label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

var segmentBuckets = []float64{1, 2, 5, 10, 25, 50, 100, 250, 1000}

// OperationObserver records every observed operation as Prometheus metrics:
//
//	apmbridge_operations_total{component,operation,resource,status}
//	apmbridge_operation_duration_seconds{component,operation}
//
// Resource is the rule or transaction type for the processor and the source name for
// rule sources; neither carries per-request values.
type OperationObserver struct {
	operations Counter
	durations  Histogram
}

// NewOperationObserver registers the operation metrics in m.
func NewOperationObserver(m MetricsCollector) *OperationObserver {
	return &OperationObserver{
		operations: m.CreateCounter("operations_total",
			"Completed bridge operations by component, operation, resource and status.",
			[]string{"component", "operation", "resource", "status"}),
		durations: m.CreateHistogram("operation_duration_seconds",
			"Duration of bridge operations.",
			[]string{"component", "operation"}, prometheus.DefBuckets),
	}
}

// ObserveOperation implements observability.Observer.
func (o *OperationObserver) ObserveOperation(ctx observability.OperationContext) {
	status := StatusOK
	if ctx.Error != nil {
		status = StatusError
	}
	o.operations.WithLabelValues(ctx.Component, ctx.Operation, ctx.Resource, status).Inc()
	o.durations.WithLabelValues(ctx.Component, ctx.Operation).Observe(ctx.Duration.Seconds())
}

// NewPendingSpansGauge registers apmbridge_pending_spans, the number of spans the
// processor has started and not yet seen end.
func NewPendingSpansGauge(m MetricsCollector) Gauge {
	return m.CreateGauge("pending_spans", "Spans started and not yet ended.", nil)
}

// TransactionSink records ended transactions and forwards them to the next sink:
//
//	apmbridge_transactions_total{type}
//	apmbridge_transaction_duration_seconds{type}
//	apmbridge_transaction_segments{type}
//	apmbridge_transaction_exceptions_total{type}
type TransactionSink struct {
	next       apm.TransactionSink
	ended      Counter
	durations  Histogram
	segments   Histogram
	exceptions Counter
}

// NewTransactionSink registers the transaction metrics in m. next may be nil.
func NewTransactionSink(m MetricsCollector, next apm.TransactionSink) *TransactionSink {
	labels := []string{"type"}
	return &TransactionSink{
		next:       next,
		ended:      m.CreateCounter("transactions_total", "Ended transactions by type.", labels),
		durations:  m.CreateHistogram("transaction_duration_seconds", "Duration of ended transactions.", labels, prometheus.DefBuckets),
		segments:   m.CreateHistogram("transaction_segments", "Segments per ended transaction.", labels, segmentBuckets),
		exceptions: m.CreateCounter("transaction_exceptions_total", "Exceptions recorded on ended transactions.", labels),
	}
}

// TransactionEnded implements apm.TransactionSink.
func (s *TransactionSink) TransactionEnded(tx *apm.Transaction) {
	typ := string(tx.Type())
	s.ended.WithLabelValues(typ).Inc()
	s.durations.WithLabelValues(typ).Observe(tx.Duration().Seconds())
	s.segments.WithLabelValues(typ).Observe(float64(len(tx.Segments())))
	if n := len(tx.Exceptions()); n > 0 {
		s.exceptions.WithLabelValues(typ).Add(float64(n))
	}
	if s.next != nil {
		s.next.TransactionEnded(tx)
	}
}
