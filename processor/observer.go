package processor

import (
	"time"

	"github.com/aalemi-dev/apmbridge/observability"
)

// observeOperation notifies the observer about a conversion step if one is configured.
//
// Operations are "synthesize" and "unmatched" for started spans (resource is the rule
// type, sub-resource the span kind) and "end_transaction" for ended transactions
// (resource is the transaction type, sub-resource its final name).
func (p *SpanProcessor) observeOperation(operation, resource, subResource string, duration time.Duration, err error, metadata map[string]interface{}) {
	if p == nil || p.observer == nil {
		return
	}

	p.observer.ObserveOperation(observability.OperationContext{
		Component:   "processor",
		Operation:   operation,
		Resource:    resource,
		SubResource: subResource,
		Duration:    duration,
		Error:       err,
		Metadata:    metadata,
	})
}
