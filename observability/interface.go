package observability

import "time"

// Observer receives one event per completed operation of the bridge components. It
// lets metrics, tracing or audit logging hook into span conversion and rule table
// updates without the components depending on any of them.
//
// Observers are optional; a nil observer is never called.
type Observer interface {
	// ObserveOperation is called when an operation completes. It is called from the
	// goroutine that ran the operation and must not block.
	ObserveOperation(ctx OperationContext)
}

// OperationContext describes a completed operation.
type OperationContext struct {
	// Component identifies the emitting package: "processor" or "rulesource".
	Component string

	// Operation describes what happened.
	//   processor:  "synthesize", "unmatched", "end_transaction"
	//   rulesource: "load", "poll", "update"
	Operation string

	// Resource is the primary subject of the operation.
	//   processor:  rule type ("server", "db") or transaction type ("web", "message")
	//   rulesource: source name or topic
	Resource string

	// SubResource adds detail to Resource (optional).
	//   processor:  span kind or final transaction name
	//   rulesource: partition
	SubResource string

	// Duration is how long the operation took.
	Duration time.Duration

	// Error is the error returned by the operation, nil on success.
	Error error

	// Size is the number of bytes involved, when it applies (optional).
	Size int64

	// Metadata carries operation specific details (optional), for example the rule
	// name of a synthesized span or the version of a loaded rule table.
	Metadata map[string]interface{}
}
