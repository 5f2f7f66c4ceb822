package observability

// NoOpObserver discards every operation.
type NoOpObserver struct{}

// ObserveOperation does nothing.
func (n *NoOpObserver) ObserveOperation(ctx OperationContext) {}

// NewNoOpObserver creates a new NoOpObserver.
func NewNoOpObserver() Observer {
	return &NoOpObserver{}
}

// Multi fans every operation out to several observers. Nil entries are skipped.
type Multi []Observer

// ObserveOperation calls every observer in order.
func (m Multi) ObserveOperation(ctx OperationContext) {
	for _, o := range m {
		if o != nil {
			o.ObserveOperation(ctx)
		}
	}
}

// Combine returns a single observer for the non-nil observers given, or nil when
// there are none.
func Combine(observers ...Observer) Observer {
	var out Multi
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	default:
		return out
	}
}
