package mapping

import (
	"github.com/aalemi-dev/apmbridge/apm"
	"github.com/aalemi-dev/apmbridge/expr"
)

// Target selects where an extracted attribute is written.
type Target string

const (
	// TargetSegment is the default.
	TargetSegment     Target = "segment"
	TargetTransaction Target = "transaction"
	TargetTrace       Target = "trace"
)

// Valid reports whether t is a known target. The empty target means segment.
func (t Target) Valid() bool {
	switch t {
	case "", TargetSegment, TargetTransaction, TargetTrace:
		return true
	}
	return false
}

// Destination is what a span's attributes can be written to. Either field may be nil.
type Destination struct {
	Segment     *apm.Segment
	Transaction *apm.Transaction
}

// AssignToTarget writes name=value to the selected target. Transaction targets go
// through Transaction.SetField, so statusCode, url, verb, host and port update the
// transaction's own fields. Trace targets become trace attributes visible to every
// destination.
func AssignToTarget(target Target, name string, value any, dst Destination) {
	switch target {
	case TargetTransaction:
		if dst.Transaction != nil {
			dst.Transaction.SetField(name, value)
		}
	case TargetTrace:
		if dst.Transaction != nil {
			dst.Transaction.Trace().AddAttribute(apm.DestinationCommon, name, value)
		}
	default:
		if dst.Segment != nil {
			dst.Segment.AddAttribute(name, value)
		}
	}
}

// ApplyDirectives runs a rule's attribute directives against attrs. In high security
// mode, directives flagged HighSecurity are dropped but their source is still marked
// consumed so it is never copied later.
func ApplyDirectives(directives []AttributeDirective, attrs Attributes, consumed KeySet, dst Destination, highSecurity bool) {
	for i := range directives {
		d := &directives[i]
		v, ok := ExtractAttributeValue(&d.Source, d.Name, attrs, consumed)
		if !ok {
			continue
		}
		if highSecurity && d.HighSecurity {
			continue
		}
		if d.Regex != nil {
			ProcessRegex(d.Regex, expr.ToString(v), d.Target, dst)
			continue
		}
		if name := d.DestinationName(); name != "" {
			AssignToTarget(d.Target, name, v, dst)
		}
	}
}
