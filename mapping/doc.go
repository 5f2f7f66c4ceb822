// Package mapping turns span attributes into APM attributes.
//
// It renders ${key} templates, evaluates rule-table value mappings, runs attribute
// directives (including regex splitting) against a segment, transaction or trace, and
// finally reconciles the attributes no directive consumed onto the segment.
//
// Example:
//
//	attrs := mapping.FromKeyValues(span.Attributes())
//	consumed := mapping.KeySet{}
//	dst := mapping.Destination{Segment: seg, Transaction: tx}
//	mapping.ApplyDirectives(rule.Attributes, attrs, consumed, dst, false)
//	mapping.NewReconciler("").Reconcile(attrs, consumed, seg)
package mapping
