// Package processor converts OpenTelemetry spans into APM transactions as they run.
//
// SpanProcessor is an sdktrace.SpanProcessor. When a span starts it is matched against
// the active rule table and the synthesizer creates a transaction, or a segment inside
// the transaction the span runs in. The result is kept in a map keyed by span id until
// the span ends. Every started span gets an entry, so a span that matched no rule
// still passes its transaction on to its children.
//
// When a matched span ends the processor completes its segment:
//
//   - status code and description, instrumentation scope name and version
//   - duration
//   - exception events of failed spans, reported against the transaction
//   - span links and events
//   - the rule's attribute directives, then every remaining span attribute
//
// and, when the span started the transaction, names the transaction and ends it. Only
// that span ends the transaction; a server or consumer span that started inside an
// active transaction becomes an internal segment and never writes transaction fields.
//
// Web transactions are named from, in order of preference, a user naming rule for the
// URL path, the route recorded in the NameState, a partial name and the raw URL path.
// 404, 405 and 501 responses replace the path with a fixed name.
//
// SpanProcessor also implements apm.ContextManager, so instrumentation can look up the
// transaction of the current span and record its route:
//
//	ambient := proc.Ambient(ctx)
//	if ambient.Transaction != nil {
//		ambient.Transaction.NameState().AppendPath("/users/:id", nil)
//	}
package processor
