// Package apm is the trace model spans are converted into.
//
// A Transaction is the named, timed root of one request or message. It owns a tree of
// Segments hanging off a synthetic root segment, a NameState used to build its final
// name, a shared TraceAttributes store and the exceptions reported while it ran.
//
// Segments carry a Recorder chosen by the rule that created them. When the transaction
// ends, each recorder contributes metric names and the segment durations are folded
// into the transaction's Metrics table before the transaction is handed to the
// configured TransactionSink.
//
// The package also defines how the "current" unit of work is found. Nothing here keeps
// global state: callers either thread it through a context with ContextWithTransaction
// and ContextWithSegment, or supply their own ContextManager.
package apm
