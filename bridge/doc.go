// Package bridge wires every apmbridge package into one fx application.
//
// Spans started through the provided tracer.Tracer (or any instrumentation using its
// TracerProvider) are converted by the span processor as they start and end. Ended
// transactions are counted by the metrics sink and handed to the "downstream" sink.
// The rule table comes from the configured source and is kept current by the Kafka
// watcher and the poller when they are enabled.
package bridge
