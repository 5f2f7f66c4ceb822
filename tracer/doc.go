// Package tracer hosts the OpenTelemetry TracerProvider of the bridge.
//
// Spans started through a TracerClient run through every registered span processor,
// which is how instrumented code feeds the span processor that converts spans into
// segments and transactions. Export to an OTLP collector is optional and runs next to
// the conversion.
//
// Continuing a remote trace in a consumer:
//
//	ctx = client.SetCarrierOnContext(ctx, headers)
//	ctx, span := client.StartSpan(ctx, "orders process",
//	    tracer.WithKind(tracer.KindConsumer),
//	    tracer.WithAttributes(map[string]interface{}{"messaging.destination.name": "orders"}),
//	)
//	defer span.End()
//
// Propagating to a downstream service:
//
//	for k, v := range client.GetCarrier(ctx) {
//	    req.Header.Set(k, v)
//	}
//
// With fx, FXModule collects processors from the "span_processors" value group.
package tracer
