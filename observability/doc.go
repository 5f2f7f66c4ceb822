// Package observability defines the hook bridge components use to report completed
// operations.
//
// The span processor reports one operation per started span and one per ended
// transaction. Rule sources report every load, poll and pushed update. Applications
// plug in an Observer to turn these events into metrics (see metrics.OperationObserver),
// traces or logs:
//
//	type auditObserver struct{ log *logger.LoggerClient }
//
//	func (o *auditObserver) ObserveOperation(ctx observability.OperationContext) {
//	    if ctx.Component == "rulesource" && ctx.Error != nil {
//	        o.log.Warn("rule table rejected", ctx.Error, map[string]interface{}{
//	            "operation": ctx.Operation,
//	            "source":    ctx.Resource,
//	        })
//	    }
//	}
//
// Several observers are combined with Combine:
//
//	observer := observability.Combine(metricsObserver, &auditObserver{log: log})
//	p := processor.NewSpanProcessor(cfg, synth, namer).WithObserver(observer)
//
// Observers are called synchronously on the hot path of span conversion. They must
// be cheap and must not block.
package observability
