package processor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/aalemi-dev/apmbridge/apm"
	"github.com/aalemi-dev/apmbridge/logger"
	"github.com/aalemi-dev/apmbridge/observability"
	"github.com/aalemi-dev/apmbridge/rules"
	"github.com/aalemi-dev/apmbridge/sqlparse"
	"github.com/aalemi-dev/apmbridge/synthesizer"
	"github.com/aalemi-dev/apmbridge/urlnaming"
)

const serverOnlyTable = `{
  "version": "1.0.0",
  "rules": [
    {"name": "HttpServer", "type": "server",
     "matcher": {"required_span_kinds": ["server"], "required_attribute_keys": ["http.request.method"]},
     "transaction": {"type": "web", "name": {"verb": "http.request.method", "path": "http.route"}}},
    {"name": "FallbackInternal", "type": "internal", "matcher": {"required_span_kinds": ["internal"]}}
  ]
}`

type recordingSink struct {
	mu  sync.Mutex
	txs []*apm.Transaction
}

func (s *recordingSink) TransactionEnded(tx *apm.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = append(s.txs, tx)
}

func (s *recordingSink) all() []*apm.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*apm.Transaction(nil), s.txs...)
}

type recordingObserver struct {
	mu  sync.Mutex
	ops []observability.OperationContext
}

func (o *recordingObserver) ObserveOperation(ctx observability.OperationContext) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops = append(o.ops, ctx)
}

func (o *recordingObserver) operations(name string) []observability.OperationContext {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []observability.OperationContext
	for _, op := range o.ops {
		if op.Operation == name {
			out = append(out, op)
		}
	}
	return out
}

type fixture struct {
	p      *SpanProcessor
	tracer trace.Tracer
	sink   *recordingSink
	logs   *observer.ObservedLogs
}

type options struct {
	cfg   Config
	table string
	namer urlnaming.Config
}

func newFixture(t *testing.T, opts options) fixture {
	t.Helper()

	store := rules.NewStore(nil)
	if opts.table != "" {
		e, err := rules.Load([]byte(opts.table))
		require.NoError(t, err)
		store = rules.NewStore(e)
	}
	if opts.cfg.Hostname == "" {
		opts.cfg.Hostname = "apm-host"
	}

	classifier, err := sqlparse.NewClassifier(sqlparse.Config{CacheSize: 16})
	require.NoError(t, err)
	t.Cleanup(classifier.Stop)

	namer, err := urlnaming.New(opts.namer)
	require.NoError(t, err)

	core, logs := observer.New(zapcore.DebugLevel)
	log := &logger.LoggerClient{Zap: zap.New(core)}

	sink := &recordingSink{}
	synth := synthesizer.New(synthesizer.Options{
		Rules:        store,
		Classifier:   classifier,
		Namer:        namer,
		Sink:         sink,
		HighSecurity: opts.cfg.HighSecurity,
	}).WithLogger(log)

	p := NewSpanProcessor(opts.cfg, synth, namer).WithLogger(log)
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(p))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	return fixture{
		p:      p,
		tracer: tp.Tracer("checkout-http", trace.WithInstrumentationVersion("1.4.0")),
		sink:   sink,
		logs:   logs,
	}
}

func (f fixture) server(ctx context.Context, kvs ...attribute.KeyValue) (context.Context, trace.Span) {
	return f.tracer.Start(ctx, "GET /users/:id", trace.WithSpanKind(trace.SpanKindServer), trace.WithAttributes(kvs...))
}

func TestServerSpan_EndsNamedWebTransaction(t *testing.T) {
	t.Parallel()
	f := newFixture(t, options{})

	_, span := f.server(context.Background(),
		attribute.String("http.request.method", "GET"),
		attribute.String("http.route", "/users/:id"),
		attribute.String("url.path", "/users/42"),
		attribute.Int("http.response.status_code", 200),
	)
	require.Equal(t, 1, f.p.Pending())
	span.End()

	txs := f.sink.all()
	require.Len(t, txs, 1)
	tx := txs[0]
	assert.Equal(t, "WebTransaction/GET//users/:id", tx.Name())
	assert.Equal(t, 200, tx.StatusCode())
	assert.Equal(t, "GET", tx.Verb())
	assert.Equal(t, "/users/42", tx.URL())
	assert.Equal(t, synthesizer.ServerTransport, tx.TransportType())
	assert.False(t, tx.IsActive())
	assert.True(t, tx.NameState().IsFrozen())
	assert.Equal(t, span.SpanContext().TraceID(), tx.TraceID())
	assert.Equal(t, 0, f.p.Pending())

	base := tx.BaseSegment()
	require.NotNil(t, base)
	assert.Equal(t, span.SpanContext().SpanID().String(), base.ID())
	status, _ := base.Attribute(AttrStatusCode)
	assert.Equal(t, "unset", status)
	scope, _ := base.Attribute(AttrScopeName)
	assert.Equal(t, "checkout-http", scope)
	library, _ := base.Attribute(AttrLibraryVersion)
	assert.Equal(t, "1.4.0", library)
}

func TestServerSpan_ChildrenAttachToTransaction(t *testing.T) {
	t.Parallel()
	f := newFixture(t, options{})

	ctx, root := f.server(context.Background(), attribute.String("http.request.method", "GET"))

	dbCtx, db := f.tracer.Start(ctx, "SELECT users", trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(
		attribute.String("db.system.name", "postgresql"),
		attribute.String("db.collection.name", "users"),
		attribute.String("db.operation.name", "SELECT"),
	))
	_, inner := f.tracer.Start(dbCtx, "decode rows")

	ambient := f.p.Ambient(dbCtx)
	require.NotNil(t, ambient.Transaction)

	inner.End()
	db.End()
	assert.Empty(t, f.sink.all(), "transaction must stay open until the server span ends")
	root.End()

	txs := f.sink.all()
	require.Len(t, txs, 1)
	tx := txs[0]
	assert.Same(t, ambient.Transaction, tx)

	segs := tx.Segments()
	require.Len(t, segs, 3)
	base := tx.BaseSegment()
	dbSeg := segs[1]
	assert.Same(t, base, dbSeg.Parent())
	assert.Equal(t, "Datastore/statement/Postgres/users/SELECT", dbSeg.Name())
	require.Len(t, dbSeg.Children(), 1)
	assert.Equal(t, "decode rows", dbSeg.Children()[0].Name())
	assert.Equal(t, 0, f.p.Pending())
}

func TestServerSpan_DemotedInsideActiveTransaction(t *testing.T) {
	t.Parallel()
	f := newFixture(t, options{})

	ctx, outer := f.server(context.Background(),
		attribute.String("http.request.method", "GET"),
		attribute.Int("http.response.status_code", 200),
	)
	_, nested := f.server(ctx,
		attribute.String("http.request.method", "POST"),
		attribute.Int("http.response.status_code", 500),
	)
	nested.End()
	outer.End()

	txs := f.sink.all()
	require.Len(t, txs, 1)
	tx := txs[0]
	assert.Equal(t, 200, tx.StatusCode(), "demoted span must not write transaction fields")
	assert.Equal(t, "GET", tx.Verb())

	segs := tx.Segments()
	require.Len(t, segs, 2)
	assert.Equal(t, "GET /users/:id", segs[1].Name())
	assert.IsType(t, apm.GenericRecorder{}, segs[1].Recorder())
	_, copied := segs[1].Attribute("http.response.status_code")
	assert.False(t, copied, "consumed attributes are never copied to the segment")
}

func TestConsumerSpan_TransportAndFrozenNameState(t *testing.T) {
	t.Parallel()
	f := newFixture(t, options{})

	_, span := f.tracer.Start(context.Background(), "orders process", trace.WithSpanKind(trace.SpanKindConsumer), trace.WithAttributes(
		attribute.String("messaging.system", "queueA"),
		attribute.String("messaging.operation", "process"),
		attribute.String("messaging.destination.name", "orders"),
	))
	span.End()

	txs := f.sink.all()
	require.Len(t, txs, 1)
	tx := txs[0]
	assert.Equal(t, "queueA", tx.TransportType())
	assert.Equal(t, apm.TypeMessage, tx.Type())
	assert.Equal(t, "OtherTransaction/Message/queueA/process/Named/orders", tx.Name())
	assert.Equal(t, "orders", tx.Attributes()["message.queueName"])

	ns := tx.NameState()
	assert.True(t, ns.IsFrozen())
	assert.False(t, ns.SetVerb("PUT"))
	assert.False(t, ns.AppendPath("late", nil))
	_, hasPath := ns.GetPath()
	assert.False(t, hasPath)
}

func TestHighSecurity(t *testing.T) {
	t.Parallel()

	attrs := []attribute.KeyValue{
		attribute.String("http.request.method", "GET"),
		attribute.String("url.query", "token=secret"),
		attribute.String("user_agent.original", "curl/8.0"),
	}

	for _, tc := range []struct {
		name         string
		highSecurity bool
	}{
		{"off", false},
		{"on", true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, options{cfg: Config{HighSecurity: tc.highSecurity}})

			_, span := f.server(context.Background(), attrs...)
			span.End()

			txs := f.sink.all()
			require.Len(t, txs, 1)
			tx := txs[0]

			agent, ok := tx.Trace().Get("request.headers.userAgent")
			assert.True(t, ok)
			assert.Equal(t, "curl/8.0", agent)

			query, ok := tx.Trace().Get("request.uri.query")
			assert.Equal(t, !tc.highSecurity, ok)
			if !tc.highSecurity {
				assert.Equal(t, "token=secret", query)
			}
			_, copied := tx.BaseSegment().Attribute("url.query")
			assert.False(t, copied, "consumed attributes are never copied to the segment")
		})
	}
}

func TestErrorStatus_RecordsExceptions(t *testing.T) {
	t.Parallel()
	f := newFixture(t, options{})

	_, span := f.server(context.Background(), attribute.String("http.request.method", "GET"))
	span.RecordError(errors.New("connection reset"), trace.WithStackTrace(true))
	span.AddEvent("exception")
	span.SetStatus(codes.Error, "upstream failed")
	span.End()

	txs := f.sink.all()
	require.Len(t, txs, 1)
	tx := txs[0]
	base := tx.BaseSegment()

	excs := tx.Exceptions()
	require.Len(t, excs, 2)
	assert.Equal(t, "connection reset", excs[0].Message)
	assert.Equal(t, "*errors.errorString", excs[0].Type)
	assert.NotEmpty(t, excs[0].Stack)
	assert.Equal(t, base.ID(), excs[0].SegmentID)
	assert.Equal(t, "Error in segment "+base.Name(), excs[1].Message)

	status, _ := base.Attribute(AttrStatusCode)
	assert.Equal(t, "error", status)
	desc, _ := base.Attribute(AttrStatusDescription)
	assert.Equal(t, "upstream failed", desc)
	assert.Len(t, base.TimedEvents(), 2)
}

func TestOkStatus_IgnoresExceptionEvents(t *testing.T) {
	t.Parallel()
	f := newFixture(t, options{})

	_, span := f.server(context.Background(), attribute.String("http.request.method", "GET"))
	span.RecordError(errors.New("retried"))
	span.SetStatus(codes.Ok, "")
	span.End()

	txs := f.sink.all()
	require.Len(t, txs, 1)
	assert.Empty(t, txs[0].Exceptions())
	status, _ := txs[0].BaseSegment().Attribute(AttrStatusCode)
	assert.Equal(t, "ok", status)
}

func TestLinksAndEvents(t *testing.T) {
	t.Parallel()
	f := newFixture(t, options{})

	linked := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		SpanID:  trace.SpanID{1, 2, 3, 4, 5, 6, 7, 8},
	})
	_, span := f.tracer.Start(context.Background(), "GET /", trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("http.request.method", "GET")),
		trace.WithLinks(trace.Link{SpanContext: linked, Attributes: []attribute.KeyValue{attribute.String("reason", "batch")}}),
	)
	at := time.Now()
	span.AddEvent("cache miss", trace.WithTimestamp(at), trace.WithAttributes(attribute.String("key", "user:42")))
	span.End()

	base := f.sink.all()[0].BaseSegment()
	links := base.SpanLinks()
	require.Len(t, links, 1)
	assert.Equal(t, linked.TraceID(), links[0].TraceID)
	assert.Equal(t, linked.SpanID(), links[0].SpanID)
	assert.Equal(t, "batch", links[0].Attributes["reason"])

	events := base.TimedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "cache miss", events[0].Name)
	assert.True(t, events[0].Timestamp.Equal(at))
	assert.Equal(t, "user:42", events[0].Attributes["key"])
}

func TestReconcile_CopiesUnconsumedAttributes(t *testing.T) {
	t.Parallel()
	f := newFixture(t, options{})

	ctx, root := f.server(context.Background(), attribute.String("http.request.method", "GET"))
	_, child := f.tracer.Start(ctx, "render", trace.WithAttributes(
		attribute.String("net.peer.name", "localhost"),
		attribute.String("template", "users/show"),
	))
	child.End()
	root.End()

	seg := f.sink.all()[0].Segments()[1]
	host, _ := seg.Attribute("net.peer.name")
	assert.Equal(t, "apm-host", host)
	tpl, _ := seg.Attribute("template")
	assert.Equal(t, "users/show", tpl)
}

func TestUnmatchedSpans(t *testing.T) {
	t.Parallel()
	f := newFixture(t, options{table: serverOnlyTable})

	t.Run("no transaction is created", func(t *testing.T) {
		_, span := f.tracer.Start(context.Background(), "GET example.com", trace.WithSpanKind(trace.SpanKindClient))
		require.Equal(t, 1, f.p.Pending())
		span.End()
		assert.Equal(t, 0, f.p.Pending())
		assert.Empty(t, f.sink.all())
		assert.Positive(t, f.logs.FilterMessage("span matched no rule").Len())
	})

	t.Run("children still find the transaction", func(t *testing.T) {
		ctx, root := f.server(context.Background(), attribute.String("http.request.method", "GET"))
		clientCtx, client := f.tracer.Start(ctx, "GET example.com", trace.WithSpanKind(trace.SpanKindClient))
		_, inner := f.tracer.Start(clientCtx, "parse response")
		inner.End()
		client.End()
		root.End()

		txs := f.sink.all()
		require.Len(t, txs, 1)
		segs := txs[0].Segments()
		require.Len(t, segs, 2)
		assert.Equal(t, "parse response", segs[1].Name())
		assert.Same(t, txs[0].BaseSegment(), segs[1].Parent())
	})
}

func TestNonRootSpanWithoutTransaction(t *testing.T) {
	t.Parallel()
	f := newFixture(t, options{})

	_, span := f.tracer.Start(context.Background(), "SELECT users", trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("db.system.name", "postgresql")))
	span.End()

	assert.Empty(t, f.sink.all())
	assert.Equal(t, 0, f.p.Pending())
	assert.Equal(t, 1, f.logs.FilterMessage("no active transaction for span").Len())
}

func TestWebNaming(t *testing.T) {
	t.Parallel()

	namer := urlnaming.Config{
		Obfuscation: []urlnaming.ReplacementRule{{Pattern: `/\d+`, Replacement: "/*"}},
		NamingRules: []urlnaming.NamingRule{{Pattern: `^/health.*`, Name: "/health", Terminate: true}},
	}

	cases := []struct {
		name  string
		attrs []attribute.KeyValue
		want  string
	}{
		{
			name: "route",
			attrs: []attribute.KeyValue{
				attribute.String("http.route", "/users/:id"),
				attribute.String("url.path", "/users/42"),
			},
			want: "WebTransaction/GET//users/:id",
		},
		{
			name:  "raw path",
			attrs: []attribute.KeyValue{attribute.String("url.path", "/users/42/orders/7")},
			want:  "WebTransaction/Uri/users/*/orders/*",
		},
		{
			name: "naming rule",
			attrs: []attribute.KeyValue{
				attribute.String("http.route", "/health/live"),
				attribute.String("url.path", "/health/live"),
			},
			want: "WebTransaction/NormalizedUri/health",
		},
		{
			name:  "no url",
			attrs: nil,
			want:  "WebTransaction/Uri/Unknown",
		},
		{
			name: "not found",
			attrs: []attribute.KeyValue{
				attribute.String("http.route", "/users/:id"),
				attribute.Int("http.response.status_code", 404),
			},
			want: "WebTransaction/GET/(not found)",
		},
		{
			name: "method not allowed",
			attrs: []attribute.KeyValue{
				attribute.String("url.path", "/users"),
				attribute.Int("http.response.status_code", 405),
			},
			want: "WebTransaction/GET/(method not allowed)",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, options{namer: namer})

			attrs := append([]attribute.KeyValue{attribute.String("http.request.method", "GET")}, tc.attrs...)
			_, span := f.server(context.Background(), attrs...)
			span.End()

			txs := f.sink.all()
			require.Len(t, txs, 1)
			assert.Equal(t, tc.want, txs[0].Name())
		})
	}
}

func TestRpcServer_TemplatePath(t *testing.T) {
	t.Parallel()
	f := newFixture(t, options{})

	_, span := f.tracer.Start(context.Background(), "checkout.Cart/Add", trace.WithSpanKind(trace.SpanKindServer), trace.WithAttributes(
		attribute.String("rpc.system", "grpc"),
		attribute.String("rpc.service", "checkout.Cart"),
		attribute.String("rpc.method", "Add"),
		attribute.Int("rpc.grpc.status_code", 5),
	))
	span.End()

	tx := f.sink.all()[0]
	assert.Equal(t, 404, tx.StatusCode())
	assert.Equal(t, "WebTransaction/GRPC/(not found)", tx.Name())
	assert.Equal(t, "/checkout.Cart/Add", tx.URL())
}

func TestFinalize_OtherTransactionFallback(t *testing.T) {
	t.Parallel()
	tx := apm.NewTransaction(apm.TransactionOptions{})
	assert.Equal(t, "OtherTransaction/Background/Unknown", otherName(tx))

	tx.NameState().AppendPath("jobs/cleanup", nil)
	assert.Equal(t, "OtherTransaction//jobs/cleanup", otherName(tx))

	tx.SetPartialName("Job/cleanup")
	assert.Equal(t, "OtherTransaction/Job/cleanup", otherName(tx))
}

func TestAmbient(t *testing.T) {
	t.Parallel()
	f := newFixture(t, options{})

	assert.Equal(t, apm.Ambient{}, f.p.Ambient(context.Background()))

	seeded := apm.NewTransaction(apm.TransactionOptions{})
	assert.Same(t, seeded, f.p.Ambient(apm.ContextWithTransaction(context.Background(), seeded)).Transaction)

	ctx, span := f.server(context.Background(), attribute.String("http.request.method", "GET"))
	ambient := f.p.Ambient(ctx)
	require.NotNil(t, ambient.Transaction)
	assert.Same(t, ambient.Transaction.BaseSegment(), ambient.Segment)

	ns := ambient.Transaction.NameState()
	ns.SetPrefix("Expressjs/")
	ns.AppendPath("/users/:id", nil)
	span.End()

	assert.Equal(t, "WebTransaction/Expressjs/GET//users/:id", f.sink.all()[0].Name())
	assert.Equal(t, apm.Ambient{}, f.p.Ambient(ctx), "ended spans are forgotten")
}

func TestObserver(t *testing.T) {
	t.Parallel()
	f := newFixture(t, options{table: serverOnlyTable})
	obs := &recordingObserver{}
	f.p.WithObserver(obs)

	ctx, root := f.server(context.Background(), attribute.String("http.request.method", "GET"))
	_, client := f.tracer.Start(ctx, "GET example.com", trace.WithSpanKind(trace.SpanKindClient))
	client.End()
	root.End()

	synth := obs.operations("synthesize")
	require.Len(t, synth, 1)
	assert.Equal(t, "processor", synth[0].Component)
	assert.Equal(t, string(rules.TypeServer), synth[0].Resource)
	assert.Equal(t, "HttpServer", synth[0].Metadata["rule"])

	assert.Len(t, obs.operations("unmatched"), 1)

	ended := obs.operations("end_transaction")
	require.Len(t, ended, 1)
	assert.Equal(t, "WebTransaction/Uri/Unknown", ended[0].SubResource)
	assert.NoError(t, ended[0].Error)
}

func TestShutdown_DropsOpenSpans(t *testing.T) {
	t.Parallel()
	f := newFixture(t, options{})

	_, span := f.server(context.Background(), attribute.String("http.request.method", "GET"))
	require.Equal(t, 1, f.p.Pending())

	require.NoError(t, f.p.Shutdown(context.Background()))
	assert.Equal(t, 0, f.p.Pending())
	assert.Equal(t, 1, f.logs.FilterMessage("span processor stopped with spans still open").Len())

	span.End()
	assert.Empty(t, f.sink.all(), "spans forgotten on shutdown never end their transaction")
	assert.NoError(t, f.p.ForceFlush(context.Background()))
}

type lastValueGauge struct {
	mu     sync.Mutex
	values []float64
}

func (g *lastValueGauge) Set(val float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values = append(g.values, val)
}

func (g *lastValueGauge) all() []float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]float64(nil), g.values...)
}

func TestPendingGauge(t *testing.T) {
	t.Parallel()
	f := newFixture(t, options{})
	g := &lastValueGauge{}
	f.p.WithPendingGauge(g)

	ctx, root := f.server(context.Background(), attribute.String("http.request.method", "GET"))
	_, child := f.tracer.Start(ctx, "work")
	child.End()
	root.End()
	assert.Equal(t, []float64{1, 2, 1, 0}, g.all())

	_, open := f.server(context.Background(), attribute.String("http.request.method", "GET"))
	require.NoError(t, f.p.Shutdown(context.Background()))
	assert.Equal(t, []float64{1, 2, 1, 0, 1, 0}, g.all())
	open.End()
}

func TestConcurrentRequests(t *testing.T) {
	t.Parallel()
	f := newFixture(t, options{})

	const n = 32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, root := f.server(context.Background(), attribute.String("http.request.method", "GET"))
			_, child := f.tracer.Start(ctx, "work")
			child.End()
			root.End()
		}()
	}
	wg.Wait()

	txs := f.sink.all()
	require.Len(t, txs, n)
	for _, tx := range txs {
		assert.Len(t, tx.Segments(), 2)
	}
	assert.Equal(t, 0, f.p.Pending())
}
