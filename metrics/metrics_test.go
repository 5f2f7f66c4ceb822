package metrics_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aalemi-dev/apmbridge/apm"
	"github.com/aalemi-dev/apmbridge/metrics"
	"github.com/aalemi-dev/apmbridge/observability"
)

func newTestMetrics(t *testing.T) *metrics.Metrics {
	t.Helper()
	return metrics.NewMetrics(metrics.Config{
		ServiceName:               "test",
		SystemMetricsAddress:      metrics.Ptr(""),
		ApplicationMetricsAddress: metrics.Ptr(""),
	})
}

func TestNewMetrics_Endpoints(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		m := metrics.NewMetrics(metrics.Config{ServiceName: "test"})
		require.NotNil(t, m.SystemServer)
		require.NotNil(t, m.ApplicationServer)
		assert.Equal(t, metrics.DefaultSystemMetricsAddress, m.SystemServer.Addr)
		assert.Equal(t, metrics.DefaultApplicationMetricsAddress, m.ApplicationServer.Addr)
	})

	t.Run("disabled endpoints keep the application registry", func(t *testing.T) {
		m := newTestMetrics(t)
		assert.Nil(t, m.SystemServer)
		assert.Nil(t, m.SystemRegistry)
		assert.Nil(t, m.ApplicationServer)
		assert.NotNil(t, m.ApplicationRegistry)
	})

	t.Run("system collectors", func(t *testing.T) {
		m := metrics.NewMetrics(metrics.Config{
			ServiceName:               "test",
			SystemMetricsAddress:      metrics.Ptr(":0"),
			ApplicationMetricsAddress: metrics.Ptr(""),
		})
		n, err := testutil.GatherAndCount(m.SystemRegistry, "go_goroutines")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestCollector_Namespace(t *testing.T) {
	m := metrics.NewMetrics(metrics.Config{
		ServiceName:               "test",
		Namespace:                 "bridge",
		SystemMetricsAddress:      metrics.Ptr(""),
		ApplicationMetricsAddress: metrics.Ptr(""),
	})

	m.CreateCounter("things_total", "Things.", []string{"kind"}).WithLabelValues("a").Add(3)
	m.CreateGauge("open", "Open things.", nil).Set(2)

	expected := `
# HELP bridge_things_total Things.
# TYPE bridge_things_total counter
bridge_things_total{kind="a",service="test"} 3
# HELP bridge_open Open things.
# TYPE bridge_open gauge
bridge_open{service="test"} 2
`
	require.NoError(t, testutil.GatherAndCompare(m.ApplicationRegistry, strings.NewReader(expected),
		"bridge_things_total", "bridge_open"))
}

func TestOperationObserver(t *testing.T) {
	m := newTestMetrics(t)
	var o observability.Observer = metrics.NewOperationObserver(m)

	o.ObserveOperation(observability.OperationContext{
		Component: "processor", Operation: "synthesize", Resource: "server", Duration: time.Millisecond,
	})
	o.ObserveOperation(observability.OperationContext{
		Component: "processor", Operation: "synthesize", Resource: "server", Duration: 2 * time.Millisecond,
	})
	o.ObserveOperation(observability.OperationContext{
		Component: "rulesource", Operation: "update", Resource: "apm-rules", Error: errors.New("unknown rule type"),
	})

	expected := `
# HELP apmbridge_operations_total Completed bridge operations by component, operation, resource and status.
# TYPE apmbridge_operations_total counter
apmbridge_operations_total{component="processor",operation="synthesize",resource="server",service="test",status="ok"} 2
apmbridge_operations_total{component="rulesource",operation="update",resource="apm-rules",service="test",status="error"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.ApplicationRegistry, strings.NewReader(expected),
		"apmbridge_operations_total"))

	n, err := testutil.GatherAndCount(m.ApplicationRegistry, "apmbridge_operation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestTransactionSink(t *testing.T) {
	m := newTestMetrics(t)

	var forwarded []*apm.Transaction
	sink := metrics.NewTransactionSink(m, apm.SinkFunc(func(tx *apm.Transaction) {
		forwarded = append(forwarded, tx)
	}))

	start := time.Now()
	tx := apm.NewTransaction(apm.TransactionOptions{Start: start, Sink: sink})
	tx.SetType(apm.TypeWeb)
	_, err := tx.CreateSegment(apm.SegmentOptions{Name: "Datastore/select"})
	require.NoError(t, err)
	tx.AddException(apm.Exception{Message: "boom"})
	require.NoError(t, tx.End(start.Add(40*time.Millisecond)))

	require.Len(t, forwarded, 1)
	assert.Same(t, tx, forwarded[0])

	expected := `
# HELP apmbridge_transactions_total Ended transactions by type.
# TYPE apmbridge_transactions_total counter
apmbridge_transactions_total{service="test",type="web"} 1
# HELP apmbridge_transaction_exceptions_total Exceptions recorded on ended transactions.
# TYPE apmbridge_transaction_exceptions_total counter
apmbridge_transaction_exceptions_total{service="test",type="web"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.ApplicationRegistry, strings.NewReader(expected),
		"apmbridge_transactions_total", "apmbridge_transaction_exceptions_total"))

	n, err := testutil.GatherAndCount(m.ApplicationRegistry,
		"apmbridge_transaction_duration_seconds", "apmbridge_transaction_segments")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPendingSpansGauge(t *testing.T) {
	m := newTestMetrics(t)
	g := metrics.NewPendingSpansGauge(m)
	g.Set(3)
	g.Set(1)

	expected := `
# HELP apmbridge_pending_spans Spans started and not yet ended.
# TYPE apmbridge_pending_spans gauge
apmbridge_pending_spans{service="test"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.ApplicationRegistry, strings.NewReader(expected),
		"apmbridge_pending_spans"))
}

func TestTransactionSink_WithoutDownstream(t *testing.T) {
	m := newTestMetrics(t)
	sink := metrics.NewTransactionSink(m, nil)

	tx := apm.NewTransaction(apm.TransactionOptions{Sink: sink})
	assert.NotPanics(t, func() { require.NoError(t, tx.End(time.Now())) })
}
