package apm

import (
	"time"

	"github.com/aalemi-dev/apmbridge/sqlparse"
)

// Recorder turns a finished segment into metric names. The set of recorders is closed;
// callers pick one of the types below.
type Recorder interface {
	MetricNames(seg *Segment, transactionName string) []string
	recorder()
}

// GenericRecorder reports the segment under its own name.
type GenericRecorder struct{}

// WebTransactionRecorder reports the base segment of a web transaction.
type WebTransactionRecorder struct{}

// MessageTransactionRecorder reports the base segment of a message transaction.
type MessageTransactionRecorder struct{}

// BackgroundTransactionRecorder reports the base segment of any other transaction.
type BackgroundTransactionRecorder struct{}

// ExternalRecorder reports an outbound call to Host.
type ExternalRecorder struct {
	Host    string
	Library string
}

// ProducerRecorder reports a message published to a broker.
type ProducerRecorder struct {
	System string
}

// DatastoreOperationRecorder reports a datastore call known only by its operation.
type DatastoreOperationRecorder struct {
	System    string
	Operation string
}

// DatastoreQueryRecorder reports a datastore call with a parsed statement.
type DatastoreQueryRecorder struct {
	System    string
	Statement sqlparse.Statement
}

func (GenericRecorder) recorder()               {}
func (WebTransactionRecorder) recorder()        {}
func (MessageTransactionRecorder) recorder()    {}
func (BackgroundTransactionRecorder) recorder() {}
func (ExternalRecorder) recorder()              {}
func (ProducerRecorder) recorder()              {}
func (DatastoreOperationRecorder) recorder()    {}
func (DatastoreQueryRecorder) recorder()        {}

func (GenericRecorder) MetricNames(seg *Segment, _ string) []string {
	return []string{seg.Name()}
}

func (WebTransactionRecorder) MetricNames(_ *Segment, txName string) []string {
	return []string{"HttpDispatcher", txName}
}

func (MessageTransactionRecorder) MetricNames(_ *Segment, txName string) []string {
	return []string{"OtherTransaction/all", "OtherTransaction/Message/all", txName}
}

func (BackgroundTransactionRecorder) MetricNames(_ *Segment, txName string) []string {
	return []string{"OtherTransaction/all", txName}
}

func (r ExternalRecorder) MetricNames(seg *Segment, _ string) []string {
	return []string{"External/all", "External/" + r.Host + "/all", seg.Name()}
}

func (r ProducerRecorder) MetricNames(seg *Segment, _ string) []string {
	return []string{"MessageBroker/" + r.System + "/all", seg.Name()}
}

func (r DatastoreOperationRecorder) MetricNames(seg *Segment, _ string) []string {
	return []string{
		"Datastore/all",
		"Datastore/" + r.System + "/all",
		"Datastore/operation/" + r.System + "/" + r.Operation,
		seg.Name(),
	}
}

func (r DatastoreQueryRecorder) MetricNames(seg *Segment, _ string) []string {
	return []string{
		"Datastore/all",
		"Datastore/" + r.System + "/all",
		"Datastore/operation/" + r.System + "/" + r.Statement.Operation,
		seg.Name(),
	}
}

// record writes every distinct name unscoped and the last one again scoped to the
// transaction.
func record(m *Metrics, r Recorder, seg *Segment, txName string, d time.Duration) {
	names := r.MetricNames(seg, txName)
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		m.Record(n, "", d)
	}
	if len(names) > 0 {
		m.Record(names[len(names)-1], txName, d)
	}
}
