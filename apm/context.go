package apm

import "context"

type contextKey int

const (
	transactionKey contextKey = iota
	segmentKey
)

// ContextWithTransaction returns a copy of ctx carrying tx as the active transaction.
func ContextWithTransaction(ctx context.Context, tx *Transaction) context.Context {
	return context.WithValue(ctx, transactionKey, tx)
}

// ContextWithSegment returns a copy of ctx carrying seg and its transaction.
func ContextWithSegment(ctx context.Context, seg *Segment) context.Context {
	if seg == nil {
		return ctx
	}
	ctx = context.WithValue(ctx, transactionKey, seg.Transaction())
	return context.WithValue(ctx, segmentKey, seg)
}

// TransactionFromContext returns the transaction stored in ctx, or nil.
func TransactionFromContext(ctx context.Context) *Transaction {
	tx, _ := ctx.Value(transactionKey).(*Transaction)
	return tx
}

// SegmentFromContext returns the segment stored in ctx, or nil.
func SegmentFromContext(ctx context.Context) *Segment {
	seg, _ := ctx.Value(segmentKey).(*Segment)
	return seg
}

// Ambient is the unit of work a new span runs inside.
type Ambient struct {
	Transaction *Transaction
	Segment     *Segment
}

// ContextManager resolves the ambient transaction and segment for a context.
// Resolution is read-only: creating segments never writes back into a context.
type ContextManager interface {
	Ambient(ctx context.Context) Ambient
}

// ContextValues resolves the ambient unit of work from values stored with
// ContextWithTransaction and ContextWithSegment.
type ContextValues struct{}

func (ContextValues) Ambient(ctx context.Context) Ambient {
	return Active(TransactionFromContext(ctx), SegmentFromContext(ctx))
}

// Active normalizes a transaction/segment pair: ended transactions are dropped and a
// missing segment defaults to the transaction's base segment.
func Active(tx *Transaction, seg *Segment) Ambient {
	if tx == nil && seg != nil {
		tx = seg.Transaction()
	}
	if tx == nil || !tx.IsActive() {
		return Ambient{}
	}
	if seg == nil || seg.Transaction() != tx {
		seg = tx.BaseSegment()
	}
	if seg == nil {
		seg = tx.Root()
	}
	return Ambient{Transaction: tx, Segment: seg}
}
