package metrics

import (
	"context"
	"fmt"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// TraceMethodCall traces a method call. Within an existing New Relic
// transaction it becomes a segment. Otherwise, when ctx only carries the
// application, a background transaction is started for the call. A nil
// tracer is returned, and is safe to use, when neither is available.
func TraceMethodCall(ctx context.Context, structOrPackageName, methodName string) *MethodTracer {
	name := fmt.Sprintf("%s %s", structOrPackageName, methodName)

	if txn := newrelic.FromContext(ctx); txn != nil {
		return &MethodTracer{
			txn: txn,
			seg: txn.StartSegment(name),
		}
	}

	if nr := applicationFrom(ctx); nr != nil {
		txn := nr.StartTransaction(name)
		return &MethodTracer{
			txn:   txn,
			owned: true,
		}
	}

	return nil
}

// MethodTracer collects analytics for a single method call.
type MethodTracer struct {
	txn   *newrelic.Transaction
	seg   *newrelic.Segment
	owned bool
}

// Context returns ctx carrying the traced transaction, so nested calls
// become segments of it.
func (t *MethodTracer) Context(ctx context.Context) context.Context {
	if t == nil {
		return ctx
	}
	return newrelic.NewContext(ctx, t.txn)
}

// AddAttribute adds a key-value pair metadata to the method trace
func (t *MethodTracer) AddAttribute(key string, value interface{}) {
	if t == nil {
		return
	}

	if t.seg != nil {
		t.seg.AddAttribute(key, value)
	} else {
		t.txn.AddAttribute(key, value)
	}
}

// AddAttributes adds a set of key-value pair metadata to the method trace
func (t *MethodTracer) AddAttributes(attributes map[string]interface{}) {
	for key, value := range attributes {
		t.AddAttribute(key, value)
	}
}

// OnError observes an error within a method trace
func (t *MethodTracer) OnError(err error) {
	if t == nil || err == nil {
		return
	}

	t.txn.NoticeError(err)
}

// End completes the trace, and the transaction when the tracer started it.
func (t *MethodTracer) End() {
	if t == nil {
		return
	}

	if t.seg != nil {
		t.seg.End()
	}
	if t.owned {
		t.txn.End()
	}
}
