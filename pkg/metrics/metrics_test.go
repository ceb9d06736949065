package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNoApplication(t *testing.T) {
	ctx := WithApplication(context.Background(), nil)
	assert.Nil(t, applicationFrom(ctx))

	// None of these should panic without an application or transaction.
	RecordEvent(ctx, "event", map[string]interface{}{"k": "v"})
	RecordCount(ctx, "count", 1)
	RecordDuration(ctx, "duration", time.Second)

	tracer := TraceMethodCall(ctx, "pkg", "Method")
	assert.Nil(t, tracer)
	assert.Equal(t, ctx, tracer.Context(ctx))
	tracer.AddAttribute("k", "v")
	tracer.AddAttributes(map[string]interface{}{"k": "v"})
	tracer.OnError(errors.New("err"))
	tracer.End()
}

func TestForwardedMessage(t *testing.T) {
	entry := logrus.NewEntry(logrus.New())
	entry.Message = "issued"
	assert.Equal(t, "issued", forwardedMessage(entry))

	entry = entry.WithFields(logrus.Fields{
		"ticket":   "00112233-4455-6677-8899-aabbccddeeff",
		"attempts": 2,
		"error":    errors.New("boom"),
	})
	entry.Message = "issued"
	assert.Equal(
		t,
		`message="issued", error="boom", data={"attempts":2,"ticket":"00112233-4455-6677-8899-aabbccddeeff"}`,
		forwardedMessage(entry),
	)

	// Values that cannot be marshalled fall back to their printed form.
	entry = entry.WithField("updates", make(chan int))
	entry.Message = "issued"
	assert.Contains(t, forwardedMessage(entry), `"updates":"0x`)
}
