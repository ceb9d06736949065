// Package metrics records custom events, metrics and traces to New Relic.
// Every function is a no-op when the context carries no application.
package metrics

import (
	"context"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
)

type contextKey struct{}

// NewRelicContextKey is the context key holding the *newrelic.Application.
var NewRelicContextKey = contextKey{}

// WithApplication returns a context carrying the New Relic application.
func WithApplication(ctx context.Context, app *newrelic.Application) context.Context {
	if app == nil {
		return ctx
	}
	return context.WithValue(ctx, NewRelicContextKey, app)
}

func applicationFrom(ctx context.Context) *newrelic.Application {
	nr, _ := ctx.Value(NewRelicContextKey).(*newrelic.Application)
	return nr
}

// RecordEvent records a new event with a name and set of key-value pairs
func RecordEvent(ctx context.Context, eventName string, kvPairs map[string]interface{}) {
	if nr := applicationFrom(ctx); nr != nil {
		nr.RecordCustomEvent(eventName, kvPairs)
	}
}

// RecordCount records a count metric
func RecordCount(ctx context.Context, metricName string, count uint64) {
	if nr := applicationFrom(ctx); nr != nil {
		nr.RecordCustomMetric(metricName, float64(count))
	}
}

// RecordDuration records a duration metric in milliseconds
func RecordDuration(ctx context.Context, metricName string, duration time.Duration) {
	if nr := applicationFrom(ctx); nr != nil {
		nr.RecordCustomMetric(metricName, float64(duration/time.Millisecond))
	}
}
