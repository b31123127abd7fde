package service

import (
	"strings"
	"sync"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var (
	recorderOnce sync.Once
	recorder     *tracetest.SpanRecorder
)

// spanRecorder installs a recording provider once; the package tracer
// delegates to the first provider set globally.
func spanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorderOnce.Do(func() {
		recorder = tracetest.NewSpanRecorder()
		otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	})
	return recorder
}

func endedSpan(r *tracetest.SpanRecorder, name, description string) sdktrace.ReadOnlySpan {
	for _, span := range r.Ended() {
		if span.Name() == name && strings.Contains(span.Status().Description, description) {
			return span
		}
	}
	return nil
}
