package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartSpan_RecordsErrors(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	_, span := StartSpan(context.Background(), "availability.CheckConflicts", attribute.String("musician.id", "m-1"))
	EndSpan(span, errors.New("calendar down"))

	_, quiet := StartSpan(context.Background(), "pricing.CalculateRate")
	EndSpan(quiet, nil)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "availability.CheckConflicts", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.String("musician.id", "m-1"))
	assert.Equal(t, codes.Unset, spans[1].Status().Code)
}

type nopLogger struct{}

func (nopLogger) Warn(string, map[string]interface{}) {}

func TestNew_WithoutJaeger(t *testing.T) {
	o := New("gigbook-workers-test", "", nopLogger{})
	assert.Nil(t, o.tracerProvider)
	assert.NotPanics(t, func() {
		o.RecordJobProcessed(context.Background(), "check-musician-conflicts", "completed")
		o.Shutdown()
	})
}
