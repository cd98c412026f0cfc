package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	otelcodes "go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// withTestTracer routes the package tracer into an in-memory exporter for the
// duration of one test.
func withTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	// The global delegate binds the package tracer to the first provider it
	// ever sees, so swap the package tracer directly for this test.
	prevTracer := tracer
	tracer = provider.Tracer("srplerp/tx")
	t.Cleanup(func() {
		tracer = prevTracer
		otel.SetTracerProvider(prev)
	})
	return exporter
}

// nestedTxContext simulates running inside an already-open transaction, which
// lets the manager execute fn without touching a database.
func nestedTxContext() context.Context {
	return context.WithValue(context.Background(), txKey{}, &Tx{nested: true})
}

func TestRunInTransaction_FailureRecordedOnSpan(t *testing.T) {
	exporter := withTestTracer(t)
	m := &TxManager{}

	txErr := errors.New("could not serialize access")
	err := m.RunInTransaction(nestedTxContext(), func(ctx context.Context) error {
		return txErr
	})
	require.ErrorIs(t, err, txErr)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, otelcodes.Error, spans[0].Status.Code)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "exception", spans[0].Events[0].Name)
}

func TestRunInTransaction_SuccessLeavesSpanClean(t *testing.T) {
	exporter := withTestTracer(t)
	m := &TxManager{}

	err := m.RunInTransaction(nestedTxContext(), func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, otelcodes.Unset, spans[0].Status.Code)
	assert.Empty(t, spans[0].Events)
}
