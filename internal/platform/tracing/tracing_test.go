package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"doccenter/internal/platform/config"
)

func TestSetupWithoutEndpointKeepsGlobalProvider(t *testing.T) {
	before := otel.GetTracerProvider()

	p, err := Setup(context.Background(), config.Tracing{}, "doccenter", "test")
	require.NoError(t, err)

	assert.Same(t, before, otel.GetTracerProvider())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	assert.Contains(t, sampler(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased{0.25}")
}

func TestNewProviderRecordsSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := NewProvider(sdktrace.WithSpanProcessor(rec))
	p := &Provider{TracerProvider: tp, shutdown: tp.Shutdown}

	_, span := p.Tracer("doccenter/test").Start(context.Background(), "lending.CreateLoan")
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))

	require.Len(t, rec.Ended(), 1)
	assert.Equal(t, "lending.CreateLoan", rec.Ended()[0].Name())
}
