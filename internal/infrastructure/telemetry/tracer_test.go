package telemetry

import (
	"context"
	"testing"

	"github.com/erp/procurement/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"
)

func TestNewTracerProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	tp, err := NewTracerProvider(ctx, config.TelemetryConfig{
		Enabled:           false,
		CollectorEndpoint: "localhost:14317",
		ServiceName:       "procurement-test",
	}, zaptest.NewLogger(t))

	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("test"))
	assert.NoError(t, tp.ForceFlush(ctx))
	assert.NoError(t, tp.Shutdown(ctx))
}

func TestNewTracerProviderWithProcessor(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp, err := NewTracerProviderWithProcessor(config.TelemetryConfig{
		SamplingRatio: 1.0,
		ServiceName:   "procurement-test",
	}, recorder, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer tp.Shutdown(context.Background())

	assert.True(t, tp.IsEnabled())

	_, span := tp.Tracer("test").Start(context.Background(), "purchasing.Transition")
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "purchasing.Transition", ended[0].Name())

	var serviceName string
	for _, kv := range ended[0].Resource().Attributes() {
		if kv.Key == "service.name" {
			serviceName = kv.Value.AsString()
		}
	}
	assert.Equal(t, "procurement-test", serviceName)
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{1.0, sdktrace.ParentBased(sdktrace.AlwaysSample()).Description()},
		{1.5, sdktrace.ParentBased(sdktrace.AlwaysSample()).Description()},
		{0, sdktrace.ParentBased(sdktrace.NeverSample()).Description()},
		{0.25, sdktrace.ParentBased(sdktrace.TraceIDRatioBased(0.25)).Description()},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Sampler(tt.ratio).Description())
	}
}
