package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantLevel zapcore.Level
	}{
		{name: "console info", cfg: Config{Level: "info", Format: "console"}, wantLevel: zapcore.InfoLevel},
		{name: "json debug", cfg: Config{Level: "DEBUG", Format: "json"}, wantLevel: zapcore.DebugLevel},
		{name: "stderr warn", cfg: Config{Level: "warn", Output: "stderr"}, wantLevel: zapcore.WarnLevel},
		{name: "unknown level falls back to info", cfg: Config{Level: "verbose"}, wantLevel: zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.cfg)
			require.NoError(t, err)
			assert.True(t, log.Core().Enabled(tt.wantLevel))
			if tt.wantLevel > zapcore.DebugLevel {
				assert.False(t, log.Core().Enabled(tt.wantLevel-1))
			}
		})
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "procurement.log")

	log, err := New(Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)
	log.Info("order submitted", zap.String("order_number", "PO-20240315-abcdef"))
	require.NoError(t, log.Sync())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"msg":"order submitted"`)
	assert.Contains(t, string(content), `"order_number":"PO-20240315-abcdef"`)
}

func TestNew_UnwritableFile(t *testing.T) {
	_, err := New(Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
	assert.Error(t, err)
}

func TestNewForEnvironment(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		log, err := NewForEnvironment(env)
		require.NoError(t, err)
		assert.NotNil(t, log)
	}
}

func TestContextHelpers(t *testing.T) {
	t.Run("FromContext returns nop logger when absent", func(t *testing.T) {
		assert.NotNil(t, FromContext(context.Background()))
		assert.Empty(t, GetRequestID(context.Background()))
	})

	t.Run("WithRequestID enriches the logger", func(t *testing.T) {
		core, recorded := observer.New(zapcore.InfoLevel)

		ctx, _ := WithRequestID(context.Background(), zap.New(core), "req-42")
		assert.Equal(t, "req-42", GetRequestID(ctx))

		FromContext(ctx).Info("hello")
		require.Len(t, recorded.All(), 1)
		assert.Equal(t, "req-42", recorded.All()[0].ContextMap()["request_id"])
	})

	t.Run("L adds trace ids from the active span", func(t *testing.T) {
		core, recorded := observer.New(zapcore.InfoLevel)
		traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
		spanID, _ := trace.SpanIDFromHex("0102030405060708")
		spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    traceID,
			SpanID:     spanID,
			TraceFlags: trace.FlagsSampled,
		})
		ctx := trace.ContextWithSpanContext(WithContext(context.Background(), zap.New(core)), spanCtx)

		L(ctx).Info("traced")

		fields := recorded.All()[0].ContextMap()
		assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", fields["trace_id"])
		assert.Equal(t, "0102030405060708", fields["span_id"])
	})

	t.Run("WithTraceContext leaves logger unchanged without span", func(t *testing.T) {
		core, recorded := observer.New(zapcore.InfoLevel)
		log := zap.New(core)

		WithTraceContext(context.Background(), log).Info("plain")
		assert.Empty(t, recorded.All()[0].ContextMap())
	})
}
