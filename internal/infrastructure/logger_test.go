package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/uanikitin/SurgIl-Dashboard-sub000/internal/config"
)

func lastEntry(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestNewLogger_Outputs(t *testing.T) {
	tests := []struct {
		name        string
		output      string
		wantConsole bool
		wantFile    bool
	}{
		{"console", "console", true, false},
		{"file", "file", false, true},
		{"both", "both", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var console bytes.Buffer
			logFile := filepath.Join(t.TempDir(), "out.log")

			logger, file, err := NewLogger(config.LoggingConfig{
				Level:    "info",
				Output:   tt.output,
				FilePath: logFile,
			}, &console)
			require.NoError(t, err)
			logger.Info("hello")

			assert.Equal(t, tt.wantConsole, console.Len() > 0)
			if !tt.wantFile {
				assert.Nil(t, file)
				return
			}
			require.NotNil(t, file)
			require.NoError(t, file.Close())
			content, err := os.ReadFile(logFile)
			require.NoError(t, err)
			assert.Equal(t, "hello", lastEntry(t, content)["msg"])
		})
	}
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level     string
		emitDebug bool
		emitWarn  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"WARN", false, true},
		{"error", false, false},
		{"bogus", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger, _, err := NewLogger(config.LoggingConfig{Level: tt.level, Output: "console"}, &buf)
			require.NoError(t, err)

			logger.Debug("debug line")
			assert.Equal(t, tt.emitDebug, strings.Contains(buf.String(), "debug line"))

			logger.Warn("warn line")
			assert.Equal(t, tt.emitWarn, strings.Contains(buf.String(), "warn line"))
		})
	}
}

func TestTraceIDInjection(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := NewLogger(config.LoggingConfig{Level: "debug", Output: "console"}, &buf)
	require.NoError(t, err)

	t.Run("explicit trace id", func(t *testing.T) {
		buf.Reset()
		ctx := WithTraceID(context.Background(), "batch-123")
		logger.InfoContext(ctx, "with trace")
		assert.Equal(t, "batch-123", lastEntry(t, buf.Bytes())["trace_id"])
	})

	t.Run("otel span", func(t *testing.T) {
		buf.Reset()
		tp := sdktrace.NewTracerProvider()
		defer func() { _ = tp.Shutdown(context.Background()) }()
		ctx, span := tp.Tracer("test").Start(context.Background(), "op")
		defer span.End()

		logger.With("component", "test").InfoContext(ctx, "in span")
		assert.Equal(t, span.SpanContext().TraceID().String(), lastEntry(t, buf.Bytes())["trace_id"])
	})

	t.Run("no trace", func(t *testing.T) {
		buf.Reset()
		logger.InfoContext(context.Background(), "plain")
		assert.NotContains(t, lastEntry(t, buf.Bytes()), "trace_id")
	})
}

func TestContextHelpers(t *testing.T) {
	ctx := EnsureTraceID(context.Background())
	traceID := GetTraceID(ctx)
	require.NotEmpty(t, traceID)

	assert.Equal(t, traceID, GetTraceID(EnsureTraceID(ctx)), "existing trace id must be kept")
	assert.NotEqual(t, traceID, GenerateTraceID())
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := NewLogger(config.LoggingConfig{Level: "info", Output: "console"}, &buf)
	require.NoError(t, err)

	WithComponent(logger, "scenario").Info("tagged")
	assert.Equal(t, "scenario", lastEntry(t, buf.Bytes())["component"])
}

func TestWithComponent_NilUsesDefault(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := NewLogger(config.LoggingConfig{Level: "info", Output: "console"}, &buf)
	require.NoError(t, err)
	prev := slog.Default()
	slog.SetDefault(logger)
	defer slog.SetDefault(prev)

	WithComponent(nil, "catalog").Info("tagged")
	assert.Equal(t, "catalog", lastEntry(t, buf.Bytes())["component"])
}
