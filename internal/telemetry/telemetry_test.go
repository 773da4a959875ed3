package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"ai_chat_relay/internal/config"
)

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(context.Background(), config.TelemetryConfig{})
	require.NoError(t, err)
	assert.NotNil(t, shutdown)
	shutdown()
}

func TestInit_WritesSpans(t *testing.T) {
	file := filepath.Join(t.TempDir(), "traces", "relay.log")
	shutdown, err := Init(context.Background(), config.TelemetryConfig{
		Tracing:   true,
		TraceFile: file,
	})
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "test-span")
	span.End()
	shutdown()

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "test-span")
}
