package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/lorrc/support-signals/internal/infrastructure/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_AddsServiceAndContextValues(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(logging.Config{
		Level:       "debug",
		Format:      "json",
		Output:      &buf,
		ServiceName: "support-signals",
		Environment: "test",
	})

	ctx := logging.WithRequestID(context.Background(), "req-1")
	ctx = logging.WithSnapshotID(ctx, "snap-1")
	logger.InfoContext(ctx, "signals computed", "threads", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "signals computed", entry["msg"])
	assert.Equal(t, "support-signals", entry["service"])
	assert.Equal(t, "test", entry["environment"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "snap-1", entry["snapshot_id"])
	assert.EqualValues(t, 3, entry["threads"])
}

func TestNewLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(logging.Config{Level: "warn", Output: &buf})

	logger.Info("dropped")
	assert.Zero(t, buf.Len())

	logger.Warn("malformed record skipped")
	assert.Contains(t, buf.String(), "malformed record skipped")
}

func TestContextAccessors(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, logging.GetRequestID(ctx))
	assert.Empty(t, logging.GetSnapshotID(ctx))

	ctx = logging.WithSnapshotID(logging.WithRequestID(ctx, "r"), "s")
	assert.Equal(t, "r", logging.GetRequestID(ctx))
	assert.Equal(t, "s", logging.GetSnapshotID(ctx))
}

func TestNewLogger_ComponentAndWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(logging.Config{Output: &buf, ServiceName: "support-signals"}).
		With("interval", "30s")

	ctx := logging.WithComponent(context.Background(), "refresher")
	logger.InfoContext(ctx, "refresh complete")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "refresher", entry["component"])
	assert.Equal(t, "30s", entry["interval"])
	assert.Equal(t, "support-signals", entry["service"])
	assert.NotContains(t, entry, "request_id")
}

func TestNewLogger_UnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(logging.Config{Level: "verbose", Output: &buf})

	logger.Debug("hidden")
	assert.Zero(t, buf.Len())

	logger.Info("shown")
	assert.Contains(t, buf.String(), "shown")
}
