package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/support-signals/internal/core/domain"
)

const yamlSnapshot = `asOf: 2024-03-01T12:00:00Z
threads:
  - threadId: t-1
    owner: alice
    resolutionStatus: open
    actionPendingStatus: pending
    actionPendingFrom: company
    priority: P1
    dominantClusterName: Billing
    firstMessageAt: 2024-02-29T12:00:00Z
    lastMessageAt: 2024-03-01T08:00:00Z
  - threadId: t-2
    resolutionStatus: closed
    actionPendingStatus: completed
    priority: P4
    firstMessageAt: 2024-02-20T12:00:00Z
    lastMessageAt: 2024-02-22T12:00:00Z
  - threadId: ""
    resolutionStatus: open
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRun_YAMLDashboard(t *testing.T) {
	path := writeFile(t, "snapshot.yaml", yamlSnapshot)

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-input", path}, nil, &stdout, &stderr)
	require.NoError(t, err)

	var dashboard domain.Dashboard
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &dashboard))
	assert.Equal(t, 2, dashboard.ThreadCount)
	assert.Equal(t, 1, dashboard.SkippedRecords)
	assert.True(t, dashboard.AsOf.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))

	total := 0
	for _, sc := range dashboard.StageDistribution {
		total += sc.Count
	}
	assert.Equal(t, 2, total)
	assert.Contains(t, stderr.String(), "malformed record skipped")
}

func TestRun_JSONFromStdinWithView(t *testing.T) {
	input := `{"threads":[{"threadId":"t-1","resolutionStatus":"open","actionPendingStatus":"pending","priority":"P2","lastMessageAt":"2024-03-01T08:00:00Z"}]}`

	var stdout, stderr bytes.Buffer
	err := run(context.Background(),
		[]string{"-view", "queue-health", "-as-of", "2024-03-02T00:00:00Z"},
		strings.NewReader(input), &stdout, &stderr)
	require.NoError(t, err)

	var health domain.QueueHealth
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &health))
	assert.Equal(t, 1, health.TotalOpen)
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		in   string
	}{
		{"unknown view", []string{"-view", "tickets"}, "{}"},
		{"bad as-of", []string{"-as-of", "tomorrow"}, "{}"},
		{"bad json", nil, "{"},
		{"unknown format", []string{"-format", "toml"}, "{}"},
		{"missing file", []string{"-input", filepath.Join(t.TempDir(), "nope.json")}, ""},
		{"unknown flag", []string{"-verbose"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := run(context.Background(), tt.args, strings.NewReader(tt.in), &stdout, &stderr)
			assert.Error(t, err)
			assert.Empty(t, stdout.String())
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, "yaml", formatFromPath("snap.YML"))
	assert.Equal(t, "yaml", formatFromPath("snap.yaml"))
	assert.Equal(t, "json", formatFromPath("snap.json"))
	assert.Equal(t, "json", formatFromPath("-"))
}
