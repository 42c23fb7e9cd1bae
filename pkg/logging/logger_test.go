package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEntries(t *testing.T, buf *bytes.Buffer) []LogEntry {
	t.Helper()
	var out []LogEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e LogEntry
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		out = append(out, e)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"", InfoLevel, false},
		{" Warning ", WarnLevel, false},
		{"ERROR", ErrorLevel, false},
		{"fatal", FatalLevel, false},
		{"verbose", InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

func TestStructuredLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("hydro-test", "0.1.0", WarnLevel)
	logger.SetOutput(&buf)

	ctx := context.Background()
	logger.Debug(ctx, "dropped", nil)
	logger.Info(ctx, "dropped", nil)
	logger.Warn(ctx, "[TEST_WARN] kept", Fields{"n": 1})
	logger.Error(ctx, "[TEST_ERROR] kept", nil, errors.New("boom"))

	entries := decodeEntries(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "WARN", entries[0].Level)
	assert.Equal(t, "hydro-test", entries[0].Service)
	assert.Equal(t, float64(1), entries[0].Fields["n"])
	assert.Equal(t, "boom", entries[1].Error)
	assert.NotEmpty(t, entries[1].File)

	buf.Reset()
	logger.SetLevel(DebugLevel)
	logger.Debug(ctx, "now visible", nil)
	assert.Len(t, decodeEntries(t, &buf), 1)
}

func TestStructuredLogger_ContextIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("hydro-test", "0.1.0", DebugLevel)
	logger.SetOutput(&buf)

	ctx := WithRequestID(WithBuildID(context.Background(), "build-1"), "req-1")
	assert.Equal(t, "build-1", BuildIDFrom(ctx))
	assert.Equal(t, "", BuildIDFrom(context.Background()))

	logger.Info(ctx, "[TEST] ids", nil)
	entries := decodeEntries(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "build-1", entries[0].BuildID)
	assert.Equal(t, "req-1", entries[0].RequestID)
}

func TestContextLogger_MergesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("hydro-test", "0.1.0", DebugLevel)
	logger.SetOutput(&buf)

	log := logger.WithFields(Fields{"component": "graph", "stage": "base"})
	log.Info(context.Background(), "[TEST] merged", Fields{"stage": "override", "arcs": 3})

	entries := decodeEntries(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "graph", entries[0].Fields["component"])
	assert.Equal(t, "override", entries[0].Fields["stage"])
	assert.Equal(t, float64(3), entries[0].Fields["arcs"])
}

func TestStructuredLogger_NonFiniteFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("hydro-test", "0.1.0", InfoLevel)
	logger.SetOutput(&buf)

	logger.Info(context.Background(), "[TEST] limits", Fields{"max": math.Inf(1), "min": 2.5})

	entries := decodeEntries(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "+Inf", entries[0].Fields["max"])
	assert.Equal(t, 2.5, entries[0].Fields["min"])
}

func TestLogLevel_String(t *testing.T) {
	assert.Equal(t, "WARN", WarnLevel.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
	assert.True(t, NewNopLogger().Enabled(FatalLevel))
	assert.False(t, NewNopLogger().Enabled(ErrorLevel))
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	assert.NotPanics(t, func() {
		logger.Error(context.Background(), "[TEST] discarded", nil, errors.New("x"))
	})
}
