package telemetry

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func countLines(buf *bytes.Buffer) int {
	s := strings.TrimSpace(buf.String())
	if s == "" {
		return 0
	}
	return len(strings.Split(s, "\n"))
}

func TestThrottledLoggerCollapsesRepeatedWarnings(t *testing.T) {
	var buf bytes.Buffer
	zl := New("info", &buf)
	l := NewThrottledLogger(Wrap(zl), time.Minute)

	l.Warn("router unavailable, falling back to chat plane", map[string]any{"error": "dial tcp: timeout"})
	l.Warn("router unavailable, falling back to chat plane", map[string]any{"error": "dial tcp: timeout"})
	l.Warn("router unavailable, falling back to chat plane", map[string]any{"error": "dial tcp: timeout"})

	require.Equal(t, 1, countLines(&buf))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "warn", line["level"])
	require.Equal(t, "router unavailable, falling back to chat plane", line["message"])
}

func TestThrottledLoggerDoesNotThrottleInfo(t *testing.T) {
	var buf bytes.Buffer
	zl := New("info", &buf)
	l := NewThrottledLogger(Wrap(zl), time.Minute)

	l.Info("memsvc serving", nil)
	l.Info("memsvc serving", nil)

	require.Equal(t, 2, countLines(&buf))
}

func TestThrottledLoggerDistinguishesMessagesAsKeys(t *testing.T) {
	var buf bytes.Buffer
	zl := New("info", &buf)
	l := NewThrottledLogger(Wrap(zl), time.Minute)

	l.Warn("router unavailable", nil)
	l.Warn("index unavailable", nil)

	require.Equal(t, 2, countLines(&buf))
}
