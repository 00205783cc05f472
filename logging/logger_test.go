package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   LogLevelDebug,
		"INFO":    LogLevelInfo,
		"":        LogLevelInfo,
		"warning": LogLevelWarn,
		" error ": LogLevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNew_JSONWithComponentAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: LogLevelWarn, Format: "json", Output: &buf, Component: "graph"})

	l.Info("dropped")
	l.Warn("kept", "node", "query")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "graph", entry["component"])
	assert.Equal(t, "query", entry["node"])
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	l := With(New(&Config{Format: "text", Output: &buf}), "conversation_id", "c1")
	l.Info("hello")
	assert.Contains(t, buf.String(), "conversation_id=c1")

	assert.Equal(t, NoOpLogger{}, With(NoOpLogger{}, "k", "v"))
}
