package logging

import (
	"bytes"
	"os"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want log.Level
	}{
		{"debug", log.DebugLevel},
		{"TRACE", log.DebugLevel},
		{" warn ", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"", log.InfoLevel},
		{"chatty", log.InfoLevel},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ParseLevel(tc.in), tc.in)
	}
}

func TestLogShapes(t *testing.T) {
	var buf bytes.Buffer
	Init(&buf, "debug")
	defer Init(os.Stderr, "info")

	Info("probe took %dms", 42)
	Warn("probe failed", "endpoint", "https://hf/x")
	Debug("plain")

	out := buf.String()
	assert.Contains(t, out, "probe took 42ms")
	assert.Contains(t, out, "endpoint=https://hf/x")
	assert.Contains(t, out, "plain")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(&buf, "warn")
	defer Init(os.Stderr, "info")

	Info("hidden")
	Error("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestHasFmtVerb(t *testing.T) {
	assert.True(t, hasFmtVerb("value %d"))
	assert.False(t, hasFmtVerb("100%% sure"))
	assert.False(t, hasFmtVerb("no verbs"))
}
