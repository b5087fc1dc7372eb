package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	for _, level := range []string{"", "debug", "info", "warn", "warning", "error", "fatal", "disabled", "DEBUG"} {
		_, err := parseLogLevel(level)
		assert.NoError(t, err, level)
	}

	_, err := parseLogLevel("chatty")
	assert.Error(t, err)
}

func TestNewRejectsInvalidLevel(t *testing.T) {
	_, err := New(&Config{Level: "chatty"})
	require.Error(t, err)
}

func TestTestLoggerCapturesEntries(t *testing.T) {
	l := NewTestLogger()

	l.Info("plain message")
	l.InfoWithFields("with fields", map[string]interface{}{"count": 3})
	l.WithField("request_id", "abc").Warn("bound field")
	l.WithError(assert.AnError).Error("failed")

	entries := l.Entries()
	require.Len(t, entries, 4)

	assert.Equal(t, "info", entries[0].Level)
	assert.Equal(t, "plain message", entries[0].Message)

	assert.Equal(t, 3, entries[1].Fields["count"])
	assert.Equal(t, "abc", entries[2].Fields["request_id"])
	assert.Equal(t, assert.AnError.Error(), entries[3].Fields["error"])

	assert.True(t, l.HasMessage("bound"))
	assert.False(t, l.HasMessage("missing"))
}

func TestWithFieldsAccumulate(t *testing.T) {
	l := NewTestLogger()

	bound := l.WithFields(map[string]interface{}{"a": 1}).WithField("b", 2)
	bound.InfoWithFields("msg", map[string]interface{}{"c": 3})

	entries := l.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Fields["a"])
	assert.Equal(t, 2, entries[0].Fields["b"])
	assert.Equal(t, 3, entries[0].Fields["c"])
}
