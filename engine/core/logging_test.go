package core

import (
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"Warn":    WarnLevel,
		" error ": ErrorLevel,
		"fatal":   FatalLevel,
	}
	for input, want := range cases {
		got, err := ParseLogLevel(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}
}

func TestParseLogLevelUnknown(t *testing.T) {
	level, err := ParseLogLevel("verbose")
	assert.EqualError(t, err, `unknown log level "verbose"`)
	assert.Equal(t, InfoLevel, level)
}

func TestLogLevelText(t *testing.T) {
	for _, level := range []LogLevel{DebugLevel, InfoLevel, WarnLevel, ErrorLevel, FatalLevel} {
		text, err := level.MarshalText()
		require.NoError(t, err)

		var decoded LogLevel
		require.NoError(t, decoded.UnmarshalText(text))
		assert.Equal(t, level, decoded)
	}
	assert.Equal(t, "LogLevel(9)", LogLevel(9).String())
}

func TestLogLevelUnmarshalTextKeepsValueOnError(t *testing.T) {
	level := ErrorLevel
	assert.Error(t, level.UnmarshalText([]byte("loud")))
	assert.Equal(t, ErrorLevel, level)

	require.NoError(t, level.UnmarshalText([]byte("DEBUG")))
	assert.Equal(t, DebugLevel, level)
}

func TestLogLevelCharm(t *testing.T) {
	assert.Equal(t, log.DebugLevel, DebugLevel.charm())
	assert.Equal(t, log.InfoLevel, InfoLevel.charm())
	assert.Equal(t, log.WarnLevel, WarnLevel.charm())
	assert.Equal(t, log.ErrorLevel, ErrorLevel.charm())
	assert.Equal(t, log.FatalLevel, FatalLevel.charm())
	assert.Equal(t, log.InfoLevel, LogLevel(9).charm())
}
