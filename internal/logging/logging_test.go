package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextHandlerRendersAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := New(FormatText, &buf, slog.LevelDebug)

	logger.With("component", "build").WithGroup("bento").Info("pulled", "name", "iris_classifier", "size", 42)

	line := buf.String()
	assert.True(t, strings.HasPrefix(line, "INFO "), line)
	assert.Contains(t, line, "| pulled")
	assert.Contains(t, line, " component=build")
	assert.Contains(t, line, " bento.name=iris_classifier")
	assert.Contains(t, line, " bento.size=42")
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestTextHandlerQuotesErrorsAndSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger := New(FormatText, &buf, nil)

	logger.Error("failed", "error", errors.New("current user is not found"), "empty", "")

	assert.Contains(t, buf.String(), `error="current user is not found"`)
	assert.Contains(t, buf.String(), `empty=""`)
}

func TestTextHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	var level slog.LevelVar
	level.Set(slog.LevelWarn)
	logger := New(FormatText, &buf, &level)

	logger.Info("hidden")
	assert.Empty(t, buf.String())

	level.Set(slog.LevelInfo)
	logger.Info("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestAutoFormatFallsBackToJSONForNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	logger := NewCLI(&buf, nil)

	logger.Info("hello", "endpoint", "https://yatai.example.com")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "hello", record["msg"])
	assert.Equal(t, "https://yatai.example.com", record["endpoint"])
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		" err ":   slog.LevelError,
	}
	for input, want := range cases {
		got, err := ParseLevel(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestEnsureFallsBackToDefault(t *testing.T) {
	assert.Same(t, slog.Default(), Ensure(nil))

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	assert.Same(t, logger, Ensure(logger))
}

func TestIsTerminalRejectsPlainWriters(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}
