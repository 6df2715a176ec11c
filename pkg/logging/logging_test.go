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

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{LogLevel(999), "UNKNOWN"},
	}

	for _, test := range tests {
		result := test.level.String()
		if result != test.expected {
			t.Errorf("LogLevel(%d).String() = %s, expected %s", test.level, result, test.expected)
		}
	}
}

func TestLogLevel_SlogLevel(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
		{LogLevel(999), slog.LevelInfo}, // Default for unknown
	}

	for _, test := range tests {
		result := test.level.SlogLevel()
		if result != test.expected {
			t.Errorf("LogLevel(%d).SlogLevel() = %v, expected %v", test.level, result, test.expected)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"Warning", LevelWarn, false},
		{"WARN", LevelWarn, false},
		{"error", LevelError, false},
		{"CRITICAL", LevelError, false},
		{"", LevelInfo, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInitForCLI(t *testing.T) {
	var buf bytes.Buffer

	InitForCLI(LevelInfo, &buf)

	Info("test-subsystem", "test message %d", 42)

	output := buf.String()
	assert.Contains(t, output, "test message 42")
	assert.Contains(t, output, "test-subsystem")
	assert.Contains(t, output, "service=knowledgecore")
}

func TestCLILevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	InitForCLI(LevelInfo, &buf)

	Debug("test", "debug message")
	Info("test", "info message")

	output := buf.String()
	if strings.Contains(output, "debug message") {
		t.Error("Debug message should be filtered out at INFO level")
	}
	if !strings.Contains(output, "info message") {
		t.Error("Info message should appear at INFO level")
	}
}

func TestErrorIncludesCause(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelDebug, &buf)

	Error("test", errors.New("boom"), "operation failed")

	assert.Contains(t, buf.String(), "operation failed")
	assert.Contains(t, buf.String(), "boom")
}

func TestEventRedactsSensitiveKeys(t *testing.T) {
	var buf bytes.Buffer
	InitForJSON(LevelDebug, &buf)

	Event(LevelInfo, "Config", "loaded profile",
		slog.String("profile", "work"),
		slog.String("mnemonic_work", "abandon ability able about above absent"),
		slog.String("Authorization", "Bearer xyz"),
	)

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, "work", record["profile"])
	assert.Equal(t, RedactedValue, record["mnemonic_work"])
	assert.Equal(t, RedactedValue, record["Authorization"])
	assert.NotContains(t, buf.String(), "abandon")
	assert.NotContains(t, buf.String(), "xyz")
}

func TestIsSensitiveKey(t *testing.T) {
	assert.True(t, IsSensitiveKey("MNEMONIC_PERSONAL"))
	assert.True(t, IsSensitiveKey("auth_token"))
	assert.True(t, IsSensitiveKey("api_key"))
	assert.False(t, IsSensitiveKey("profile"))
	assert.False(t, IsSensitiveKey("space_id"))
}
