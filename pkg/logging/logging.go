package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// LogLevel defines the severity of the log entry.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String makes LogLevel satisfy the fmt.Stringer interface.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo // Default to INFO for unknown
	}
}

// ParseLevel converts a textual level (as found in LOG_LEVEL) into a LogLevel.
// WARNING and CRITICAL are accepted as aliases for WARN and ERROR.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug, nil
	case "INFO", "":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR", "CRITICAL":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("invalid log level: %s (must be one of DEBUG, INFO, WARNING, ERROR, CRITICAL)", s)
	}
}

// RedactedValue replaces the value of any sensitive attribute.
const RedactedValue = "[REDACTED]"

// sensitiveKeys are substrings that mark an attribute key as secret.
var sensitiveKeys = []string{
	"mnemonic",
	"secret",
	"password",
	"token",
	"authorization",
	"api_key",
	"credential",
}

// IsSensitiveKey reports whether an attribute key must never be logged in clear.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// redactAttr is installed as the handler's ReplaceAttr hook.
func redactAttr(groups []string, a slog.Attr) slog.Attr {
	if IsSensitiveKey(a.Key) {
		return slog.String(a.Key, RedactedValue)
	}
	return a
}

var (
	mu            sync.RWMutex
	defaultLogger *slog.Logger
)

func install(handler slog.Handler) {
	logger := slog.New(handler).With(slog.String("service", "knowledgecore"))
	mu.Lock()
	defaultLogger = logger
	mu.Unlock()
	slog.SetDefault(logger)
}

// InitForCLI initializes text logging to output at the given minimum level.
func InitForCLI(filterLevel LogLevel, output io.Writer) {
	install(slog.NewTextHandler(output, &slog.HandlerOptions{
		Level:       filterLevel.SlogLevel(),
		ReplaceAttr: redactAttr,
	}))
}

// InitForJSON initializes JSON logging, used when running as a long-lived gateway.
func InitForJSON(filterLevel LogLevel, output io.Writer) {
	install(slog.NewJSONHandler(output, &slog.HandlerOptions{
		Level:       filterLevel.SlogLevel(),
		ReplaceAttr: redactAttr,
	}))
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

func logInternal(level LogLevel, subsystem string, err error, attrs []slog.Attr, messageFmt string, args ...interface{}) {
	logger := current()
	if logger == nil {
		// Logging not initialized yet; keep warnings and errors visible.
		if level >= LevelWarn {
			fmt.Fprintf(os.Stderr, "%s [%s] %s: %s\n", time.Now().Format(time.RFC3339), level, subsystem, fmt.Sprintf(messageFmt, args...))
		}
		return
	}
	if !logger.Enabled(context.Background(), level.SlogLevel()) {
		return
	}

	msg := messageFmt
	if len(args) > 0 {
		msg = fmt.Sprintf(messageFmt, args...)
	}

	slogAttrs := make([]slog.Attr, 0, len(attrs)+2)
	slogAttrs = append(slogAttrs, slog.String("subsystem", subsystem))
	if err != nil {
		slogAttrs = append(slogAttrs, slog.String("error", err.Error()))
	}
	slogAttrs = append(slogAttrs, attrs...)

	logger.LogAttrs(context.Background(), level.SlogLevel(), msg, slogAttrs...)
}

// Debug logs a debug message.
func Debug(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelDebug, subsystem, nil, nil, messageFmt, args...)
}

// Info logs an informational message.
func Info(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelInfo, subsystem, nil, nil, messageFmt, args...)
}

// Warn logs a warning message.
func Warn(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelWarn, subsystem, nil, nil, messageFmt, args...)
}

// Error logs an error message.
func Error(subsystem string, err error, messageFmt string, args ...interface{}) {
	logInternal(LevelError, subsystem, err, nil, messageFmt, args...)
}

// Event logs a fixed message with structured attributes. Sensitive keys are redacted
// by the handler regardless of the value type.
func Event(level LogLevel, subsystem string, msg string, attrs ...slog.Attr) {
	logInternal(level, subsystem, nil, attrs, "%s", msg)
}
