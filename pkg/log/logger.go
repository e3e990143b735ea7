package log

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Level represents the severity level of a log message.
type Level int

// Log levels
const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a case-insensitive level name into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// Context keys propagated into log entries.
const (
	RequestIDKey = "request_id"
	ComponentKey = "component"
	OperationKey = "operation"
)

// Fields is a map of field names to values.
type Fields map[string]any

// Entry is a single formatted log record.
type Entry struct {
	Level     Level
	Message   string
	Fields    Fields
	Timestamp time.Time
	Caller    string
}

// Logger is the logging surface handed to every component.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	// With returns a child logger carrying the given fields.
	With(fields ...Field) Logger
	// WithError is shorthand for With(Err(err)).
	WithError(err error) Logger
	// WithContext picks up request scoped keys from ctx.
	WithContext(ctx context.Context) Logger

	SetLevel(level Level)
	GetLevel() Level
}

// Formatter renders an Entry.
type Formatter interface {
	Format(entry *Entry) ([]byte, error)
}

// Output receives formatted entries.
type Output interface {
	Write(entry *Entry, formatted []byte) error
	Close() error
}

// LoggerOption configures a BaseLogger.
type LoggerOption func(*BaseLogger)

// BaseLogger implements Logger.
type BaseLogger struct {
	level      *Level
	formatter  Formatter
	outputs    []Output
	slogLogger *slog.Logger
}

// NewLogger creates a new logger with the given options. Defaults are
// InfoLevel, JSON formatting and a console output.
func NewLogger(options ...LoggerOption) Logger {
	lvl := InfoLevel
	logger := &BaseLogger{
		level:     &lvl,
		formatter: &JSONFormatter{},
	}
	for _, option := range options {
		option(logger)
	}
	if len(logger.outputs) == 0 {
		logger.outputs = append(logger.outputs, NewConsoleOutput())
	}
	logger.slogLogger = slog.New(newBridgeHandler(logger))
	return logger
}

// WithLevel sets the minimum log level.
func WithLevel(level Level) LoggerOption {
	return func(l *BaseLogger) {
		*l.level = level
	}
}

// WithFormatter sets the log formatter.
func WithFormatter(formatter Formatter) LoggerOption {
	return func(l *BaseLogger) {
		l.formatter = formatter
	}
}

// WithOutput adds an output to the logger.
func WithOutput(output Output) LoggerOption {
	return func(l *BaseLogger) {
		l.outputs = append(l.outputs, output)
	}
}

func (l *BaseLogger) log(level Level, msg string, fields []Field) {
	if level < *l.level {
		return
	}
	l.slogLogger.LogAttrs(context.Background(), toSlogLevel(level), msg, attrsFromFields(fields)...)
}

func (l *BaseLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields) }
func (l *BaseLogger) Info(msg string, fields ...Field)  { l.log(InfoLevel, msg, fields) }
func (l *BaseLogger) Warn(msg string, fields ...Field)  { l.log(WarnLevel, msg, fields) }
func (l *BaseLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields) }

// Fatal logs at FatalLevel and exits the process.
func (l *BaseLogger) Fatal(msg string, fields ...Field) {
	l.log(FatalLevel, msg, fields)
	os.Exit(1)
}

func (l *BaseLogger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	child := *l
	child.slogLogger = l.slogLogger.With(attrsToAny(attrsFromFields(fields))...)
	return &child
}

func (l *BaseLogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return l.With(Err(err))
}

func (l *BaseLogger) WithContext(ctx context.Context) Logger {
	if ctx == nil {
		return l
	}
	var fields []Field
	for _, k := range []string{RequestIDKey, ComponentKey, OperationKey} {
		if v := ctx.Value(contextKey(k)); v != nil {
			fields = append(fields, Any(k, v))
		}
	}
	return l.With(fields...)
}

// SetLevel changes the level for this logger and every logger derived from it.
func (l *BaseLogger) SetLevel(level Level) { *l.level = level }

func (l *BaseLogger) GetLevel() Level { return *l.level }

type contextKey string

// ContextWith stores a request scoped value picked up by WithContext.
func ContextWith(ctx context.Context, key, value string) context.Context {
	return context.WithValue(ctx, contextKey(key), value)
}
