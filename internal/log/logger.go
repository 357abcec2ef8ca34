package log

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus entry with a component name
type Logger struct {
	entry     *logrus.Entry
	component string
}

// Config holds logger configuration
type Config struct {
	Level     string
	Format    string // json or text
	Component string
	Output    io.Writer
}

// DefaultConfig returns sensible defaults for logging
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		Format:    "json",
		Component: ComponentApp,
		Output:    os.Stdout,
	}
}

// New creates a new logger with the given configuration
func New(config Config) *Logger {
	base := logrus.New()
	if config.Output != nil {
		base.SetOutput(config.Output)
	} else {
		base.SetOutput(os.Stdout)
	}

	if strings.EqualFold(config.Format, "text") {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		base.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	base.SetLevel(level)

	component := config.Component
	if component == "" {
		component = ComponentApp
	}

	return &Logger{
		entry:     base.WithField(FieldComponent, component),
		component: component,
	}
}

// Discard returns a logger that writes nowhere, for tests
func Discard() *Logger {
	return New(Config{Level: "panic", Output: io.Discard})
}

// With returns a new logger with the given key/value pairs
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		entry:     l.entry.WithFields(pairs(args)),
		component: l.component,
	}
}

// WithFields returns a new logger carrying the structured fields
func (l *Logger) WithFields(fields LogFields) *Logger {
	return &Logger{
		entry:     l.entry.WithFields(logrus.Fields(fields)),
		component: l.component,
	}
}

// WithComponent returns a new logger with a specific component name
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		entry:     l.entry.WithField(FieldComponent, component),
		component: component,
	}
}

func (l *Logger) Info(msg string, args ...any) {
	l.entry.WithFields(pairs(args)).Info(msg)
}

func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.entry.WithContext(ctx).WithFields(pairs(args)).Info(msg)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.entry.WithFields(pairs(args)).Warn(msg)
}

func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.entry.WithContext(ctx).WithFields(pairs(args)).Warn(msg)
}

func (l *Logger) Error(msg string, args ...any) {
	l.entry.WithFields(pairs(args)).Error(msg)
}

func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.entry.WithContext(ctx).WithFields(pairs(args)).Error(msg)
}

func (l *Logger) Debug(msg string, args ...any) {
	l.entry.WithFields(pairs(args)).Debug(msg)
}

func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.entry.WithContext(ctx).WithFields(pairs(args)).Debug(msg)
}

// Log writes msg at the given level
func (l *Logger) Log(ctx context.Context, level logrus.Level, msg string, args ...any) {
	l.entry.WithContext(ctx).WithFields(pairs(args)).Log(level, msg)
}

// Component returns the logger's component name
func (l *Logger) Component() string {
	return l.component
}

// Entry exposes the underlying logrus entry for libraries that want one
func (l *Logger) Entry() *logrus.Entry {
	return l.entry
}

// pairs turns alternating key/value arguments into logrus fields.
// A trailing key without value is kept under "!BADKEY".
func pairs(args []any) logrus.Fields {
	fields := make(logrus.Fields, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		if i+1 >= len(args) {
			fields["!BADKEY"] = key
			break
		}
		if err, isErr := args[i+1].(error); isErr && err != nil {
			fields[key] = err.Error()
			continue
		}
		fields[key] = args[i+1]
	}
	return fields
}
