// Package logger wraps logrus with the configuration knobs used across the
// explorer binaries.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// LoggingConfig mirrors the logging section of the application config.
type LoggingConfig struct {
	Level      string
	Format     string
	Output     string
	FilePrefix string
}

// Logger is a logrus logger carrying the component it was created for.
type Logger struct {
	*logrus.Logger
	component string
}

// New builds a logger from configuration. Unknown levels fall back to info,
// unknown outputs to stdout.
func New(cfg LoggingConfig) *Logger {
	base := logrus.New()

	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	base.SetLevel(level)

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "json":
		base.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	default:
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	}

	base.SetOutput(resolveOutput(cfg))

	return &Logger{Logger: base}
}

// NewDefault returns a text logger at info level tagged with the component name.
func NewDefault(component string) *Logger {
	l := New(LoggingConfig{Level: "info", Format: "text", Output: "stdout"})
	l.component = component
	return l
}

// Component returns a child entry tagged with the component name, or the
// bare logger fields when none was set.
func (l *Logger) Component() *logrus.Entry {
	if l.component == "" {
		return logrus.NewEntry(l.Logger)
	}
	return l.Logger.WithField("component", l.component)
}

// WithField tags the entry with the logger component before adding the field.
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.Component().WithField(key, value)
}

// WithFields tags the entry with the logger component before adding the fields.
func (l *Logger) WithFields(fields logrus.Fields) *logrus.Entry {
	return l.Component().WithFields(fields)
}

// WithError tags the entry with the logger component before adding the error.
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.Component().WithError(err)
}

// Named derives a logger sharing output, level and formatter with a different
// component tag.
func (l *Logger) Named(component string) *Logger {
	return &Logger{Logger: l.Logger, component: component}
}

// Discard returns a logger that drops everything. Used by tests and examples.
func Discard() *Logger {
	l := New(LoggingConfig{Level: "panic"})
	l.SetOutput(io.Discard)
	return l
}

func resolveOutput(cfg LoggingConfig) io.Writer {
	switch strings.ToLower(strings.TrimSpace(cfg.Output)) {
	case "stderr":
		return os.Stderr
	case "file":
		prefix := cfg.FilePrefix
		if prefix == "" {
			prefix = "explorer"
		}
		name := fmt.Sprintf("%s-%s.log", prefix, time.Now().UTC().Format("20060102"))
		if dir := filepath.Dir(prefix); dir != "." {
			_ = os.MkdirAll(dir, 0o755)
		}
		f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return os.Stdout
		}
		return f
	default:
		return os.Stdout
	}
}
