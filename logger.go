package docmap

import (
	"log/slog"
	"os"

	"github.com/hupe1980/docmap/core"
)

// Logger wraps slog.Logger with docmap-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithDocType adds a document type field to the logger.
func (l *Logger) WithDocType(docType string) *Logger {
	return &Logger{
		Logger: l.Logger.With("doc_type", docType),
	}
}

// LogPut logs a put submission.
func (l *Logger) LogPut(docType string, gid core.GID, lid core.LID, serial core.SerialNum) {
	l.Debug("put submitted",
		"doc_type", docType,
		"gid", gid.String(),
		"lid", uint32(lid),
		"serial", uint64(serial),
	)
}

// LogRemove logs a remove submission.
func (l *Logger) LogRemove(docType string, gid core.GID, serial core.SerialNum) {
	l.Debug("remove submitted",
		"doc_type", docType,
		"gid", gid.String(),
		"serial", uint64(serial),
	)
}

// LogListenerAdded logs a listener registration.
func (l *Logger) LogListenerAdded(docType, name string) {
	l.Info("listener added",
		"doc_type", docType,
		"listener", name,
	)
}

// LogClose logs DB shutdown.
func (l *Logger) LogClose(docTypes int) {
	l.Info("docmap closed",
		"doc_types", docTypes,
	)
}
