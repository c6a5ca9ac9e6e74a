// Package logger provides structured logging on top of log/slog.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"

	pkgcontext "github.com/snapsearch/snap-search/internal/pkg/context"
)

// Logger wraps slog.Logger with request and photo scoping helpers.
type Logger struct {
	*slog.Logger
}

// New creates a logger. Level is one of debug, info, warn, error; format is
// "json" or "text".
func New(level, format string) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return &Logger{Logger: slog.New(handler)}
}

// Default returns a text logger at info level.
func Default() *Logger {
	return New("info", "text")
}

// WithContext scopes the logger to the request ID carried by ctx, if any.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if reqID := pkgcontext.GetRequestID(ctx); reqID != "" {
		return &Logger{Logger: l.With("request_id", reqID)}
	}
	return l
}

// WithPhoto scopes the logger to a photo.
func (l *Logger) WithPhoto(photoID string) *Logger {
	return &Logger{Logger: l.With("photo_id", photoID)}
}

// WithError attaches an error to every line.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Logger: l.With("error", err.Error())}
}

// parseLevel accepts the common level names case-insensitively and
// falls back to info for anything it does not recognize.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
