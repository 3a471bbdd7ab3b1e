// Package logger builds the service's structured slog logger. Logs are
// written as JSON to stdout or, when a file is configured, to a rotating file.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for file logging.
const (
	maxSizeMB  = 50
	maxBackups = 5
	maxAgeDays = 28
)

// Options configures New.
type Options struct {
	Service string
	Level   slog.Level
	// File, when set, receives the logs instead of stdout.
	File string
	// Export, when set, also receives every record (e.g. an OTLP bridge).
	Export slog.Handler
}

// New creates a JSON slog.Logger tagged with the service name. The returned
// closer flushes the log file and is a no-op for stdout.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	var (
		w      io.Writer = os.Stdout
		closer io.Closer = nopCloser{}
	)
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0750); err != nil {
			return nil, nil, fmt.Errorf("creating log directory for %q: %w", opts.File, err)
		}
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
			Compress:   true,
		}
		w, closer = lj, lj
	}
	var handler slog.Handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: opts.Level})
	if opts.Export != nil {
		export := slogmulti.
			Pipe(slogmulti.NewEnabledInlineMiddleware(func(ctx context.Context, l slog.Level, next func(context.Context, slog.Level) bool) bool {
				return l >= opts.Level && next(ctx, l)
			})).
			Handler(opts.Export)
		handler = slogmulti.Fanout(handler, export)
	}
	return slog.New(handler).With("service", opts.Service), closer, nil
}

// NewWithWriter creates a JSON logger writing to w.
func NewWithWriter(w io.Writer, service string, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("service", service)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
