// Package telemetry wires the memory service to github.com/rs/zerolog
// for structured logging, and carries the per-interval log throttling
// and the job-record logging the indexing pipeline reports through.
package telemetry

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process-wide zerolog.Logger, writing JSON lines to w
// (os.Stdout when w is nil); there is no pretty console mode —
// following the convention of a single configured logger
// instance threaded through `.With().Logger()` per call site.
func New(level string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}
	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Logger adapts a zerolog.Logger to the dispatcher.Logger /
// pipeline-facing minimal logging surface used across internal/memsvc,
// so those packages never import zerolog directly.
type Logger struct {
	zl zerolog.Logger
}

// Wrap adapts an existing zerolog.Logger.
func Wrap(zl zerolog.Logger) Logger {
	return Logger{zl: zl}
}

func (l Logger) Warn(msg string, fields map[string]any) {
	ev := l.zl.Warn()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

func (l Logger) Info(msg string, fields map[string]any) {
	ev := l.zl.Info()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

func (l Logger) Error(msg string, err error, fields map[string]any) {
	ev := l.zl.Error().Err(err)
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}
