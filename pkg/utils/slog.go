package utils

import (
	"log/slog"
	"strings"
)

// ErrAttr returns a slog attribute for an error.
func ErrAttr(err error) slog.Attr {
	return slog.Any("error", err)
}

// SlogReplacer normalizes attribute values for log output: times are
// rendered as "2006-01-02 15:04:05" and durations in their string form.
func SlogReplacer(groups []string, a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindTime:
		a.Value = slog.StringValue(a.Value.Time().Format("2006-01-02 15:04:05"))
	case slog.KindDuration:
		a.Value = slog.StringValue(a.Value.Duration().String())
	}

	return a
}

// SlogWriter adapts a slog.Logger to io.Writer so libraries that expect a
// plain writer can log through slog.
type SlogWriter struct {
	logger *slog.Logger
}

// NewSlogWriter creates a new SlogWriter.
func NewSlogWriter(logger *slog.Logger) *SlogWriter {
	return &SlogWriter{logger: logger}
}

func (w *SlogWriter) Write(p []byte) (int, error) {
	for line := range strings.SplitSeq(string(p), "\n") {
		if line == "" {
			continue
		}

		w.logger.Info(line)
	}

	return len(p), nil
}

// LogOnError runs fn and logs msg with the error if fn fails.
// Useful for deferred cleanup calls.
func LogOnError(l *slog.Logger, fn func() error, msg string) {
	if err := fn(); err != nil {
		l.Error(msg, ErrAttr(err))
	}
}
