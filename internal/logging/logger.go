// Package logging sets up the JSON slog logger, the daily log and
// exception files behind it, and read access to those files.
package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
)

// Files owns the open daily writers
type Files struct {
	Log       *DailyFile
	Exception *DailyFile
}

// Close closes both writers
func (f *Files) Close() error {
	return errors.Join(f.Log.Close(), f.Exception.Close())
}

// ParseLevel maps a config string to a slog level, defaulting to info
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// New builds a logger writing JSON lines to stdout and the daily log file;
// error records are also copied to the daily exception file.
func New(dir string, level slog.Level, stdout io.Writer) (*slog.Logger, *Files, error) {
	logFile, err := NewDailyFile(dir, string(KindLog))
	if err != nil {
		return nil, nil, err
	}
	excFile, err := NewDailyFile(dir, string(KindException))
	if err != nil {
		return nil, nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	h := &teeHandler{
		main:      slog.NewJSONHandler(io.MultiWriter(stdout, logFile), opts),
		exception: slog.NewJSONHandler(excFile, &slog.HandlerOptions{Level: slog.LevelError}),
	}
	return slog.New(h), &Files{Log: logFile, Exception: excFile}, nil
}

// teeHandler forwards every record to main and error records to exception
type teeHandler struct {
	main      slog.Handler
	exception slog.Handler
}

func (t *teeHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return t.main.Enabled(ctx, l) || t.exception.Enabled(ctx, l)
}

func (t *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	if t.main.Enabled(ctx, r.Level) {
		errs = append(errs, t.main.Handle(ctx, r.Clone()))
	}
	if t.exception.Enabled(ctx, r.Level) {
		errs = append(errs, t.exception.Handle(ctx, r.Clone()))
	}
	return errors.Join(errs...)
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &teeHandler{main: t.main.WithAttrs(attrs), exception: t.exception.WithAttrs(attrs)}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	return &teeHandler{main: t.main.WithGroup(name), exception: t.exception.WithGroup(name)}
}
