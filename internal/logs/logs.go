// Package logs builds the process logger: text or JSON slog output to the
// console, copied to a rotating file when one is configured.
package logs

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/natefinch/lumberjack"

	"github.com/talgya/granary/internal/config"
)

// ParseLevel maps a level name to a slog level, falling back to info.
func ParseLevel(name string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(name))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// New returns a logger writing to console and, when cfg.File is set, to a
// lumberjack-rotated file. The returned closer releases the file.
func New(console io.Writer, cfg config.LogConfig) (*slog.Logger, io.Closer, error) {
	out := console
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    max(1, cfg.MaxSize),
			MaxBackups: max(0, cfg.MaxBackups),
			MaxAge:     max(0, cfg.MaxAge),
			Compress:   cfg.Compress,
		}
		out = io.MultiWriter(console, file)
		closer = file
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		h = slog.NewTextHandler(out, opts)
	case "json":
		h = slog.NewJSONHandler(out, opts)
	default:
		closer.Close()
		return nil, nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return slog.New(h), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
