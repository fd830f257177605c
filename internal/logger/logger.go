package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/comigor/unichat/internal/config"
)

var levelVar = new(slog.LevelVar)

// L writes to stderr so the chat REPL keeps stdout to itself.
var L = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))

// SetLevel configures the global log level (debug, info, warn, error).
func SetLevel(lvl string) {
	switch strings.ToLower(lvl) {
	case "debug":
		levelVar.Set(slog.LevelDebug)
	case "warn":
		levelVar.Set(slog.LevelWarn)
	case "error":
		levelVar.Set(slog.LevelError)
	default:
		levelVar.Set(slog.LevelInfo)
	}
}

// SetOutput replaces the global logger's destination. Call it before any
// goroutine starts logging.
func SetOutput(w io.Writer) {
	L = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: levelVar}))
}

// Configure applies the level and, when cfg.File is set, sends logs to a
// size-rotated file. The returned closer releases the file; it is a no-op for stderr.
func Configure(cfg config.LogConfig) io.Closer {
	SetLevel(cfg.Level)
	if cfg.File == "" {
		SetOutput(os.Stderr)
		return nopCloser{}
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
	SetOutput(rotator)
	return rotator
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
