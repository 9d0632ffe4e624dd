// Package logger provides the structured slog logger used across the
// application. All logs are written in JSON format; when a log file is
// configured, output is rotated with lumberjack.
package logger

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// New creates a JSON slog.Logger at the given level. When logFile is empty
// the logger writes to stderr; otherwise it writes to the file with size
// based rotation (10 MiB per file, 5 backups, 28 day retention).
func New(logFile string, level slog.Level) *slog.Logger {
	var w io.Writer = os.Stderr
	if logFile != "" {
		w = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     28,
		}
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
