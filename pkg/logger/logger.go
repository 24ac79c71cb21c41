package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Setup configures the process-wide default slog logger.
// levelStr is one of "debug", "info", "warn", "error" (anything else
// falls back to info). If logPath is non-empty, output is teed to the
// file in append mode as well as stdout.
func Setup(levelStr string, logPath string) error {
	var level slog.Level
	switch strings.ToLower(levelStr) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var writer io.Writer = os.Stdout

	if logPath != "" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
			return err
		}

		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return err
		}

		// Tee to console and file.
		writer = io.MultiWriter(os.Stdout, file)
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(writer, opts)))

	return nil
}
