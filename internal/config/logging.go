package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	slogmulti "github.com/samber/slog-multi"
)

// SetupLogger creates the client logger: JSON to the log file, text to
// stderr. fileOnly suppresses the stderr handler, which is required while a
// TUI owns the terminal. Returns the logger and a cleanup closing the file.
func SetupLogger(logFile string, level slog.Level, fileOnly bool) (*slog.Logger, func() error) {
	stderrHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})

	_ = os.MkdirAll(filepath.Dir(logFile), 0o755)
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		if fileOnly {
			// Nothing usable; swallow logs rather than corrupt the TUI.
			return slog.New(slog.NewTextHandler(io.Discard, nil)), func() error { return nil }
		}
		slog.Warn("failed to open log file, using stderr only", "error", err, "file", logFile)
		return slog.New(stderrHandler), func() error { return nil }
	}

	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})
	cleanup := func() error { return file.Close() }

	if fileOnly {
		return slog.New(fileHandler), cleanup
	}
	return slog.New(slogmulti.Fanout(stderrHandler, fileHandler)), cleanup
}

// SetupLoggerWithWriters creates a logger with custom writers (for testing).
func SetupLoggerWithWriters(stderr, file io.Writer, level slog.Level) *slog.Logger {
	stderrHandler := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})
	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})
	return slog.New(slogmulti.Fanout(stderrHandler, fileHandler))
}
