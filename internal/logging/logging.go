// Package logging provides structured logging setup for threadline.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// New builds a logger writing to w.
// Dev mode uses human-readable text at debug level; prod uses JSON at info.
func New(w io.Writer, devMode bool) *slog.Logger {
	if devMode {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// Setup initializes the default slog logger for the server. Logs go to
// stderr so command output on stdout stays machine readable.
func Setup(devMode bool) {
	slog.SetDefault(New(os.Stderr, devMode))
}

// SetupCLI initializes the default logger for one-shot commands: warnings
// and errors only, unless dev mode asks for everything.
func SetupCLI(devMode bool) {
	if devMode {
		Setup(true)
		return
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))
}
