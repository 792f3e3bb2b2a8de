/*
PURPOSE:
  Provides a structured logger for GitML.
  Wraps slog for consistent output.

REQUIREMENTS:
  User-specified:
  - "Sane" CLI output. Not spammy.

  Implementation-discovered:
  - Needs to support Debug/Info/Warn/Error levels.
  - Human-readable on a terminal, JSON when piped (scripts, CI).

ARCHITECTURE INTEGRATION:
  - Used everywhere.
  - Configured once by internal/cli from config.Config.

ERROR HANDLING:
  - Unknown level names fall back to info.

IMPLEMENTATION RULES:
  - Use `log/slog` (Go 1.21+).
  - Logs go to stderr; stdout is reserved for command output (tables, ids).

USAGE:
  output.Logger.Info("message", "key", "value")

RELATED FILES:
  - All.
*/

package output

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

var Logger *slog.Logger

func init() {
	// Default generic logger until the CLI applies the project config.
	Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// SetLogger allows overriding the default logger (e.g. for testing or config changes)
func SetLogger(l *slog.Logger) {
	Logger = l
}

// NewLogger builds a logger writing to w. format "auto" picks the text
// handler when w is a terminal and JSON otherwise.
func NewLogger(w io.Writer, format, level string) *slog.Logger {
	options := &slog.HandlerOptions{Level: ParseLevel(level)}

	useText := false
	switch strings.ToLower(format) {
	case "text":
		useText = true
	case "json":
		useText = false
	default:
		if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			useText = true
		}
	}

	if useText {
		return slog.New(slog.NewTextHandler(w, options))
	}
	return slog.New(slog.NewJSONHandler(w, options))
}

// ParseLevel maps a level name to slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
