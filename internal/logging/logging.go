// Package logging configures the slog handlers of the command line tools.
package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

const timeFormat = "15:04:05"

// New returns a logger writing colored records to w. Colors are dropped
// when noColor is set.
func New(w io.Writer, level slog.Level, noColor bool) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: timeFormat,
		NoColor:    noColor,
	}))
}

// Setup installs the default logger on stderr, at debug level when verbose.
func Setup(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	_, noColor := os.LookupEnv("NO_COLOR")
	logger := New(os.Stderr, level, noColor)
	slog.SetDefault(logger)
	return logger
}
