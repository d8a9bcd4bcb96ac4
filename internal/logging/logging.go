package logging

import (
	"io"
	"log/slog"
	"os"
)

// Format selects the slog handler.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Init configures the default slog logger and returns it.
// level is the minimum level; verbose forces LevelDebug.
// output defaults to os.Stderr if nil.
func Init(verbose bool, level slog.Level, format Format, output io.Writer) *slog.Logger {
	if output == nil {
		output = os.Stderr
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
