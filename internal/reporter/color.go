package reporter

import (
	"io"
	"os"

	"github.com/ppiankov/piispectre/internal/risk"
)

// ANSI escape codes for risk colors.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[37m"
)

var levelColor = map[risk.Level]string{
	risk.LevelHigh:   colorRed,
	risk.LevelMedium: colorYellow,
	risk.LevelLow:    colorCyan,
	risk.LevelNone:   colorGray,
}

// isTTY returns true if the writer is a terminal.
func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
