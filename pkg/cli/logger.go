package cli

import (
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

// newLogger maps -v counts onto log levels: warnings only by default, info
// at -v, debug at -vv.
func newLogger(verbosity int) *slog.Logger {
	level := charmlog.WarnLevel
	switch {
	case verbosity >= 2:
		level = charmlog.DebugLevel
	case verbosity == 1:
		level = charmlog.InfoLevel
	}

	return slog.New(charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
		Level:           level,
	}))
}
