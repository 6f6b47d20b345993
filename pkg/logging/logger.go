// Package logging provides structured logging for the segmaster system using zerolog.
// There is no package level logger: components receive a *zerolog.Logger and
// derive their own child with Component.
//
// Example usage:
//
//	log := logging.NewLoggerFromConfig(&logging.Config{Level: "debug", Format: "console"})
//	versions := logging.Component(&log, "versions")
//	versions.Info().Str("segment_id", "s1").Msg("Resolved version")
package logging

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Nop logger for discarding output.
var Nop = zerolog.Nop()

// Component returns a child of logger tagged with the component name.
// A nil logger yields a child of Nop.
func Component(logger *zerolog.Logger, name string) zerolog.Logger {
	if logger == nil {
		return Nop
	}
	return logger.With().Str("component", name).Logger()
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
