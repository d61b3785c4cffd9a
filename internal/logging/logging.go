// Package logging builds the logrus logger used by the patch subcommand, so
// that -v/--verbose and output formatting are configured in one place. The
// include resolver, the patch layers and the report subcommands do not log.
package logging

import (
	"os"

	log "github.com/sirupsen/logrus"
)

// New configures a text-formatted logrus logger writing to stderr, at Info
// level by default or Debug when verbose is set.
func New(verbose bool) *log.Logger {
	l := log.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&log.TextFormatter{
		DisableTimestamp: true,
	})
	if verbose {
		l.SetLevel(log.DebugLevel)
	} else {
		l.SetLevel(log.InfoLevel)
	}
	return l
}
