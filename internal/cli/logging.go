// Package cli holds setup shared by the commands.
package cli

import (
	"os"

	"github.com/op/go-logging"
)

const logFormat = `%{time:15:04:05.000} %{module} %{level:.4s} %{message}`

// SetupLogging sends all package loggers to stderr at WARNING, or DEBUG when
// verbose.
func SetupLogging(verbose bool) {
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	formatted := logging.NewBackendFormatter(backend, logging.MustStringFormatter(logFormat))
	leveled := logging.AddModuleLevel(formatted)
	level := logging.WARNING
	if verbose {
		level = logging.DEBUG
	}
	leveled.SetLevel(level, "")
	logging.SetBackend(leveled)
}
