// Package logging provides the structured per-component loggers used
// across the engine, transaction layer, and CLI.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

var base = newBase()

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// For returns a logger entry scoped to component, e.g. "engine",
// "transaction", "xfer". Callers attach further fields per call site.
func For(component string) *logrus.Entry {
	return base.WithField("component", component)
}

// SetLevel adjusts verbosity for all components; used by cmd/dfuctl's
// --verbose flag.
func SetLevel(level logrus.Level) {
	base.SetLevel(level)
}
