// Package logging builds the structured loggers used across flowcanvas.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/goliatone/go-logger/glog"
)

// Logger is the subset of glog.Logger the rest of the code depends on.
// Args are alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// New creates a logger writing to w. format "json" selects JSON output.
// A nil writer logs to stderr.
func New(level, format string, w io.Writer) Logger {
	if w == nil {
		w = os.Stderr
	}
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		level = "info"
	}
	if strings.EqualFold(format, "json") {
		return glog.NewLogger(
			glog.WithWriter(w),
			glog.WithLoggerTypeJSON(),
			glog.WithLevel(level),
		)
	}
	return glog.NewLogger(
		glog.WithWriter(w),
		glog.WithLevel(level),
	)
}

// Discard returns a logger that drops everything.
func Discard() Logger {
	return glog.NewLogger(glog.WithWriter(io.Discard), glog.WithLevel("error"))
}
