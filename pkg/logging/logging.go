// Package logging builds the prefixed loggers the long-running modes use.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a logger with the given bracketed prefix. When file is
// non-empty output goes to a size-rotated log file as well as stderr;
// otherwise stderr only.
func New(prefix, file string) *log.Logger {
	var w io.Writer = os.Stderr
	if file != "" {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   file,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     30, // days
		})
	}
	return log.New(w, prefix, log.LstdFlags)
}
