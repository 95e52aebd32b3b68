// Package log configures logging of non-real-time parts of the pipeline.
// Supply stages never log.
package log

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

// DebugEnv enables debug level when set to a true value.
const DebugEnv = "CLIP_DEBUG"

// Logger is a global interface for clip loggers.
type Logger interface {
	Debug(...interface{})
	Info(...interface{})
	Warn(...interface{})
	Error(...interface{})
	WithFields(logrus.Fields) *logrus.Entry
}

// GetLogger returns a new logger instance. Level is read from environment
// every call, so values loaded from .env files are respected.
func GetLogger() *logrus.Logger {
	l := logrus.New()
	if Debug() {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// Debug returns true if debug logging is enabled.
func Debug() bool {
	debug, err := strconv.ParseBool(os.Getenv(DebugEnv))
	return err == nil && debug
}
