// Package log provides the colored, prefixed loggers every component writes through.
package log

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/beka-birhanu/vinom-tiles/config"
)

var ErrNoWriter = errors.New("logger requires a writer")

// Logger writes `[PREFIX] [LEVEL] message` lines, coloring the prefix.
type Logger struct {
	l *log.Logger
}

// New creates a Logger writing to w with the given prefix and prefix color.
func New(prefix, color string, w io.Writer) (*Logger, error) {
	if w == nil {
		return nil, ErrNoWriter
	}
	p := fmt.Sprintf("%s[%s]%s ", color, prefix, config.ColorReset)
	return &Logger{l: log.New(w, p, log.LstdFlags|log.Lmsgprefix)}, nil
}

// Info logs an informational message.
func (lg *Logger) Info(msg string) {
	lg.l.Printf("%s[INFO]%s %s", config.LogInfoColor, config.LogColorReset, msg)
}

// Warning logs a recoverable problem.
func (lg *Logger) Warning(msg string) {
	lg.l.Printf("%s[WARNING]%s %s", config.LogWarningColor, config.LogColorReset, msg)
}

// Error logs a failure.
func (lg *Logger) Error(msg string) {
	lg.l.Printf("%s[ERROR]%s %s", config.LogErrorColor, config.LogColorReset, msg)
}
