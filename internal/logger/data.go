package logger

import (
	"io"
	"log"
	"sync"
)

// Logger provides component-tagged logging with levels

type Logger struct {
	MinLevel LogLevel
	mu       sync.Mutex
	out      *log.Logger
}

// LogLevel represents the severity of a log message
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// New returns a Logger writing through the standard log package.
func New(level LogLevel) *Logger {
	return &Logger{MinLevel: level}
}

// NewWithWriter returns a Logger writing to w, mostly useful in tests.
func NewWithWriter(level LogLevel, w io.Writer) *Logger {
	return &Logger{MinLevel: level, out: log.New(w, "", 0)}
}

// Discard returns a Logger that writes nothing.
func Discard() *Logger {
	return NewWithWriter(LevelError+1, io.Discard)
}
