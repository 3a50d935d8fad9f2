package logger

import (
	"io"
	"log"
	"os"
)

// Logger is an alias used by services for dependency injection.
type Logger = log.Logger

const flags = log.LstdFlags | log.Lmicroseconds | log.LUTC

// New returns a stdout logger prefixed with the service name.
func New(service string) *Logger {
	return NewTo(os.Stdout, service)
}

// NewTo is New with an explicit sink.
func NewTo(w io.Writer, service string) *Logger {
	return log.New(w, "["+service+"] ", flags)
}
