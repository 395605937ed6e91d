package internal

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

// Logger writes leveled diagnostic lines; a nil *Logger discards everything
type Logger struct {
	logger *log.Logger
	debug  bool
}

// NewLogger creates a logger with timestamp and microsecond precision
func NewLogger(w io.Writer, debug bool) *Logger {
	return &Logger{
		logger: log.New(w, "", log.LstdFlags|log.Lmicroseconds),
		debug:  debug,
	}
}

// OpenLogFile opens (appending) the log file, creating its directory if needed
func OpenLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return file, nil
}

// NewAppLogger logs to the configured file, mirrored to stderr when verbose.
// It falls back to stderr (verbose) or nothing when the file cannot be opened.
func NewAppLogger(config *Config) (*Logger, func() error) {
	var writers []io.Writer
	closeFn := func() error { return nil }

	if config.LogFile != "" {
		file, err := OpenLogFile(config.LogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		} else {
			writers = append(writers, file)
			closeFn = file.Close
		}
	}
	if config.Verbose {
		writers = append(writers, os.Stderr)
	}
	if len(writers) == 0 {
		return nil, closeFn
	}

	return NewLogger(io.MultiWriter(writers...), config.Verbose), closeFn
}

func (l *Logger) logf(level, format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Printf("[%s] "+format, append([]any{level}, args...)...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...any) {
	l.logf("INFO", format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...any) {
	l.logf("ERROR", format, args...)
}

// Debug logs a debug message when debug output is enabled
func (l *Logger) Debug(format string, args ...any) {
	if l == nil || !l.debug {
		return
	}
	l.logf("DEBUG", format, args...)
}
