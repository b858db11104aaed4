package audit

import (
	"context"
	"fmt"
	"strings"
)

// MultiLogger fans audit entries out to several sinks. A failure in one
// sink does not prevent delivery to the others.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a logger that writes to all given sinks
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

// Log writes the entry to every sink, collecting failures
func (m *MultiLogger) Log(ctx context.Context, entry *Entry) error {
	var failures []string
	for _, logger := range m.loggers {
		if err := logger.Log(ctx, entry); err != nil {
			failures = append(failures, err.Error())
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("audit sinks failed: %s", strings.Join(failures, "; "))
	}
	return nil
}

// Close closes all sinks
func (m *MultiLogger) Close() error {
	var failures []string
	for _, logger := range m.loggers {
		if err := logger.Close(); err != nil {
			failures = append(failures, err.Error())
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("audit sinks failed to close: %s", strings.Join(failures, "; "))
	}
	return nil
}
