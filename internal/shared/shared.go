// package shared defines shared helpers
package shared

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// NewLogger creates a new [log.Logger] instance with the specified [io.Writer], with timestamps and caller reporting enabled.
//
// The writer defaults to [os.Stderr]
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true, Prefix: "nowplaying"}
	return log.NewWithOptions(w, opts)
}

// WithLogger creates a child [log.Logger] with the specified key-value pairs added to all log entries.
func WithLogger(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// SetLogLevel parses level (debug, info, warn, error) and applies it to l.
//
// An empty level leaves the logger at info.
func SetLogLevel(l *log.Logger, level string) error {
	if level == "" {
		l.SetLevel(log.InfoLevel)
		return nil
	}

	ll, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("%w: log level %q", ErrInvalidConfig, level)
	}
	l.SetLevel(ll)
	return nil
}

// NewWidgetKey returns a fresh v4 [uuid.UUID] string.
//
// Widget keys are the only identifier handed to the browser, so they come from a
// cryptographically random source and are never derived from the Spotify user id.
func NewWidgetKey() string {
	return uuid.New().String()
}

// IsWidgetKey reports whether key is formatted as a UUID.
func IsWidgetKey(key string) bool {
	_, err := uuid.Parse(key)
	return err == nil
}
