// Package progress appends human-readable pipeline checkpoints to a text file.
package progress

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// TimestampLayout prefixes every line.
const TimestampLayout = "2006-01-02 15:04:05.000000"

const fileMode = 0o644

// Log is an append-only progress log. Each entry is written as
// "<timestamp> : <message>\n"; the file is opened in append mode per entry
// and never truncated or rotated.
type Log struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// Option applies a configuration option to the Log.
type Option func(*Log)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		if now != nil {
			l.now = now
		}
	}
}

// New returns a Log writing to path.
func New(path string, opts ...Option) *Log {
	l := &Log{path: path, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record appends message.
func (l *Log) Record(ctx context.Context, message string) error {
	return l.append(ctx, message)
}

// Failure appends "ERROR <message>: <err>".
func (l *Log) Failure(ctx context.Context, message string, err error) error {
	if err == nil {
		return l.append(ctx, "ERROR "+message)
	}
	return l.append(ctx, fmt.Sprintf("ERROR %s: %v", message, err))
}

func (l *Log) append(ctx context.Context, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// One entry per line regardless of what the message carries.
	message = strings.ReplaceAll(strings.TrimRight(message, "\n"), "\n", " ")

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, fileMode)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAppend, err)
	}
	line := l.now().Format(TimestampLayout) + " : " + message + "\n"
	if _, err := f.WriteString(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: %w", ErrAppend, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrAppend, err)
	}
	return nil
}
