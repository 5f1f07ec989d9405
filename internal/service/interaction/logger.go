// Package interaction records one analytics entry per assistant turn. Logging is
// fire-and-forget: callers never wait on, or see failures from, the sink.
package interaction

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zhouzirui/concierge/backend/internal/logging"
	"github.com/zhouzirui/concierge/backend/internal/model/assistant"
)

const (
	DefaultQueueSize    = 256
	DefaultWriteTimeout = 5 * time.Second
)

// Sink persists interaction entries.
type Sink interface {
	Write(ctx context.Context, entry assistant.InteractionLogEntry) error
}

// SinkError wraps a persistence failure with the operation that failed.
type SinkError struct {
	Op  string
	Err error
}

func (e *SinkError) Error() string {
	return "interaction sink " + e.Op + ": " + e.Err.Error()
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// Options tunes the background writer.
type Options struct {
	QueueSize    int
	WriteTimeout time.Duration
}

// Logger queues entries and writes them from a single background goroutine.
type Logger struct {
	sink    Sink
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan assistant.InteractionLogEntry
	done   chan struct{}

	dropped atomic.Uint64
	written atomic.Uint64
}

// New starts the writer goroutine. Close must be called to stop it.
func New(sink Sink, opts Options) *Logger {
	size := opts.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	timeout := opts.WriteTimeout
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}

	l := &Logger{
		sink:    sink,
		timeout: timeout,
		queue:   make(chan assistant.InteractionLogEntry, size),
		done:    make(chan struct{}),
	}
	go l.run()
	return l
}

// Log enqueues entry without blocking. It reports false when the entry was
// dropped because the queue is full or the logger is closed.
func (l *Logger) Log(entry assistant.InteractionLogEntry) bool {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.dropped.Add(1)
		return false
	}

	select {
	case l.queue <- entry:
		return true
	default:
		l.dropped.Add(1)
		logging.Named("interaction").Warnw("queue full, dropping entry",
			"session", entry.SessionID, "type", entry.InteractionType)
		return false
	}
}

// Dropped counts entries discarded so far.
func (l *Logger) Dropped() uint64 {
	return l.dropped.Load()
}

// Written counts entries the sink accepted.
func (l *Logger) Written() uint64 {
	return l.written.Load()
}

// Close stops accepting entries and waits for the queue to drain or ctx to end.
func (l *Logger) Close(ctx context.Context) error {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.queue)
	}
	l.mu.Unlock()

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Logger) run() {
	defer close(l.done)
	log := logging.Named("interaction")

	for entry := range l.queue {
		if l.sink == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		err := l.sink.Write(ctx, entry)
		cancel()
		if err != nil {
			var sinkErr *SinkError
			if errors.As(err, &sinkErr) {
				log.Warnw("interaction not persisted", "op", sinkErr.Op, "session", entry.SessionID, "error", sinkErr.Err)
			} else {
				log.Warnw("interaction not persisted", "session", entry.SessionID, "error", err)
			}
			continue
		}
		l.written.Add(1)
	}
}
