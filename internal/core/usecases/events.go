package usecases

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

const (
	eventBuffer         = 256
	eventPublishTimeout = 2 * time.Second
)

// eventQueue delivers a session's broker events in order on one goroutine so
// a slow broker never holds up the caller that produced the event.
type eventQueue struct {
	logger *slog.Logger

	mu     sync.Mutex
	ch     chan func(ctx context.Context) error
	closed bool
	done   chan struct{}
}

func newEventQueue(logger *slog.Logger) *eventQueue {
	q := &eventQueue{
		logger: logger,
		ch:     make(chan func(ctx context.Context) error, eventBuffer),
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

// push enqueues fn without blocking. Events are dropped once the queue is
// closed or full.
func (q *eventQueue) push(fn func(ctx context.Context) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	select {
	case q.ch <- fn:
	default:
		q.logger.Warn("session event dropped, queue full")
	}
}

// close stops accepting events and waits up to grace for queued ones to go out.
func (q *eventQueue) close(grace time.Duration) {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
	case <-time.After(grace):
		q.logger.Warn("session events still draining after close")
	}
}

func (q *eventQueue) run() {
	defer close(q.done)
	for fn := range q.ch {
		ctx, cancel := context.WithTimeout(context.Background(), eventPublishTimeout)
		if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
			q.logger.Debug("publish session event failed", "error", err)
		}
		cancel()
	}
}
