package events

import (
	"context"
	"sync"
)

// DefaultQueueSize bounds how many undelivered events the in-process
// queue buffers before publishers block.
const DefaultQueueSize = 256

// Queue is an in-process event queue. Delivery is at least once from the
// consumer's point of view: the consumer may be restarted and replay
// work a periodic sync already applied, which the ledger and the
// identity-key upsert make harmless.
type Queue struct {
	ch chan Event

	mu     sync.Mutex
	closed bool
}

// NewQueue builds a queue buffering up to size events
// (DefaultQueueSize when size is not positive).
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{ch: make(chan Event, size)}
}

// Publish enqueues an event, blocking while the buffer is full.
func (q *Queue) Publish(ctx context.Context, ev Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	select {
	case q.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Events exposes the delivery channel. Closed when the queue is closed.
func (q *Queue) Events() <-chan Event {
	return q.ch
}

// Close stops delivery. Publish after Close panics; close the producers
// first.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}
