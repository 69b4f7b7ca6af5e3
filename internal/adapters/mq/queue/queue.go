// Package queue carries render events from producers (sources, HTTP
// handlers, surfaces) to the single render loop.
//
// Enqueue never blocks: a full or closed queue rejects the event and the
// caller decides whether to retry or report backpressure.
package queue

import (
	"context"
	"sync"

	"github.com/okian/livemap/internal/domain/model"
	"github.com/okian/livemap/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Event is the payload flowing through the queue.
type Event = model.Event

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an event. It returns false if the event was rejected.
	Enqueue(ctx context.Context, e Event) bool

	// Dequeue returns a channel that receives events in enqueue order.
	// The channel is closed once the queue is closed and drained, or when
	// ctx is done.
	Dequeue(ctx context.Context) <-chan Event

	// Len returns the current number of queued events.
	Len(ctx context.Context) int

	// Close stops accepting events. Already queued events stay readable.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	events   chan Event
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a bounded in-memory queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.events = make(chan Event, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds an event to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, e Event) bool { //nolint:gocritic // hugeParam: Event must be passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.reject("closed")
		return false
	}
	if err := ctx.Err(); err != nil {
		q.reject("context_cancelled")
		return false
	}

	select {
	case q.events <- e:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.events))
		return true
	default:
		q.reject("queue_full")
		return false
	}
}

func (q *InMemoryQueue) reject(reason string) {
	metrics.RecordQueueEnqueueError(reason)
	metrics.RecordErrorByComponent("queue", reason)
}

// Dequeue returns a channel that will receive events as they become available.
// It is meant for a single consumer.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-q.events:
				if !ok {
					return
				}
				select {
				case out <- event:
					metrics.RecordQueueDequeue()
					metrics.UpdateQueueSize(len(q.events))
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Len returns the current number of queued events.
func (q *InMemoryQueue) Len(context.Context) int {
	size := len(q.events)
	metrics.UpdateQueueSize(size)
	return size
}

// Capacity returns the maximum number of queued events.
func (q *InMemoryQueue) Capacity() int { return q.capacity }

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.events)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
