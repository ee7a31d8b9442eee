package keys

import (
	"log"
	"sync/atomic"
)

// Sink receives every event the Manager emits. Deliver is called from the
// polling goroutine and must return quickly without blocking; slow sinks
// stretch the tick for every key processed after them.
type Sink interface {
	Deliver(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

// Deliver calls f(e).
func (f SinkFunc) Deliver(e Event) { f(e) }

// QueueSink buffers events on a fixed-capacity channel for pull-based
// consumers. When the queue is full new events are dropped; the producer
// is never blocked and never sees an error.
type QueueSink struct {
	ch      chan Event
	dropped atomic.Uint64
}

// DefaultQueueCapacity matches the firmware's event queue depth.
const DefaultQueueCapacity = 20

// NewQueueSink creates a QueueSink with the given capacity.
func NewQueueSink(capacity int) *QueueSink {
	return &QueueSink{ch: make(chan Event, capacity)}
}

// Deliver enqueues the event, dropping it if the queue is full.
func (q *QueueSink) Deliver(e Event) {
	select {
	case q.ch <- e:
	default:
		if q.dropped.Add(1) == 1 {
			log.Printf("keys: event queue full, dropping events")
		}
	}
}

// Events returns the receive side of the queue.
func (q *QueueSink) Events() <-chan Event {
	return q.ch
}

// Dropped returns the number of events discarded because the queue was full.
func (q *QueueSink) Dropped() uint64 {
	return q.dropped.Load()
}
