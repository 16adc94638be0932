// Package queue provides a bounded asynchronous queue with a single
// delivery worker.
package queue

import (
	"sync"
	"sync/atomic"
)

// Ring is a bounded FIFO queue drained by one background worker.
// When the queue is full the oldest item is dropped to make room.
type Ring[T any] struct {
	items   chan T
	deliver func(T)
	dropped atomic.Int64
	done    chan struct{}
	wg      sync.WaitGroup

	// mu keeps Send from racing the final drain in Close.
	mu     sync.RWMutex
	closed bool
}

// New creates a ring with the given capacity and starts its worker.
// deliver is called sequentially, in send order, for every item that is not dropped.
func New[T any](capacity int, deliver func(T)) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	r := &Ring[T]{
		items:   make(chan T, capacity),
		deliver: deliver,
		done:    make(chan struct{}),
	}

	r.wg.Add(1)
	go r.worker()

	return r
}

// Send queues an item without blocking.
// Returns false if the ring is closed or the item could not be queued.
func (r *Ring[T]) Send(item T) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return false
	}

	select {
	case r.items <- item:
		return true
	default:
	}

	// Full: drop the oldest and retry once.
	select {
	case <-r.items:
		r.dropped.Add(1)
	default:
	}

	select {
	case r.items <- item:
		return true
	default:
		r.dropped.Add(1)
		return false
	}
}

// Dropped returns the number of items discarded because the ring was full.
func (r *Ring[T]) Dropped() int64 {
	return r.dropped.Load()
}

// Len returns the number of queued items.
func (r *Ring[T]) Len() int {
	return len(r.items)
}

// Close stops the worker and delivers whatever is still queued.
// Safe to call multiple times.
func (r *Ring[T]) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	close(r.done)
	r.wg.Wait()

	for {
		select {
		case item := <-r.items:
			r.deliver(item)
		default:
			return
		}
	}
}

func (r *Ring[T]) worker() {
	defer r.wg.Done()

	for {
		select {
		case item := <-r.items:
			r.deliver(item)
		case <-r.done:
			return
		}
	}
}
