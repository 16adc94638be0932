// Package notify fans domain events out to sinks without blocking the
// mutation that produced them.
package notify

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"socialfeed/internal/domain"
	"socialfeed/internal/metrics"
	"socialfeed/pkg/log"
	"socialfeed/pkg/queue"
)

const (
	DefaultQueueSize      = 1024
	DefaultDeliverTimeout = 5 * time.Second
)

// Sink receives every dispatched event. Deliver errors are logged and
// counted; they never reach the mutation that produced the event.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, event domain.Event) error
}

type envelope struct {
	event     domain.Event
	requestID string
}

// Dispatcher implements usecases.Notifier. Events go through a bounded
// drop-oldest queue to a single worker, so each sink sees them in
// broadcast order.
type Dispatcher struct {
	ring     *queue.Ring[envelope]
	sinks    []Sink
	timeout  time.Duration
	reported atomic.Int64
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithDeliverTimeout bounds each Deliver call.
func WithDeliverTimeout(d time.Duration) Option {
	return func(disp *Dispatcher) { disp.timeout = d }
}

// NewDispatcher starts a dispatcher delivering to sinks.
func NewDispatcher(queueSize int, sinks []Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{sinks: sinks, timeout: DefaultDeliverTimeout}
	for _, opt := range opts {
		opt(d)
	}
	d.ring = queue.New(queueSize, d.deliver)
	return d
}

// Broadcast queues the event and returns immediately.
func (d *Dispatcher) Broadcast(ctx context.Context, event domain.Event) {
	if !d.ring.Send(envelope{event: event, requestID: log.RequestIDFromContext(ctx)}) {
		log.WarnCtx(ctx, "event not queued", "event", event.Name, "event_id", event.ID)
	}
	d.reportDropped()
}

func (d *Dispatcher) reportDropped() {
	cur := d.ring.Dropped()
	for {
		prev := d.reported.Load()
		if cur <= prev {
			return
		}
		if d.reported.CompareAndSwap(prev, cur) {
			metrics.EventsDropped.Add(float64(cur - prev))
			return
		}
	}
}

func (d *Dispatcher) deliver(env envelope) {
	ctx := context.Background()
	if env.requestID != "" {
		ctx = log.WithRequestID(ctx, env.requestID)
	}

	for _, sink := range d.sinks {
		sctx, cancel := context.WithTimeout(ctx, d.timeout)
		err := sink.Deliver(sctx, env.event)
		cancel()

		if err != nil {
			metrics.EventsFailed.WithLabelValues(sink.Name()).Inc()
			log.ErrorCtx(ctx, "event delivery failed",
				"sink", sink.Name(), "event", env.event.Name, "event_id", env.event.ID, "error", err)
			continue
		}
		metrics.EventsDelivered.WithLabelValues(sink.Name()).Inc()
	}
}

// Pending returns the number of queued events.
func (d *Dispatcher) Pending() int {
	return d.ring.Len()
}

// Close delivers queued events, then closes every sink that is an io.Closer.
func (d *Dispatcher) Close() error {
	d.ring.Close()

	var firstErr error
	for _, sink := range d.sinks {
		c, ok := sink.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			log.Error("closing sink", "sink", sink.Name(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
