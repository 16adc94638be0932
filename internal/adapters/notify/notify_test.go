package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"

	"socialfeed/internal/adapters/notify"
	"socialfeed/internal/domain"
	"socialfeed/internal/metrics"
	"socialfeed/internal/usecases"
	"socialfeed/pkg/log"
)

var _ usecases.Notifier = (*notify.Dispatcher)(nil)

type recordingSink struct {
	name    string
	err     error
	mu      sync.Mutex
	events  []domain.Event
	reqIDs  []string
	release chan struct{}
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Deliver(ctx context.Context, e domain.Event) error {
	if s.release != nil {
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	s.reqIDs = append(s.reqIDs, log.RequestIDFromContext(ctx))
	return s.err
}

func (s *recordingSink) Events() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Event{}, s.events...)
}

type closingSink struct {
	recordingSink
	closed bool
}

func (s *closingSink) Close() error {
	s.closed = true
	return nil
}

func event(name string, id int64) domain.Event {
	return domain.NewEvent(name, id, time.Now())
}

func TestDispatcher_DeliversInOrderToEverySink(t *testing.T) {
	// Arrange
	a := &recordingSink{name: "a"}
	b := &recordingSink{name: "b"}
	d := notify.NewDispatcher(16, []notify.Sink{a, b})
	ctx := log.WithRequestID(context.Background(), "req-1")

	// Act
	for i := int64(1); i <= 5; i++ {
		d.Broadcast(ctx, event(domain.EventTweetDeleted, i))
	}
	d.Close()

	// Assert
	for _, sink := range []*recordingSink{a, b} {
		got := sink.Events()
		if len(got) != 5 {
			t.Fatalf("sink %s: got %d events, want 5", sink.name, len(got))
		}
		for i, e := range got {
			if e.TweetID() != int64(i+1) {
				t.Errorf("sink %s event %d: got tweet %d", sink.name, i, e.TweetID())
			}
		}
		if sink.reqIDs[0] != "req-1" {
			t.Errorf("sink %s: request id not carried, got %q", sink.name, sink.reqIDs[0])
		}
	}
}

func TestDispatcher_SinkFailureIsIsolated(t *testing.T) {
	// Arrange
	broken := &recordingSink{name: "broken-test", err: errors.New("boom")}
	healthy := &recordingSink{name: "healthy-test"}
	d := notify.NewDispatcher(16, []notify.Sink{broken, healthy})
	failedBefore := testutil.ToFloat64(metrics.EventsFailed.WithLabelValues("broken-test"))
	deliveredBefore := testutil.ToFloat64(metrics.EventsDelivered.WithLabelValues("healthy-test"))

	// Act
	d.Broadcast(context.Background(), event(domain.EventTweetLiked, 1))
	d.Broadcast(context.Background(), event(domain.EventTweetLiked, 1))
	d.Close()

	// Assert
	if len(healthy.Events()) != 2 {
		t.Errorf("healthy sink: got %d events, want 2", len(healthy.Events()))
	}
	if got := testutil.ToFloat64(metrics.EventsFailed.WithLabelValues("broken-test")) - failedBefore; got != 2 {
		t.Errorf("failed counter delta: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.EventsDelivered.WithLabelValues("healthy-test")) - deliveredBefore; got != 2 {
		t.Errorf("delivered counter delta: got %v, want 2", got)
	}
}

func TestDispatcher_BroadcastDoesNotBlockOnSlowSink(t *testing.T) {
	// Arrange
	slow := &recordingSink{name: "slow", release: make(chan struct{})}
	d := notify.NewDispatcher(2, []notify.Sink{slow})
	droppedBefore := testutil.ToFloat64(metrics.EventsDropped)

	// Act
	done := make(chan struct{})
	go func() {
		for i := int64(0); i < 10; i++ {
			d.Broadcast(context.Background(), event(domain.EventTweetLiked, i))
		}
		close(done)
	}()

	// Assert
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Broadcast blocked on a slow sink")
	}
	close(slow.release)
	d.Close()

	if testutil.ToFloat64(metrics.EventsDropped)-droppedBefore == 0 {
		t.Error("expected dropped events to be counted")
	}
	if n := len(slow.Events()); n >= 10 || n == 0 {
		t.Errorf("slow sink: got %d events, want some but not all", n)
	}
}

func TestDispatcher_CloseClosesSinks(t *testing.T) {
	s := &closingSink{recordingSink: recordingSink{name: "closer"}}
	d := notify.NewDispatcher(4, []notify.Sink{s})

	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !s.closed {
		t.Error("sink should be closed")
	}
}

func TestEventKey(t *testing.T) {
	tests := []struct {
		event domain.Event
		want  string
	}{
		{event(domain.EventTweetLiked, 42), "tweet.liked.42"},
		{event(domain.EventTweetDeleted, 7), "tweet.deleted.7"},
		{domain.NewEvent(domain.EventTweetCreated, &domain.Tweet{ID: 3}, time.Now()), "tweet.created.3"},
	}

	for _, tt := range tests {
		if got := notify.EventKey(tt.event); got != tt.want {
			t.Errorf("EventKey(%q): got %q, want %q", tt.event.Name, got, tt.want)
		}
	}
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaSink_Deliver(t *testing.T) {
	// Arrange
	w := &fakeWriter{}
	sink := notify.NewKafkaSink(w)
	e := event(domain.EventTweetUnliked, 9)

	// Act
	err := sink.Deliver(context.Background(), e)

	// Assert
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("messages: got %d, want 1", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "tweet.unliked.9" {
		t.Errorf("key: got %q", msg.Key)
	}
	var decoded map[string]any
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("value is not JSON: %v", err)
	}
	if decoded["event"] != domain.EventTweetUnliked || decoded["payload"] != float64(9) || decoded["id"] != e.ID {
		t.Errorf("value: got %v", decoded)
	}

	sink.Close()
	if !w.closed {
		t.Error("writer should be closed")
	}
}

func TestKafkaSink_PropagatesErrors(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}

	err := notify.NewKafkaSink(w).Deliver(context.Background(), event(domain.EventTweetLiked, 1))

	if err == nil {
		t.Fatal("expected writer error")
	}
}

func TestNewKafkaWriter(t *testing.T) {
	w := notify.NewKafkaWriter("a:9092,b:9092", "tweets")
	defer w.Close()

	if w.Topic != "tweets" {
		t.Errorf("topic: got %q", w.Topic)
	}
	if w.Addr == nil || w.Addr.Network() != "tcp" {
		t.Errorf("addr: got %v", w.Addr)
	}
}

type fakePublisher struct {
	channel string
	message []byte
	err     error
}

func (p *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	p.channel = channel
	p.message = message.([]byte)
	return redis.NewIntResult(1, p.err)
}

func TestRedisSink_Deliver(t *testing.T) {
	p := &fakePublisher{}
	sink := notify.NewRedisSink(p, "tweets")

	err := sink.Deliver(context.Background(), event(domain.EventTweetDeleted, 5))

	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if p.channel != "tweets" {
		t.Errorf("channel: got %q", p.channel)
	}
	var decoded domain.Event
	if err := json.Unmarshal(p.message, &decoded); err != nil {
		t.Fatalf("message is not JSON: %v", err)
	}
	if decoded.Name != domain.EventTweetDeleted {
		t.Errorf("event: got %q", decoded.Name)
	}

	p.err = errors.New("connection refused")
	if err := sink.Deliver(context.Background(), event(domain.EventTweetDeleted, 5)); err == nil {
		t.Error("expected publish error")
	}
}

func TestLogSink(t *testing.T) {
	var s notify.LogSink
	if s.Name() != "log" {
		t.Errorf("name: got %q", s.Name())
	}
	if err := s.Deliver(context.Background(), event(domain.EventTweetLiked, 1)); err != nil {
		t.Errorf("Deliver: %v", err)
	}
}
