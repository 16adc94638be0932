package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"

	"socialfeed/internal/domain"
	"socialfeed/pkg/log"
)

// EventKey is the broker key for an event, e.g. "tweet.liked.42".
func EventKey(e domain.Event) string {
	verb := strings.TrimPrefix(e.Name, "tweet ")
	return fmt.Sprintf("tweet.%s.%d", verb, e.TweetID())
}

// LogSink writes each event to the application log at debug level.
type LogSink struct{}

func (LogSink) Name() string { return "log" }

func (LogSink) Deliver(ctx context.Context, e domain.Event) error {
	log.DebugCtx(ctx, "event", "event", e.Name, "event_id", e.ID, "tweet_id", e.TweetID())
	return nil
}

// MessageWriter is the part of *kafka.Writer the sink uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes events to a Kafka topic.
type KafkaSink struct {
	w MessageWriter
}

// NewKafkaWriter builds a writer for brokers, a comma separated host list.
func NewKafkaWriter(brokers, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(brokers, ",")...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
}

// NewKafkaSink wraps w. A *kafka.Writer satisfies the writer contract.
func NewKafkaSink(w MessageWriter) *KafkaSink {
	return &KafkaSink{w: w}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Deliver(ctx context.Context, e domain.Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return s.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(EventKey(e)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-id", Value: []byte(e.ID)},
		},
		Time: e.OccurredAt,
	})
}

func (s *KafkaSink) Close() error {
	return s.w.Close()
}

// Publisher is the part of *redis.Client the sink uses.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisSink publishes events on a Redis pub/sub channel.
type RedisSink struct {
	client  Publisher
	channel string
}

// NewRedisSink wraps client. A *redis.Client satisfies the Publisher contract.
func NewRedisSink(client Publisher, channel string) *RedisSink {
	return &RedisSink{client: client, channel: channel}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Deliver(ctx context.Context, e domain.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return s.client.Publish(ctx, s.channel, payload).Err()
}
