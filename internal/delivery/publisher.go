package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event
type EventType string

const (
	// EventTypeTopProductsScraped is published after every successful scrape.
	EventTypeTopProductsScraped EventType = "TOP_PRODUCTS_SCRAPED"

	DefaultStream = "stream:creative_center_top_products"
)

// Event is one scrape result on its way to downstream consumers.
type Event struct {
	RunID       string
	Region      string
	TimeRange   string
	Count       int
	CollectedAt time.Time
	Payload     any
}

type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// RedisClient interface for Redis operations (for testing)
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// StreamPublisher appends events to a Redis stream.
type StreamPublisher struct {
	redis  RedisClient
	stream string
	source string
	logger *slog.Logger
}

type Options struct {
	Addr     string
	Password string
	DB       int
	Stream   string
}

func NewRedisClient(opts Options) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
}

func NewStreamPublisher(client RedisClient, stream string, logger *slog.Logger) *StreamPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &StreamPublisher{
		redis:  client,
		stream: stream,
		source: "creative_center",
		logger: logger.With("component", "stream_publisher"),
	}
}

// Publish writes the event to the stream. The data field carries the full
// JSON envelope, the remaining fields are flat copies for stream consumers
// that filter without decoding.
func (p *StreamPublisher) Publish(ctx context.Context, event *Event) error {
	if event.CollectedAt.IsZero() {
		event.CollectedAt = time.Now().UTC()
	}

	envelope := map[string]interface{}{
		"id":        event.RunID,
		"type":      EventTypeTopProductsScraped,
		"timestamp": event.CollectedAt.Format(time.RFC3339),
		"payload":   event.Payload,
		"metadata": map[string]interface{}{
			"source":     p.source,
			"region":     event.Region,
			"time_range": event.TimeRange,
		},
	}

	dataJSON, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal stream data: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"data":       string(dataJSON),
			"type":       string(EventTypeTopProductsScraped),
			"run_id":     event.RunID,
			"region":     event.Region,
			"time_range": event.TimeRange,
			"count":      strconv.Itoa(event.Count),
			"timestamp":  strconv.FormatInt(event.CollectedAt.UnixNano(), 10),
		},
	}

	id, err := p.redis.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}

	p.logger.Info("scrape result published",
		"stream", p.stream,
		"message_id", id,
		"run_id", event.RunID,
		"count", event.Count)

	return nil
}

func (p *StreamPublisher) Close() error {
	return p.redis.Close()
}

// Discard is used when no Redis address is configured.
type Discard struct{}

func (Discard) Publish(context.Context, *Event) error { return nil }

func (Discard) Close() error { return nil }
