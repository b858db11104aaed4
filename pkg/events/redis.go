package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// DefaultStream is the redis stream domain events are appended to.
const DefaultStream = "warden:events"

// RedisPublisher appends events to a redis stream. Consumer groups reading
// the stream get at-least-once delivery with their own pending-entry list.
type RedisPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisPublisher creates a publisher backed by the given redis client.
// maxLen bounds the stream with approximate trimming; zero keeps everything.
func NewRedisPublisher(client *redis.Client, stream string, maxLen int64) *RedisPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisPublisher{
		client: client,
		stream: stream,
		maxLen: maxLen,
	}
}

// Publish appends the event to the stream
func (p *RedisPublisher) Publish(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"id":      event.ID,
			"name":    event.Name,
			"org_id":  event.OrganizationID,
			"payload": string(payload),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.Name, err)
	}

	return nil
}

// Close closes the underlying redis client
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
