package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"chatrelay/internal/logging"
	"chatrelay/internal/models"
)

// EndpointEventsChannel is the Redis pub/sub channel for endpoint changes.
const EndpointEventsChannel = "chatrelay:endpoint_events"

// EventBus carries endpoint events to WebSocket clients, possibly across
// several server instances.
type EventBus interface {
	Publish(ctx context.Context, evt models.EndpointEvent) error
	// Subscribe delivers events until ctx is cancelled, then closes the channel.
	Subscribe(ctx context.Context) (<-chan models.EndpointEvent, error)
}

// LocalEventBus fans events out in-process. Slow subscribers drop events.
type LocalEventBus struct {
	mu   sync.Mutex
	subs map[chan models.EndpointEvent]struct{}
}

func NewLocalEventBus() *LocalEventBus {
	return &LocalEventBus{subs: make(map[chan models.EndpointEvent]struct{})}
}

func (b *LocalEventBus) Publish(ctx context.Context, evt models.EndpointEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
	return nil
}

func (b *LocalEventBus) Subscribe(ctx context.Context) (<-chan models.EndpointEvent, error) {
	ch := make(chan models.EndpointEvent, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}

// RedisEventBus publishes events on a Redis channel.
type RedisEventBus struct {
	client *redis.Client
}

func NewRedisEventBus(client *redis.Client) *RedisEventBus {
	return &RedisEventBus{client: client}
}

func (b *RedisEventBus) Publish(ctx context.Context, evt models.EndpointEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal endpoint event: %w", err)
	}
	if err := b.client.Publish(ctx, EndpointEventsChannel, data).Err(); err != nil {
		return fmt.Errorf("publish endpoint event: %w", err)
	}
	return nil
}

func (b *RedisEventBus) Subscribe(ctx context.Context) (<-chan models.EndpointEvent, error) {
	pubsub := b.client.Subscribe(ctx, EndpointEventsChannel)
	// Wait for the subscription to be confirmed so no event is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe to endpoint events: %w", err)
	}

	out := make(chan models.EndpointEvent, 16)
	go func() {
		defer close(out)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var evt models.EndpointEvent
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					logging.Warn("dropping malformed endpoint event", "err", err)
					continue
				}
				select {
				case out <- evt:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
