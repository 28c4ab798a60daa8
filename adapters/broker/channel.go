package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kalastudio/concierge/domain"
	"github.com/kalastudio/concierge/utils/log"
)

// ChannelBroker implements domain.EventBroker on Go channels. One process,
// one subscriber per topic/routing-key pair; enough for per-tab companion
// sessions that never outlive the process.
type ChannelBroker struct {
	topics map[string]chan domain.Event
	mu     sync.RWMutex
	closed bool
}

func NewChannelBroker() *ChannelBroker {
	return &ChannelBroker{
		topics: make(map[string]chan domain.Event),
	}
}

func makeKey(topic, routingKey string) string {
	return topic + ":" + routingKey
}

func (b *ChannelBroker) channel(key string) chan domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.topics[key]
	if !ok {
		ch = make(chan domain.Event, 100)
		b.topics[key] = ch
	}
	return ch
}

// Publish sends a payload to a specific topic and routing key.
func (b *ChannelBroker) Publish(ctx context.Context, topic string, routingKey string, payload []byte) error {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return fmt.Errorf("event broker is closed")
	}

	ch := b.channel(makeKey(topic, routingKey))

	event := domain.Event{
		Topic:      topic,
		RoutingKey: routingKey,
		Payload:    payload,
		Timestamp:  time.Now(),
	}

	select {
	case ch <- event:
		log.WithCtx(ctx).Debug("event published",
			zap.String("topic", topic),
			zap.String("routing_key", routingKey),
			zap.Int("payload_size", len(payload)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("topic channel is full: %s:%s", topic, routingKey)
	}
}

// Subscribe listens for events on a specific topic and routing key.
func (b *ChannelBroker) Subscribe(ctx context.Context, topic string, routingKey string) (<-chan domain.Event, error) {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("event broker is closed")
	}

	ch := b.channel(makeKey(topic, routingKey))
	log.WithCtx(ctx).Debug("subscribed to topic",
		zap.String("topic", topic),
		zap.String("routing_key", routingKey))
	return ch, nil
}

// Close closes the broker and all topic channels.
func (b *ChannelBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for key, ch := range b.topics {
		close(ch)
		log.With(zap.String("key", key)).Debug("closed topic channel")
	}
	b.topics = make(map[string]chan domain.Event)
	return nil
}

// TopicCount returns the number of active topics, useful for monitoring.
func (b *ChannelBroker) TopicCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics)
}
