package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/melihalgin1/CryptoVault/internal/config"
	"github.com/melihalgin1/CryptoVault/internal/identity"
	"github.com/redis/go-redis/v9"
)

func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	const op = "storage.redis.NewClient"

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return client, nil
}

// EventBus carries identity events between service instances over one
// pub/sub channel.
type EventBus struct {
	client  *redis.Client
	channel string
	pubsub  *redis.PubSub
	events  chan identity.Event
	log     *slog.Logger

	// deliverTimeout bounds how long the listener waits on a full Events
	// channel before giving an event up.
	deliverTimeout time.Duration

	closeOnce sync.Once
}

func NewEventBus(ctx context.Context, client *redis.Client, channel string, log *slog.Logger) (*EventBus, error) {
	const op = "storage.redis.NewEventBus"

	pubsub := client.Subscribe(ctx, channel)

	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("%s: failed to subscribe to %s: %w", op, channel, err)
	}

	b := &EventBus{
		client:  client,
		channel: channel,
		pubsub:  pubsub,
		events:  make(chan identity.Event, 1000),
		log:     log,

		deliverTimeout: 5 * time.Second,
	}
	log.Info("subscribed to identity events", "channel", channel)

	go b.listener(pubsub.Channel())

	return b, nil
}

func (b *EventBus) Publish(ctx context.Context, event identity.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

func (b *EventBus) Events() <-chan identity.Event {
	return b.events
}

func (b *EventBus) listener(ch <-chan *redis.Message) {
	defer close(b.events)

	for msg := range ch {
		event, err := decodeEvent(msg.Payload)
		if err != nil {
			b.log.Warn("dropping malformed identity event", "channel", msg.Channel, "error", err)
			continue
		}

		b.deliver(event)
	}
	b.log.Info("redis pubsub channel closed")
}

// deliver hands an event to the consumer. A full channel applies
// backpressure to the subscription for up to deliverTimeout; only a
// consumer stalled past that loses the event.
func (b *EventBus) deliver(event identity.Event) bool {
	select {
	case b.events <- event:
		return true
	default:
	}

	b.log.Warn("identity events channel full, waiting for consumer", "type", event.Type)

	timer := time.NewTimer(b.deliverTimeout)
	defer timer.Stop()

	select {
	case b.events <- event:
		return true
	case <-timer.C:
		b.log.Error("identity event lost, consumer stalled",
			"type", event.Type,
			"userID", event.UserID,
			"timeout", b.deliverTimeout,
		)
		return false
	}
}

// Close stops the subscription; the Events channel is closed once the
// listener drains.
func (b *EventBus) Close() error {
	var err error
	b.closeOnce.Do(func() {
		err = b.pubsub.Close()
	})
	return err
}

func decodeEvent(payload string) (identity.Event, error) {
	var event identity.Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return identity.Event{}, err
	}
	if event.Type == "" {
		return identity.Event{}, fmt.Errorf("event without type")
	}
	return event, nil
}
