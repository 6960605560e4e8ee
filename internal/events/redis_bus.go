package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"payeveryone/internal/domain"
	"payeveryone/internal/port"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBus fans events out to every API replica through Redis pub/sub. Each
// topic maps to a channel with the same name under a common prefix.
type RedisBus struct {
	rdb    *redis.Client
	prefix string
	buffer int
	log    *zap.Logger
}

func NewRedisBus(rdb *redis.Client, prefix string, buffer int, log *zap.Logger) *RedisBus {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &RedisBus{rdb: rdb, prefix: prefix, buffer: buffer, log: log}
}

var _ port.EventBus = (*RedisBus)(nil)

func (b *RedisBus) channel(topic string) string {
	return b.prefix + topic
}

func (b *RedisBus) Publish(ctx context.Context, ev domain.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, b.channel(ev.Topic), payload).Err(); err != nil {
		return fmt.Errorf("%w: redis publish: %w", domain.ErrStoreFailure, err)
	}
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context, topics ...string) (<-chan domain.Event, func(), error) {
	channels := make([]string, len(topics))
	for i, t := range topics {
		channels[i] = b.channel(t)
	}

	pubsub := b.rdb.Subscribe(ctx, channels...)
	// Wait for confirmation that subscription is created
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("%w: redis subscribe: %w", domain.ErrStoreFailure, err)
	}

	out := make(chan domain.Event, b.buffer)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = pubsub.Close()
		})
	}

	go func() {
		defer close(out)
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				cancel()
				return
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev domain.Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					b.log.Warn("malformed event", zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}
				select {
				case out <- ev:
				case <-done:
					return
				}
			}
		}
	}()

	return out, cancel, nil
}
