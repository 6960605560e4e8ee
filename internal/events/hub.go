package events

import (
	"context"
	"sync"

	"payeveryone/internal/domain"
	"payeveryone/internal/metrics"
	"payeveryone/internal/port"

	"go.uber.org/zap"
)

const defaultBuffer = 64

type subscription struct {
	ch     chan domain.Event
	topics []string
	once   sync.Once
	done   chan struct{}
}

// Hub is an in-process EventBus. A subscriber that falls behind by more than
// the buffer size loses events instead of blocking publishers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscription]struct{}
	buffer int
	log    *zap.Logger
}

func NewHub(buffer int, log *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		subs:   make(map[string]map[*subscription]struct{}),
		buffer: buffer,
		log:    log,
	}
}

var _ port.EventBus = (*Hub)(nil)

func (h *Hub) Publish(ctx context.Context, ev domain.Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.subs[ev.Topic] {
		select {
		case s.ch <- ev:
		default:
			h.log.Warn("subscriber buffer full, event dropped",
				zap.String("topic", ev.Topic), zap.String("type", ev.Type))
		}
	}
	return nil
}

func (h *Hub) Subscribe(ctx context.Context, topics ...string) (<-chan domain.Event, func(), error) {
	s := &subscription{
		ch:     make(chan domain.Event, h.buffer),
		topics: topics,
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	for _, t := range topics {
		if h.subs[t] == nil {
			h.subs[t] = make(map[*subscription]struct{})
		}
		h.subs[t][s] = struct{}{}
	}
	h.mu.Unlock()

	cancel := func() {
		s.once.Do(func() {
			h.mu.Lock()
			for _, t := range s.topics {
				delete(h.subs[t], s)
				if len(h.subs[t]) == 0 {
					delete(h.subs, t)
				}
			}
			close(s.ch)
			h.mu.Unlock()
			close(s.done)
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-s.done:
		}
	}()

	return s.ch, cancel, nil
}

// Subscribers reports how many subscriptions listen on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}

// Notify publishes evs and logs failures. Delivery is best effort; callers
// have already committed the change the events describe.
func Notify(ctx context.Context, bus port.EventBus, log *zap.Logger, evs ...domain.Event) {
	if bus == nil {
		return
	}
	for _, ev := range evs {
		err := bus.Publish(ctx, ev)
		metrics.EventPublished(ev.Type, err)
		if err != nil {
			log.Warn("publish event", zap.String("topic", ev.Topic), zap.String("type", ev.Type), zap.Error(err))
		}
	}
}
