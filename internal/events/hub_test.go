package events

import (
	"context"
	"testing"
	"time"

	"payeveryone/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func receive(t *testing.T, ch <-chan domain.Event) domain.Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
	return domain.Event{}
}

func TestHub_DeliversOnlySubscribedTopics(t *testing.T) {
	hub := NewHub(8, zap.NewNop())
	ctx := context.Background()

	ch, cancel, err := hub.Subscribe(ctx, domain.UserTopic("u1"), domain.TopicMarket)
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, hub.Publish(ctx, domain.NewEvent(domain.UserTopic("u2"), domain.EventBalanceChanged, nil)))
	require.NoError(t, hub.Publish(ctx, domain.NewEvent(domain.UserTopic("u1"), domain.EventBalanceChanged, map[string]string{"balance": "5"})))
	require.NoError(t, hub.Publish(ctx, domain.NewEvent(domain.TopicMarket, domain.EventMarketUpdated, nil)))

	first := receive(t, ch)
	assert.Equal(t, domain.UserTopic("u1"), first.Topic)
	assert.JSONEq(t, `{"balance":"5"}`, string(first.Data))

	second := receive(t, ch)
	assert.Equal(t, domain.EventMarketUpdated, second.Type)
}

func TestHub_CancelIsIdempotent(t *testing.T) {
	hub := NewHub(1, zap.NewNop())

	ch, cancel, err := hub.Subscribe(context.Background(), domain.TopicAuth)
	require.NoError(t, err)
	assert.Equal(t, 1, hub.Subscribers(domain.TopicAuth))

	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Subscribers(domain.TopicAuth))
	assert.NoError(t, hub.Publish(context.Background(), domain.NewEvent(domain.TopicAuth, domain.EventSessionSignedIn, nil)))
}

func TestHub_ContextCancelUnsubscribes(t *testing.T) {
	hub := NewHub(1, zap.NewNop())
	ctx, stop := context.WithCancel(context.Background())

	ch, _, err := hub.Subscribe(ctx, domain.TopicAdminRequests)
	require.NoError(t, err)

	stop()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription not released")
	}
	assert.Equal(t, 0, hub.Subscribers(domain.TopicAdminRequests))
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub(1, zap.NewNop())
	ctx := context.Background()

	ch, cancel, err := hub.Subscribe(ctx, domain.TopicMarket)
	require.NoError(t, err)
	defer cancel()

	for i := 0; i < 5; i++ {
		require.NoError(t, hub.Publish(ctx, domain.NewEvent(domain.TopicMarket, domain.EventMarketUpdated, i)))
	}

	ev := receive(t, ch)
	assert.Equal(t, "0", string(ev.Data))
	select {
	case <-ch:
		t.Fatal("dropped events should not be delivered")
	default:
	}
}

func TestNotify_NilBus(t *testing.T) {
	assert.NotPanics(t, func() {
		Notify(context.Background(), nil, zap.NewNop(), domain.NewEvent(domain.TopicMarket, domain.EventMarketUpdated, nil))
	})
}
