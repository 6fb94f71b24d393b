package events

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// buses returns every implementation under test.
func buses(t *testing.T) map[string]Bus {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return map[string]Bus{
		"redis":  NewRedisBus(rdb, testLogger()),
		"memory": NewMemoryBus(),
	}
}

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e, ok := <-ch:
		require.True(t, ok, "channel closed")
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestBroadcaster_PublishesTypedEvents(t *testing.T) {
	for name, bus := range buses(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := NewBroadcaster(bus, testLogger())

			ch, cancel, err := b.Subscribe(ctx, "s1")
			require.NoError(t, err)
			defer cancel()

			require.NoError(t, b.PublishActionQueued(ctx, "s1", "pc_Elara"))
			require.NoError(t, b.PublishTurnProcessing(ctx, "s1", 2))
			require.NoError(t, b.PublishTurnCompleted(ctx, "s1", "t-1", "The tavern falls silent.", "loc_Havenwood"))
			require.NoError(t, b.PublishTurnFailed(ctx, "s1", "model down"))

			e := receive(t, ch)
			assert.Equal(t, EventTypeActionQueued, e.Type)
			assert.Equal(t, "s1", e.SessionID)
			assert.Equal(t, "pc_Elara", e.Data["actor_id"])

			e = receive(t, ch)
			assert.Equal(t, EventTypeTurnProcessing, e.Type)
			assert.EqualValues(t, 2, e.Data["players"])

			e = receive(t, ch)
			assert.Equal(t, EventTypeTurnCompleted, e.Type)
			assert.Equal(t, "The tavern falls silent.", e.Data["narrative"])
			assert.Equal(t, "loc_Havenwood", e.Data["location"])

			e = receive(t, ch)
			assert.Equal(t, EventTypeTurnFailed, e.Type)
			assert.Equal(t, "model down", e.Data["error"])
		})
	}
}

func TestBus_SessionsAreSeparate(t *testing.T) {
	for name, bus := range buses(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			other, cancelOther, err := bus.Subscribe(ctx, "other")
			require.NoError(t, err)
			defer cancelOther()
			mine, cancel, err := bus.Subscribe(ctx, "mine")
			require.NoError(t, err)
			defer cancel()

			require.NoError(t, bus.Publish(ctx, "mine", Event{Type: EventTypeTurnProcessing, SessionID: "mine"}))
			assert.Equal(t, EventTypeTurnProcessing, receive(t, mine).Type)

			select {
			case e := <-other:
				t.Errorf("other session received %v", e)
			case <-time.After(50 * time.Millisecond):
			}
		})
	}
}

func TestBus_CancelClosesChannel(t *testing.T) {
	for name, bus := range buses(t) {
		t.Run(name, func(t *testing.T) {
			ch, cancel, err := bus.Subscribe(context.Background(), "s1")
			require.NoError(t, err)
			cancel()
			cancel()

			select {
			case _, ok := <-ch:
				assert.False(t, ok)
			case <-time.After(2 * time.Second):
				t.Fatal("channel not closed")
			}
		})
	}
}

func TestMemoryBus_SlowSubscriberDropsEvents(t *testing.T) {
	bus := NewMemoryBus()
	ctx := context.Background()
	ch, cancel, err := bus.Subscribe(ctx, "s1")
	require.NoError(t, err)
	defer cancel()

	for i := 0; i < subscriberBuffer+5; i++ {
		require.NoError(t, bus.Publish(ctx, "s1", Event{Type: EventTypeActionQueued}))
	}
	assert.Len(t, ch, subscriberBuffer)
}
