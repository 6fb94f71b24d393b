package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisBus fans events out through Redis Pub/Sub so that several server
// processes can share one playtest session.
type RedisBus struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewRedisBus creates a bus on an existing Redis connection
func NewRedisBus(rdb *redis.Client, logger *slog.Logger) *RedisBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisBus{rdb: rdb, logger: logger}
}

func (b *RedisBus) Publish(ctx context.Context, sessionID string, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return b.rdb.Publish(ctx, channelName(sessionID), data).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context, sessionID string) (<-chan Event, func(), error) {
	channel := channelName(sessionID)
	pubsub := b.rdb.Subscribe(ctx, channel)
	// Wait for the confirmation so nothing published after we return is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	msgs := pubsub.Channel()
	out := make(chan Event, subscriberBuffer)
	done := make(chan struct{})
	go func() {
		defer close(out)
		for msg := range msgs {
			var e Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				b.logger.Error("Failed to unmarshal event", "error", err, "payload", msg.Payload)
				continue
			}
			select {
			case out <- e:
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			if err := pubsub.Close(); err != nil {
				b.logger.Error("Failed to close pubsub", "error", err)
			}
		})
	}
	return out, cancel, nil
}
