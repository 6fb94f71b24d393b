// Package events carries playtest progress (queued actions, turns being
// processed and their outcome) to every open play page.
package events

import (
	"context"
	"fmt"
	"log/slog"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeActionQueued   EventType = "action.queued"
	EventTypeTurnProcessing EventType = "turn.processing"
	EventTypeTurnCompleted  EventType = "turn.completed"
	EventTypeTurnFailed     EventType = "turn.failed"
)

// Event is one playtest update.
type Event struct {
	Type      EventType      `json:"type"`
	SessionID string         `json:"session_id"`
	Data      map[string]any `json:"data,omitempty"`
}

// Bus delivers events to the subscribers of a session.
type Bus interface {
	Publish(ctx context.Context, sessionID string, e Event) error
	// Subscribe returns a channel of the session's events and a function
	// that ends the subscription. The channel is closed after cancel.
	Subscribe(ctx context.Context, sessionID string) (<-chan Event, func(), error)
}

func channelName(sessionID string) string {
	return fmt.Sprintf("playtest-events:%s", sessionID)
}

// Broadcaster publishes typed playtest events to a Bus
type Broadcaster struct {
	bus    Bus
	logger *slog.Logger
}

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(bus Bus, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{bus: bus, logger: logger}
}

// Subscribe passes through to the bus.
func (b *Broadcaster) Subscribe(ctx context.Context, sessionID string) (<-chan Event, func(), error) {
	return b.bus.Subscribe(ctx, sessionID)
}

// PublishActionQueued publishes an action.queued event
func (b *Broadcaster) PublishActionQueued(ctx context.Context, sessionID, actorID string) error {
	return b.publish(ctx, Event{
		Type:      EventTypeActionQueued,
		SessionID: sessionID,
		Data:      map[string]any{"actor_id": actorID},
	})
}

// PublishTurnProcessing publishes a turn.processing event
func (b *Broadcaster) PublishTurnProcessing(ctx context.Context, sessionID string, players int) error {
	return b.publish(ctx, Event{
		Type:      EventTypeTurnProcessing,
		SessionID: sessionID,
		Data:      map[string]any{"players": players},
	})
}

// PublishTurnCompleted publishes a turn.completed event
func (b *Broadcaster) PublishTurnCompleted(ctx context.Context, sessionID, turnID, narrative, location string) error {
	return b.publish(ctx, Event{
		Type:      EventTypeTurnCompleted,
		SessionID: sessionID,
		Data: map[string]any{
			"turn_id":   turnID,
			"narrative": narrative,
			"location":  location,
		},
	})
}

// PublishTurnFailed publishes a turn.failed event
func (b *Broadcaster) PublishTurnFailed(ctx context.Context, sessionID, errorMsg string) error {
	return b.publish(ctx, Event{
		Type:      EventTypeTurnFailed,
		SessionID: sessionID,
		Data:      map[string]any{"error": errorMsg},
	})
}

func (b *Broadcaster) publish(ctx context.Context, e Event) error {
	if err := b.bus.Publish(ctx, e.SessionID, e); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "event_type", e.Type)
		return fmt.Errorf("failed to publish event: %w", err)
	}
	b.logger.Debug("Event published", "event_type", e.Type, "session_id", e.SessionID)
	return nil
}
