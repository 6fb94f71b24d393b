// Package queue holds the pending player actions of a multi-player turn.
package queue

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jwebster45206/dungeon-master/pkg/event"
)

// ActionQueue collects one pending action per player character for a
// session. Submitting again for the same actor replaces the earlier action.
type ActionQueue interface {
	Submit(ctx context.Context, sessionID string, in event.PlayerInput) error
	// Pending returns the queued actions ordered by actor id.
	Pending(ctx context.Context, sessionID string) ([]event.PlayerInput, error)
	// Drain returns the queued actions and empties the queue atomically.
	Drain(ctx context.Context, sessionID string) ([]event.PlayerInput, error)
	Clear(ctx context.Context, sessionID string) error
}

func actionsKey(sessionID string) string {
	return fmt.Sprintf("playtest-actions:%s", sessionID)
}

// RedisActionQueue stores each session's actions in a Redis hash keyed by
// actor id.
type RedisActionQueue struct {
	client *Client
}

func NewRedisActionQueue(client *Client) *RedisActionQueue {
	return &RedisActionQueue{client: client}
}

// Submit sets the action for in.ActorID
func (q *RedisActionQueue) Submit(ctx context.Context, sessionID string, in event.PlayerInput) error {
	if err := validate(in); err != nil {
		return err
	}
	if err := q.client.rdb.HSet(ctx, actionsKey(sessionID), in.ActorID, in.Input).Err(); err != nil {
		return fmt.Errorf("failed to submit action: %w", err)
	}
	return nil
}

// Pending returns the queued actions without removing them
func (q *RedisActionQueue) Pending(ctx context.Context, sessionID string) ([]event.PlayerInput, error) {
	m, err := q.client.rdb.HGetAll(ctx, actionsKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read pending actions: %w", err)
	}
	return sorted(m), nil
}

// Drain reads and deletes the hash in one transaction
func (q *RedisActionQueue) Drain(ctx context.Context, sessionID string) ([]event.PlayerInput, error) {
	key := actionsKey(sessionID)

	pipe := q.client.rdb.TxPipeline()
	all := pipe.HGetAll(ctx, key)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to drain actions: %w", err)
	}
	return sorted(all.Val()), nil
}

// Clear removes all queued actions for a session
func (q *RedisActionQueue) Clear(ctx context.Context, sessionID string) error {
	if err := q.client.rdb.Del(ctx, actionsKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear actions: %w", err)
	}
	return nil
}

// MemoryActionQueue is the in-process queue used when no Redis is configured.
type MemoryActionQueue struct {
	mu       sync.Mutex
	sessions map[string]map[string]string
}

func NewMemoryActionQueue() *MemoryActionQueue {
	return &MemoryActionQueue{sessions: make(map[string]map[string]string)}
}

func (q *MemoryActionQueue) Submit(_ context.Context, sessionID string, in event.PlayerInput) error {
	if err := validate(in); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	m, ok := q.sessions[sessionID]
	if !ok {
		m = make(map[string]string)
		q.sessions[sessionID] = m
	}
	m[in.ActorID] = in.Input
	return nil
}

func (q *MemoryActionQueue) Pending(_ context.Context, sessionID string) ([]event.PlayerInput, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return sorted(q.sessions[sessionID]), nil
}

func (q *MemoryActionQueue) Drain(_ context.Context, sessionID string) ([]event.PlayerInput, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := sorted(q.sessions[sessionID])
	delete(q.sessions, sessionID)
	return out, nil
}

func (q *MemoryActionQueue) Clear(_ context.Context, sessionID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.sessions, sessionID)
	return nil
}

func validate(in event.PlayerInput) error {
	if in.ActorID == "" {
		return fmt.Errorf("actor_id cannot be empty")
	}
	if in.Input == "" {
		return fmt.Errorf("input cannot be empty")
	}
	return nil
}

func sorted(m map[string]string) []event.PlayerInput {
	out := make([]event.PlayerInput, 0, len(m))
	for id, input := range m {
		out = append(out, event.PlayerInput{ActorID: id, Input: input})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActorID < out[j].ActorID })
	return out
}
