package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/dungeon-master/internal/dm"
	"github.com/jwebster45206/dungeon-master/internal/services/queue"
	"github.com/jwebster45206/dungeon-master/pkg/chat"
	"github.com/jwebster45206/dungeon-master/pkg/event"
	"github.com/jwebster45206/dungeon-master/pkg/state"
)

func TestPlayPage_NoPlayer(t *testing.T) {
	ts := newTestServer(t)

	for _, target := range []string{"/play", "/play?player=pc_Nobody"} {
		rec := ts.get(target)
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
		body := rec.Body.String()
		assert.Contains(t, body, warnNoPlayer)
		assert.Contains(t, body, `href="/play?player=pc_Elara"`)
		assert.Contains(t, body, `href="/play?player=pc_Bryn"`)
		assert.NotContains(t, body, "Your Action")
	}
}

func TestPlayPage(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get("/play?player=pc_Elara&notice=processed")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Current Scene for Elara (pc_Elara)")
	assert.Contains(t, body, "loc_Havenwood")
	assert.Contains(t, body, noticeProcessed)
	assert.Contains(t, body, "No turns yet.")
}

func TestSubmitAction(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	rec := ts.post("/play/action", url.Values{"player": {"pc_Elara"}, "input": {"I order an ale"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/play?notice=submitted&player=pc_Elara", rec.Header().Get("Location"))

	// A second submission replaces the first.
	ts.post("/play/action", url.Values{"player": {"pc_Elara"}, "input": {"I order a cider"}})
	pending, err := ts.queue.Pending(ctx, "test-session")
	require.NoError(t, err)
	assert.Equal(t, []event.PlayerInput{{ActorID: "pc_Elara", Input: "I order a cider"}}, pending)

	page := ts.get("/play?player=pc_Bryn").Body.String()
	assert.Contains(t, page, "Waiting Actions")
	assert.Contains(t, page, "I order a cider")
}

func TestSubmitAction_Rejected(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		form   url.Values
		status int
	}{
		{"unknown player", url.Values{"player": {"pc_Nobody"}, "input": {"hello"}}, http.StatusNotFound},
		{"npc", url.Values{"player": {"npc_GuardCaptainThorne"}, "input": {"hello"}}, http.StatusNotFound},
		{"empty input", url.Values{"player": {"pc_Elara"}, "input": {"  "}}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.post("/play/action", tt.form)
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	pending, err := ts.queue.Pending(context.Background(), "test-session")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestProcessTurn(t *testing.T) {
	ts := newTestServer(t)
	ts.post("/play/action", url.Values{"player": {"pc_Elara"}, "input": {"I greet the captain"}})
	ts.post("/play/action", url.Values{"player": {"pc_Bryn"}, "input": {"I watch the crowd"}})

	rec := ts.post("/play/turn", url.Values{"player": {"pc_Bryn"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/play?notice=processed&player=pc_Bryn", rec.Header().Get("Location"))

	require.Len(t, ts.game.batches, 1)
	assert.Equal(t, []event.PlayerInput{
		{ActorID: "pc_Bryn", Input: "I watch the crowd"},
		{ActorID: "pc_Elara", Input: "I greet the captain"},
	}, ts.game.batches[0])

	pending, err := ts.queue.Pending(context.Background(), "test-session")
	require.NoError(t, err)
	assert.Empty(t, pending, "queue is cleared after the turn")

	page := ts.get("/play?player=pc_Bryn").Body.String()
	assert.Contains(t, page, "The tavern falls silent.")
}

func TestProcessTurn_NoActions(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.post("/play/turn", url.Values{"player": {"pc_Elara"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), warnNoActions)
	assert.Empty(t, ts.game.batches)
}

func TestProcessTurn_Failure(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation exhausted", &dm.ValidationExhaustedError{Attempts: 5}, http.StatusUnprocessableEntity},
		{"other", fmt.Errorf("intent: %w", errModelDown), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.game.err = tt.err
			ts.post("/play/action", url.Values{"player": {"pc_Elara"}, "input": {"I fly to the moon"}})

			rec := ts.post("/play/turn", url.Values{"player": {"pc_Elara"}})
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), "Turn failed: ")

			pending, err := ts.queue.Pending(context.Background(), "test-session")
			require.NoError(t, err)
			assert.Empty(t, pending)
		})
	}
}

func TestSessionJSON(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get("/play/session")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var s state.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(t, "loc_Havenwood", s.LocationID())
}

func TestProcessTurn_RedisQueue(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := queue.NewClient(context.Background(), "redis://"+mr.Addr(), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	game := newFakeGame(t)
	srv, err := New(Options{
		Game:      game,
		Queue:     queue.NewRedisActionQueue(client),
		SessionID: "redis-session",
		Health:    map[string]Pinger{"queue": client},
		Logger:    discardLogger(),
	})
	require.NoError(t, err)
	ts := &testServer{handler: srv.Handler(), game: game}

	ts.post("/play/action", url.Values{"player": {"pc_Elara"}, "input": {"I open the door"}})
	assert.Equal(t, http.StatusOK, ts.get("/health").Code)

	rec := ts.post("/play/turn", url.Values{"player": {"pc_Elara"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Len(t, game.batches, 1)
	assert.Equal(t, "I open the door", game.batches[0][0].Input)
}

func TestNarratives(t *testing.T) {
	history := []chat.ChatMessage{
		{Role: chat.ChatRolePlayer, Content: "Narrative: not a system entry"},
		{Role: chat.ChatRoleSystem, Content: dm.PrefixPlan + "[]"},
		{Role: chat.ChatRoleSystem, Content: dm.PrefixNarrative + `{"narrative": "First."}`},
		{Role: chat.ChatRoleSystem, Content: dm.PrefixBatchStory + dm.NarrationFailed().String()},
		{Role: chat.ChatRoleSystem, Content: dm.PrefixBatchStory + `{"narrative": "Second."}`},
	}
	assert.Equal(t, []string{"First.", "Failed to generate narration after retries.", "Second."}, narratives(history))
}
