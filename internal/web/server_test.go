package web

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jwebster45206/dungeon-master/internal/dm"
	"github.com/jwebster45206/dungeon-master/internal/metrics"
	"github.com/jwebster45206/dungeon-master/internal/services/events"
	"github.com/jwebster45206/dungeon-master/internal/services/queue"
	"github.com/jwebster45206/dungeon-master/internal/storage"
	"github.com/jwebster45206/dungeon-master/pkg/campaign"
	"github.com/jwebster45206/dungeon-master/pkg/chat"
	"github.com/jwebster45206/dungeon-master/pkg/event"
	"github.com/jwebster45206/dungeon-master/pkg/state"
)

const campaignJSON = `{
	"main_quest_hook": "The lighthouse keeper has vanished.",
	"key_locations": [
		{"name": "Saltmarsh", "description": "A fishing village."},
		{"name": "The Lighthouse", "description": "Dark for three nights."}
	],
	"npcs": [{"name": "Old Brine", "description": "A retired sailor.", "secret": "He saw the keeper leave."}],
	"major_conflict": "Smugglers want the light kept dark."
}`

const plotJSON = `{"plot": {
	"main_quest": "Relight the lighthouse.",
	"key_locations": [{"name": "Saltmarsh", "description": "A fishing village."}],
	"act_one": {"summary": "Arrival.", "checkpoints": [{"name": "Docks", "description": "Ask around.", "consequences": {"success": "A lead.", "failure": "Suspicion."}}]},
	"act_two": {"summary": "Investigation.", "checkpoints": []},
	"act_three": {"summary": "Showdown.", "checkpoints": []}
}}`

type fakeGenerator struct {
	err   error
	calls []string
}

func (g *fakeGenerator) GenerateCampaign(_ context.Context, details string) (*campaign.Campaign, error) {
	g.calls = append(g.calls, "campaign:"+details)
	if g.err != nil {
		return nil, g.err
	}
	return campaign.ParseCampaign([]byte(campaignJSON))
}

func (g *fakeGenerator) GeneratePlot(_ context.Context, details, players string) (*campaign.Plot, error) {
	g.calls = append(g.calls, "plot:"+details+"/"+players)
	if g.err != nil {
		return nil, g.err
	}
	return campaign.ParsePlot([]byte(plotJSON))
}

// fakeGame appends a narration per batch and moves nothing.
type fakeGame struct {
	mu      sync.Mutex
	gs      *state.GameState
	history []chat.ChatMessage
	batches [][]event.PlayerInput
	err     error
}

func newFakeGame(t *testing.T) *fakeGame {
	t.Helper()
	gs, err := state.LoadScenario("havenwood")
	if err != nil {
		t.Fatalf("LoadScenario() error = %v", err)
	}
	return &fakeGame{gs: gs}
}

func (g *fakeGame) RunBatch(_ context.Context, inputs []event.PlayerInput) (*dm.TurnResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.batches = append(g.batches, inputs)
	if g.err != nil {
		return nil, g.err
	}
	narrative := dm.Narrative(`{"narrative": "The tavern falls silent."}`)
	g.history = append(g.history,
		chat.ChatMessage{Role: chat.ChatRoleSystem, Content: dm.PrefixBatchInputs + "[]"},
		chat.ChatMessage{Role: chat.ChatRoleSystem, Content: dm.PrefixBatchStory + narrative.String()},
	)
	return &dm.TurnResult{Inputs: inputs, Narrative: narrative}, nil
}

func (g *fakeGame) Session() state.Session { return g.gs.SessionView() }

func (g *fakeGame) State() *state.GameState { return g.gs.Snapshot() }

func (g *fakeGame) History() []chat.ChatMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]chat.ChatMessage(nil), g.history...)
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openArchive(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "campaigns.db"))
	if err != nil {
		t.Fatalf("storage.Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

type testServer struct {
	handler   http.Handler
	generator *fakeGenerator
	archive   *storage.Store
	game      *fakeGame
	queue     queue.ActionQueue
	events    *events.Broadcaster
	metrics   *metrics.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		generator: &fakeGenerator{},
		archive:   openArchive(t),
		game:      newFakeGame(t),
		queue:     queue.NewMemoryActionQueue(),
		events:    events.NewBroadcaster(events.NewMemoryBus(), discardLogger()),
		metrics:   metrics.New(),
	}
	srv, err := New(Options{
		Generator: ts.generator,
		Archive:   ts.archive,
		Game:      ts.game,
		Queue:     ts.queue,
		Events:    ts.events,
		SessionID: "test-session",
		Health:    map[string]Pinger{"archive": ts.archive},
		Metrics:   ts.metrics,
		Logger:    discardLogger(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ts.handler = srv.Handler()
	return ts
}

func (ts *testServer) get(target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func (ts *testServer) post(target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func TestHandler_OptionalRoutes(t *testing.T) {
	srv, err := New(Options{Logger: discardLogger()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	h := srv.Handler()

	for _, target := range []string{"/", "/play", "/metrics"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("GET %s = %d, want %d", target, rec.Code, http.StatusNotFound)
		}
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET /health = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.metrics.Turn("ok")

	rec := ts.get("/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "dm_turns_total") {
		t.Error("metrics output does not include dm_turns_total")
	}
}

var errModelDown = errors.New("model down")
