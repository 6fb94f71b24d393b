package dm

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/jwebster45206/dungeon-master/internal/config"
	"github.com/jwebster45206/dungeon-master/internal/metrics"
	"github.com/jwebster45206/dungeon-master/internal/services"
	"github.com/jwebster45206/dungeon-master/pkg/dice"
	"github.com/jwebster45206/dungeon-master/pkg/prompts"
	"github.com/jwebster45206/dungeon-master/pkg/state"
)

const testPrompts = `user_intent_prompt: "Read the player's intent."
interpreter_prompt: "Produce events."
narrator_prompt: "Narrate."
validate_narrative_prompt: "Check the narrative."
`

// fixedSource makes every Intn(n) call return v % n.
type fixedSource int64

func (s fixedSource) Int63() int64 { return int64(s) << 32 }
func (s fixedSource) Seed(int64)   {}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writePrompts(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write prompts: %v", err)
	}
	return path
}

func testStore(t *testing.T) *prompts.Store {
	t.Helper()
	return prompts.NewStore(writePrompts(t, testPrompts))
}

func havenwood(t *testing.T) *state.GameState {
	t.Helper()
	gs, err := state.LoadScenario("havenwood")
	if err != nil {
		t.Fatalf("LoadScenario() error = %v", err)
	}
	return gs
}

// testRoller always rolls 12 on a d20.
func testRoller() *dice.Roller {
	return dice.NewRollerFromSource(fixedSource(11))
}

func testConfig() *config.Config {
	return &config.Config{
		MaxValidationAttempts: 3,
		NarrationAttempts:     2,
		DefaultDC:             DefaultDC,
		ValidationScope:       config.ScopeTree,
		HistoryLimit:          DefaultHistoryLimit,
	}
}

type testModels struct {
	intent      *services.MockLLMAPI
	interpreter *services.MockLLMAPI
	narrator    *services.MockLLMAPI
}

func newTestModels() testModels {
	return testModels{
		intent:      services.NewMockLLMAPI(),
		interpreter: services.NewMockLLMAPI(),
		narrator:    services.NewMockLLMAPI(),
	}
}

func (m testModels) Models() Models {
	return Models{Intent: m.intent, Interpreter: m.interpreter, Narrator: m.narrator}
}

func newTestEngine(t *testing.T, cfg *config.Config, gs *state.GameState, models testModels, speaker Speaker) *Engine {
	t.Helper()
	return New(cfg, gs, models.Models(), testStore(t), testRoller(), speaker, metrics.New(), discardLogger())
}
