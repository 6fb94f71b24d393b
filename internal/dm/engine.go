package dm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jwebster45206/dungeon-master/internal/config"
	"github.com/jwebster45206/dungeon-master/internal/logger"
	"github.com/jwebster45206/dungeon-master/internal/metrics"
	"github.com/jwebster45206/dungeon-master/pkg/chat"
	"github.com/jwebster45206/dungeon-master/pkg/dice"
	"github.com/jwebster45206/dungeon-master/pkg/event"
	"github.com/jwebster45206/dungeon-master/pkg/prompts"
	"github.com/jwebster45206/dungeon-master/pkg/state"
	"github.com/jwebster45206/dungeon-master/pkg/textfilter"
)

// ErrEmptyInput is returned for a turn with nothing to interpret.
var ErrEmptyInput = errors.New("input cannot be empty")

// History entry prefixes.
const (
	PrefixIntent      = "Interpreted Intent: "
	PrefixIntents     = "Interpreted Intents: "
	PrefixPlan        = "Validated Plan: "
	PrefixResults     = "Execution Results: "
	PrefixNarrative   = "Validated Narrative: "
	PrefixBatchInputs = "Batch Player Inputs: "
	PrefixBatchStory  = "Narrative: "
)

// Speaker voices a narration.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// TurnResult is everything a turn produced.
type TurnResult struct {
	ID        uuid.UUID           `json:"id"`
	Input     string              `json:"input"`
	Inputs    []event.PlayerInput `json:"inputs,omitempty"`
	Intent    event.Intent        `json:"intent"`
	Plan      []event.Event       `json:"plan"`
	Results   []event.Result      `json:"results"`
	Narrative Narrative           `json:"narrative"`
	Verdict   *Verdict            `json:"verdict,omitempty"`
	Session   state.Session       `json:"session"`
}

// Engine owns a game state and runs turns against it one at a time.
type Engine struct {
	mu      sync.Mutex
	gs      *state.GameState
	history []chat.ChatMessage

	interpreter *Interpreter
	pipeline    *Pipeline
	executor    *Executor
	narrator    *Narrator
	speaker     Speaker

	validateNarrative bool
	metrics           *metrics.Metrics
	logger            *slog.Logger
}

// New wires an engine for gs from cfg. speaker may be nil.
func New(cfg *config.Config, gs *state.GameState, models Models, store *prompts.Store, roller *dice.Roller, speaker Speaker, m *metrics.Metrics, log *slog.Logger) *Engine {
	log = orDefault(log)
	interpreter := NewInterpreter(models.Intent, models.Interpreter, store, m, log)
	narrator := NewNarrator(models.Narrator, store, cfg.NarrationAttempts, cfg.HistoryLimit, m, log)
	if textfilter.ParseRating(cfg.ContentRating).Filtered() {
		narrator.filter = textfilter.New()
	}
	return &Engine{
		gs:                gs,
		interpreter:       interpreter,
		pipeline:          NewPipeline(interpreter, NewValidator(cfg.ValidationScope), cfg.MaxValidationAttempts, m, log),
		executor:          NewExecutor(roller, cfg.DefaultDC, m, log),
		narrator:          narrator,
		speaker:           speaker,
		validateNarrative: cfg.ValidateNarrative,
		metrics:           m,
		logger:            log,
	}
}

// RunTurn processes one player's free text.
func (e *Engine) RunTurn(ctx context.Context, input string) (*TurnResult, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyInput
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	tr := &TurnResult{ID: uuid.New(), Input: input}
	log := logger.WithTurn(e.logger, tr.ID.String())
	log.Info("Turn started", "input", input)

	e.record(chat.ChatRolePlayer, input)

	tr.Intent = e.interpreter.InterpretIntent(ctx, input)
	e.record(chat.ChatRoleSystem, PrefixIntent+tr.Intent.String())

	if err := e.resolve(ctx, tr, input, PrefixNarrative, log); err != nil {
		return nil, err
	}
	return tr, nil
}

// RunBatch processes every player's queued action as a single turn.
func (e *Engine) RunBatch(ctx context.Context, inputs []event.PlayerInput) (*TurnResult, error) {
	if len(inputs) == 0 {
		return nil, ErrEmptyInput
	}
	for _, in := range inputs {
		if in.ActorID == "" || strings.TrimSpace(in.Input) == "" {
			return nil, fmt.Errorf("each batch input needs actor_id and input: %w", ErrEmptyInput)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	tr := &TurnResult{ID: uuid.New(), Inputs: append([]event.PlayerInput(nil), inputs...)}
	log := logger.WithTurn(e.logger, tr.ID.String())

	parts := make([]string, 0, len(inputs))
	for _, in := range inputs {
		parts = append(parts, fmt.Sprintf("%s: %s", e.gs.ActorName(in.ActorID), in.Input))
	}
	tr.Input = strings.Join(parts, " | ")
	log.Info("Batch turn started", "players", len(inputs))

	e.record(chat.ChatRoleSystem, PrefixBatchInputs+jsonText(inputs))

	tr.Intent = e.interpreter.InterpretBatchIntent(ctx, inputs)
	e.record(chat.ChatRoleSystem, PrefixIntents+tr.Intent.String())

	if err := e.resolve(ctx, tr, tr.Input, PrefixBatchStory, log); err != nil {
		return nil, err
	}
	return tr, nil
}

// resolve runs validation, execution and narration for an interpreted
// turn. The caller holds e.mu.
func (e *Engine) resolve(ctx context.Context, tr *TurnResult, narrationInput, narrativePrefix string, log *slog.Logger) error {
	plan, err := e.pipeline.ProcessPlayerInput(ctx, e.gs, tr.Intent)
	if err != nil {
		var exhausted *ValidationExhaustedError
		if errors.As(err, &exhausted) {
			e.metrics.Turn("invalid")
			log.Warn("Turn abandoned", "error", err, "invalid", jsonText(exhausted.Invalid))
		} else {
			e.metrics.Turn("error")
			log.Error("Turn failed", "error", err)
		}
		return err
	}
	tr.Plan = plan
	e.record(chat.ChatRoleSystem, PrefixPlan+jsonText(plan))

	if err := ctx.Err(); err != nil {
		e.metrics.Turn("error")
		return err
	}

	tr.Results = e.executor.Execute(e.gs, plan)
	e.record(chat.ChatRoleSystem, PrefixResults+jsonText(tr.Results))

	tr.Narrative = e.narrator.Narrate(ctx, narrationInput, tr.Plan, tr.Results, e.gs.SessionView(), e.historyCopy())

	if e.validateNarrative && !tr.Narrative.IsError() {
		verdict, err := e.narrator.CheckConsistency(ctx, tr.Narrative, e.gs.SessionView())
		if err != nil {
			log.Warn("Narrative consistency check failed", "error", err)
		}
		tr.Verdict = verdict
	}

	e.record(chat.ChatRoleSystem, narrativePrefix+tr.Narrative.String())
	tr.Session = e.gs.SessionView()

	if e.speaker != nil && !tr.Narrative.IsError() {
		if err := e.speaker.Speak(ctx, tr.Narrative.Text()); err != nil {
			log.Warn("Error with narrative audio", "error", err)
		}
	}

	e.metrics.Turn("ok")
	log.Info("Turn finished", "events", len(tr.Plan), "narrated", !tr.Narrative.IsError())
	return nil
}

func (e *Engine) record(role, content string) {
	e.history = append(e.history, chat.ChatMessage{Role: role, Content: content})
}

func (e *Engine) historyCopy() []chat.ChatMessage {
	return append([]chat.ChatMessage(nil), e.history...)
}

// History returns a copy of the turn history.
func (e *Engine) History() []chat.ChatMessage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.historyCopy()
}

// Session returns a copy of the current session.
func (e *Engine) Session() state.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gs.SessionView()
}

// State returns a deep copy of the whole game state.
func (e *Engine) State() *state.GameState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gs.Snapshot()
}

func jsonText(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
