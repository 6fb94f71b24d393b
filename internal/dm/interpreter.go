package dm

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/jwebster45206/dungeon-master/internal/metrics"
	"github.com/jwebster45206/dungeon-master/internal/services"
	"github.com/jwebster45206/dungeon-master/pkg/chat"
	"github.com/jwebster45206/dungeon-master/pkg/event"
	"github.com/jwebster45206/dungeon-master/pkg/prompts"
	"github.com/jwebster45206/dungeon-master/pkg/state"
)

// Interpreter turns player text into an intent and an intent into events.
// Failures never surface as errors; they become sentinel values that flow
// through the rest of the turn.
type Interpreter struct {
	intentLLM services.LLMService
	eventLLM  services.LLMService
	prompts   *prompts.Store
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewInterpreter(intentLLM, eventLLM services.LLMService, store *prompts.Store, m *metrics.Metrics, logger *slog.Logger) *Interpreter {
	return &Interpreter{
		intentLLM: intentLLM,
		eventLLM:  eventLLM,
		prompts:   store,
		metrics:   m,
		logger:    orDefault(logger),
	}
}

// InterpretIntent asks the intent model what the player is trying to do.
// It makes exactly one attempt.
func (in *Interpreter) InterpretIntent(ctx context.Context, input string) event.Intent {
	defer in.metrics.Time(metrics.StageIntent)()

	system, err := in.prompts.Load(prompts.StageUserIntent)
	if err != nil {
		in.logger.Error("Error loading intent prompt", "error", err)
		in.metrics.LLMFailure(metrics.StageIntent)
		return event.ErrorIntent(DetailIntentFailed)
	}

	messages, err := prompts.New(render(system, map[string]string{"user_input": input})).
		WithUserMessage("## Raw User Input: " + input).
		Build()
	if err != nil {
		in.logger.Error("Error building intent messages", "error", err)
		in.metrics.LLMFailure(metrics.StageIntent)
		return event.ErrorIntent(DetailIntentFailed)
	}

	raw, err := in.ask(ctx, in.intentLLM, messages)
	if err != nil {
		in.logger.Error("An error occurred during intent interpretation", "error", err)
		in.metrics.LLMFailure(metrics.StageIntent)
		return event.ErrorIntent(DetailIntentFailed)
	}

	in.logger.Debug("Interpreted intent", "intent", string(raw))
	return event.Intent(raw)
}

// InterpretBatchIntent interprets several players' inputs in one call. The
// inputs are sent as a JSON list of {actor_id, input} objects.
func (in *Interpreter) InterpretBatchIntent(ctx context.Context, inputs []event.PlayerInput) event.Intent {
	data, err := json.Marshal(inputs)
	if err != nil {
		in.logger.Error("Error encoding batch inputs", "error", err)
		return event.ErrorIntent(DetailIntentFailed)
	}
	return in.InterpretIntent(ctx, string(data))
}

// InterpretEvents asks the interpreter model for the events that carry out
// intent. Events rejected by a previous validation pass are included so the
// model can correct them.
func (in *Interpreter) InterpretEvents(ctx context.Context, intent event.Intent, session state.Session, invalid []event.Event) []event.Event {
	defer in.metrics.Time(metrics.StageInterpret)()

	failed := []event.Event{event.ErrorEvent(DetailInterpretFailed)}

	system, err := in.prompts.Load(prompts.StageInterpreter)
	if err != nil {
		in.logger.Error("Error loading interpreter prompt", "error", err)
		in.metrics.LLMFailure(metrics.StageInterpret)
		return failed
	}

	if invalid == nil {
		invalid = []event.Event{}
	}
	sessionJSON, err := json.Marshal(session)
	if err != nil {
		in.logger.Error("Error encoding session", "error", err)
		return failed
	}
	invalidJSON, err := json.Marshal(invalid)
	if err != nil {
		in.logger.Error("Error encoding invalid events", "error", err)
		return failed
	}

	system = render(system, map[string]string{
		"session":        string(sessionJSON),
		"invalid_events": string(invalidJSON),
	})

	messages, err := prompts.New(system).
		WithContext("Session", session).
		WithContext("Invalid Events", invalid).
		WithUserMessage("## Parsed User Input:" + intent.String()).
		Build()
	if err != nil {
		in.logger.Error("Error building interpreter messages", "error", err)
		in.metrics.LLMFailure(metrics.StageInterpret)
		return failed
	}

	raw, err := in.ask(ctx, in.eventLLM, messages)
	if err != nil {
		in.logger.Error("An error occurred during event interpretation", "error", err)
		in.metrics.LLMFailure(metrics.StageInterpret)
		return failed
	}

	events, err := event.ParseEvents(raw)
	if err != nil {
		in.logger.Error("Interpreter reply is not a list of events", "error", err)
		in.metrics.LLMFailure(metrics.StageInterpret)
		return failed
	}
	return events
}

// ask sends messages and returns the JSON value found in the reply.
func (in *Interpreter) ask(ctx context.Context, llm services.LLMService, messages []chat.ChatMessage) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := llm.Chat(ctx, messages)
	if err != nil {
		return nil, err
	}
	return chat.ExtractJSON(resp.Message)
}
