package dm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jwebster45206/dungeon-master/internal/metrics"
	"github.com/jwebster45206/dungeon-master/internal/services"
	"github.com/jwebster45206/dungeon-master/pkg/chat"
	"github.com/jwebster45206/dungeon-master/pkg/event"
	"github.com/jwebster45206/dungeon-master/pkg/prompts"
	"github.com/jwebster45206/dungeon-master/pkg/state"
	"github.com/jwebster45206/dungeon-master/pkg/textfilter"
)

// Narrative is the narrator model's JSON object, kept verbatim.
type Narrative json.RawMessage

// NarrationFailed is the narrative returned once every attempt has failed.
func NarrationFailed() Narrative {
	return Narrative(event.ErrorIntent(DetailNarrationFailed))
}

func (n Narrative) fields() map[string]any {
	var m map[string]any
	if err := json.Unmarshal(n, &m); err != nil {
		return nil
	}
	return m
}

// IsError reports whether the narrative is the failure sentinel.
func (n Narrative) IsError() bool {
	return event.Intent(n).IsError()
}

// Text returns the narration prose. For the failure sentinel it is the
// error detail.
func (n Narrative) Text() string {
	m := n.fields()
	if s, ok := m["narrative"].(string); ok {
		return s
	}
	if n.IsError() {
		s, _ := m["detail"].(string)
		return s
	}
	return ""
}

// Speaker returns who is speaking, "narrator" when unset.
func (n Narrative) Speaker() string {
	if s, ok := n.fields()["speaker"].(string); ok && s != "" {
		return s
	}
	return "narrator"
}

func (n Narrative) String() string {
	if len(n) == 0 {
		return "null"
	}
	return string(n)
}

func (n Narrative) MarshalJSON() ([]byte, error) {
	if len(n) == 0 {
		return []byte("null"), nil
	}
	return n, nil
}

func (n *Narrative) UnmarshalJSON(data []byte) error {
	*n = append((*n)[:0], data...)
	return nil
}

// Verdict is the consistency checker's answer.
type Verdict struct {
	Consistent bool     `json:"consistent"`
	Issues     []string `json:"issues,omitempty"`
}

// Narrator turns executed events into prose.
type Narrator struct {
	llm          services.LLMService
	prompts      *prompts.Store
	attempts     int
	historyLimit int
	filter       *textfilter.Filter // nil at an unfiltered rating
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

func NewNarrator(llm services.LLMService, store *prompts.Store, attempts, historyLimit int, m *metrics.Metrics, logger *slog.Logger) *Narrator {
	if attempts <= 0 {
		attempts = DefaultNarrationAttempts
	}
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Narrator{
		llm:          llm,
		prompts:      store,
		attempts:     attempts,
		historyLimit: historyLimit,
		metrics:      m,
		logger:       orDefault(logger),
	}
}

// Narrate describes what happened this turn. A failed call or an unusable
// reply is retried; after the last attempt the failure sentinel is returned.
func (n *Narrator) Narrate(ctx context.Context, input string, plan []event.Event, results []event.Result, session state.Session, history []chat.ChatMessage) Narrative {
	defer n.metrics.Time(metrics.StageNarrate)()

	system, err := n.prompts.Load(prompts.StageNarrator)
	if err != nil {
		n.logger.Error("Error loading narrator prompt", "error", err)
		n.metrics.LLMFailure(metrics.StageNarrate)
		return NarrationFailed()
	}

	if plan == nil {
		plan = []event.Event{}
	}
	if results == nil {
		results = []event.Result{}
	}

	messages, err := prompts.New(render(system, map[string]string{"user_input": input})).
		WithContext("Validated Plan", plan).
		WithContext("Execution Results", results).
		WithContext("Session", session).
		WithHistory(history, n.historyLimit).
		WithUserMessage(input).
		Build()
	if err != nil {
		n.logger.Error("Error building narrator messages", "error", err)
		n.metrics.LLMFailure(metrics.StageNarrate)
		return NarrationFailed()
	}

	for attempt := 1; attempt <= n.attempts; attempt++ {
		if ctx.Err() != nil {
			n.logger.Warn("Narration cancelled", "attempt", attempt, "error", ctx.Err())
			break
		}
		narrative, err := n.once(ctx, messages)
		if err == nil {
			return narrative
		}
		n.metrics.LLMFailure(metrics.StageNarrate)
		n.logger.Warn("An error occurred during narration", "attempt", attempt, "error", err)
	}
	return NarrationFailed()
}

func (n *Narrator) once(ctx context.Context, messages []chat.ChatMessage) (Narrative, error) {
	resp, err := n.llm.Chat(ctx, messages)
	if err != nil {
		return nil, err
	}
	raw, err := chat.ExtractJSON(resp.Message)
	if err != nil {
		return nil, err
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("narration must be a JSON object: %w", err)
	}
	if text, ok := obj["narrative"].(string); ok && n.filter != nil && n.filter.Contains(text) {
		obj["narrative"] = n.filter.Apply(text)
		if raw, err = json.Marshal(obj); err != nil {
			return nil, err
		}
		n.logger.Debug("Narration softened for content rating")
	}
	return Narrative(raw), nil
}

// CheckConsistency asks whether the narrative contradicts the session. The
// narrative itself is never changed.
func (n *Narrator) CheckConsistency(ctx context.Context, narrative Narrative, session state.Session) (*Verdict, error) {
	defer n.metrics.Time(metrics.StageConsist)()

	system, err := n.prompts.Load(prompts.StageValidateNarrative)
	if err != nil {
		return nil, fmt.Errorf("failed to load consistency prompt: %w", err)
	}

	messages, err := prompts.New(system).
		WithContext("Session", session).
		WithUserMessage(narrative.Text()).
		Build()
	if err != nil {
		return nil, err
	}

	resp, err := n.llm.Chat(ctx, messages)
	if err != nil {
		n.metrics.LLMFailure(metrics.StageConsist)
		return nil, fmt.Errorf("failed to check narrative: %w", err)
	}
	raw, err := chat.ExtractJSON(resp.Message)
	if err != nil {
		n.metrics.LLMFailure(metrics.StageConsist)
		return nil, fmt.Errorf("failed to parse consistency verdict: %w", err)
	}

	var v Verdict
	if err := json.Unmarshal(raw, &v); err != nil {
		n.metrics.LLMFailure(metrics.StageConsist)
		return nil, fmt.Errorf("failed to parse consistency verdict: %w", err)
	}
	n.metrics.NarrativeCheck(v.Consistent)
	if !v.Consistent {
		n.logger.Warn("Narrative inconsistent with session", "issues", strings.Join(v.Issues, "; "))
	} else {
		n.logger.Debug("Narrative consistent with session")
	}
	return &v, nil
}
