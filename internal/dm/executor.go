package dm

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/jwebster45206/dungeon-master/internal/metrics"
	"github.com/jwebster45206/dungeon-master/pkg/dice"
	"github.com/jwebster45206/dungeon-master/pkg/event"
	"github.com/jwebster45206/dungeon-master/pkg/state"
)

// Execution error messages.
const (
	ErrNoDestination = "No destination provided for movement."
	ErrNoRollActor   = "No actor_id provided for roll."
)

// subtypeStats maps a lowercased check subtype to the stat key that
// supplies its modifier. Unlisted subtypes use themselves as the key.
var subtypeStats = map[string]string{
	"perception":      "perception",
	"athletics":       "athletics",
	"stealth":         "stealth",
	"investigation":   "investigation",
	"sleight_of_hand": "sleight_of_hand",
	"passive":         "passive",
	"attack":          "attack",
	"interaction":     "interaction",
	"movement":        "movement",
	"inventory":       "inventory",
}

// StatKey returns the stat key used for a check subtype.
func StatKey(subtype string) string {
	sub := strings.ToLower(subtype)
	if key, ok := subtypeStats[sub]; ok {
		return key
	}
	return sub
}

// Executor applies validated events to the game state.
type Executor struct {
	roller    *dice.Roller
	defaultDC int
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewExecutor(roller *dice.Roller, defaultDC int, m *metrics.Metrics, logger *slog.Logger) *Executor {
	if roller == nil {
		roller = dice.NewRoller(0)
	}
	if defaultDC <= 0 {
		defaultDC = DefaultDC
	}
	return &Executor{roller: roller, defaultDC: defaultDC, metrics: m, logger: orDefault(logger)}
}

// Execute runs every event in order and returns one result per event.
func (x *Executor) Execute(gs *state.GameState, events []event.Event) []event.Result {
	defer x.metrics.Time(metrics.StageExecute)()

	results := make([]event.Result, 0, len(events))
	for _, e := range events {
		switch e.Kind() {
		case event.KindMovement:
			results = append(results, x.move(gs, e))
		case event.KindCheck:
			results = append(results, x.Roll(gs, e))
		default:
			results = append(results, event.Result{Event: e, Message: event.MessageActionExecuted})
		}
	}
	return results
}

// move relocates the session and the party. The session is untouched when
// the destination is unknown.
func (x *Executor) move(gs *state.GameState, e event.Event) event.Result {
	dest := e.Parameters.TargetID
	if dest == "" {
		return event.Result{Event: e, Error: ErrNoDestination}
	}
	if err := gs.SetSessionLocation(dest); err != nil {
		x.logger.Warn("Movement failed", "target_id", dest, "error", err)
		return event.Result{Event: e, Error: err.Error()}
	}
	gs.MoveParty(dest)
	gs.SetCurrentActors(dest)
	x.logger.Info("Party moved", "location", dest)
	return event.Result{Event: e, Message: fmt.Sprintf("Moved to %s", dest)}
}

// Roll resolves a d20 check for a player character. The game state is not
// modified.
func (x *Executor) Roll(gs *state.GameState, e event.Event) event.Result {
	if e.ActorID == "" {
		return event.Result{Event: e, Error: ErrNoRollActor}
	}
	pc, ok := gs.PC(e.ActorID)
	if !ok {
		return event.Result{Event: e, Error: fmt.Sprintf("Actor with id %s not found.", e.ActorID)}
	}

	subtype := strings.ToLower(e.Subtype)
	modifier := pc.Modifier(e.ActorID, StatKey(subtype))
	roll := x.roller.D20()

	dc := x.defaultDC
	if e.Parameters.ActionDC != nil {
		dc = *e.Parameters.ActionDC
	}

	total := roll + modifier
	r := &event.Roll{
		ActorID:  e.ActorID,
		Subtype:  subtype,
		Roll:     roll,
		Modifier: modifier,
		Total:    total,
		DC:       dc,
		Success:  total >= dc,
	}
	x.metrics.Roll(r.Outcome())
	x.logger.Info("Check rolled", "actor_id", e.ActorID, "roll", r.String())
	return event.Result{Event: e, Roll: r}
}
