package dm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/dungeon-master/internal/metrics"
	"github.com/jwebster45206/dungeon-master/pkg/event"
	"github.com/jwebster45206/dungeon-master/pkg/state"
)

// ErrValidationExhausted is wrapped by ValidationExhaustedError.
var ErrValidationExhausted = errors.New("validation attempts exhausted")

// ValidationExhaustedError reports that the interpreter kept producing
// events with unknown targets.
type ValidationExhaustedError struct {
	Attempts int
	Invalid  []event.Event
}

func (e *ValidationExhaustedError) Error() string {
	return fmt.Sprintf("validation attempts exhausted after %d attempts (%d invalid events)", e.Attempts, len(e.Invalid))
}

func (e *ValidationExhaustedError) Unwrap() error {
	return ErrValidationExhausted
}

// Pipeline runs the interpret and validate loop.
type Pipeline struct {
	interpreter *Interpreter
	validator   *Validator
	maxAttempts int
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func NewPipeline(interpreter *Interpreter, validator *Validator, maxAttempts int, m *metrics.Metrics, logger *slog.Logger) *Pipeline {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxValidationAttempts
	}
	return &Pipeline{
		interpreter: interpreter,
		validator:   validator,
		maxAttempts: maxAttempts,
		metrics:     m,
		logger:      orDefault(logger),
	}
}

// ProcessPlayerInput interprets intent into events and validates them,
// feeding invalid events back to the interpreter until every event of an
// attempt validates.
func (p *Pipeline) ProcessPlayerInput(ctx context.Context, gs *state.GameState, intent event.Intent) ([]event.Event, error) {
	var invalid []event.Event
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		events := p.interpreter.InterpretEvents(ctx, intent, gs.SessionView(), invalid)

		valid, inv, err := p.validator.Validate(gs, events)
		if err != nil {
			return nil, fmt.Errorf("failed to validate events: %w", err)
		}
		if len(valid) == len(events) {
			p.metrics.ValidationAttempts(attempt)
			p.logger.Info("Events validated", "attempt", attempt, "events", len(valid))
			return valid, nil
		}

		p.metrics.InvalidEvents(len(inv))
		p.logger.Warn("Some events were invalid, retrying interpretation",
			"attempt", attempt,
			"invalid", len(inv),
			"scope", p.validator.Scope())
		invalid = inv
	}

	p.metrics.ValidationAttempts(p.maxAttempts)
	return nil, &ValidationExhaustedError{Attempts: p.maxAttempts, Invalid: invalid}
}
