package dm

import (
	"fmt"

	"github.com/jwebster45206/dungeon-master/internal/config"
	"github.com/jwebster45206/dungeon-master/pkg/event"
	"github.com/jwebster45206/dungeon-master/pkg/state"
)

// Validator checks event targets against the game state.
type Validator struct {
	scope string
}

// NewValidator returns a validator searching the whole game state
// (config.ScopeTree) or only the session (config.ScopeSession).
func NewValidator(scope string) *Validator {
	if scope != config.ScopeSession {
		scope = config.ScopeTree
	}
	return &Validator{scope: scope}
}

// Scope returns the validator's search scope.
func (v *Validator) Scope() string {
	return v.scope
}

// Validate splits events into those whose target_id can be found and those
// that cannot. Events without a target are always valid. Invalid events are
// returned with ValidationError set; order is preserved in both lists.
func (v *Validator) Validate(gs *state.GameState, events []event.Event) (valid, invalid []event.Event, err error) {
	var tree any
	if v.scope == config.ScopeSession {
		tree, err = gs.SessionTree()
	} else {
		tree, err = gs.Tree()
	}
	if err != nil {
		return nil, nil, err
	}

	valid = make([]event.Event, 0, len(events))
	for _, e := range events {
		if !e.HasTarget() || ContainsID(tree, e.Parameters.TargetID) {
			valid = append(valid, e)
			continue
		}
		e.ValidationError = fmt.Sprintf("Invalid target_id: %s", e.Parameters.TargetID)
		invalid = append(invalid, e)
	}
	return valid, invalid, nil
}

// ContainsID reports whether id appears anywhere in a generic JSON tree.
// A string matches when equal to id, a map when any key equals id or any
// value matches, and a list when any element matches.
func ContainsID(node any, id string) bool {
	switch n := node.(type) {
	case string:
		return n == id
	case map[string]any:
		for k, child := range n {
			if k == id || ContainsID(child, id) {
				return true
			}
		}
	case []any:
		for _, child := range n {
			if ContainsID(child, id) {
				return true
			}
		}
	}
	return false
}
