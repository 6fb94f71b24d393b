package actor

import (
	"fmt"
	"maps"
	"slices"

	"github.com/jwebster45206/d20"
)

// Stat keys with special meaning for d20 actors. Every other key in
// Actor.Stats is treated as an attribute or skill modifier.
const (
	StatHPCurrent = "hp_current"
	StatHPMax     = "hp_max"
	StatAC        = "ac"
)

// DefaultAC is used when an actor's stats carry no armor class.
const DefaultAC = 10

// Knowledge is a fact an NPC may reveal to the party.
type Knowledge struct {
	ID       string `json:"id"`
	Info     string `json:"info"`
	Revealed bool   `json:"revealed"`
}

// Actor is a player character or non-player character in the game state.
// Field names follow the JSON shape shared with the prompts, so that the
// model sees exactly the identifiers it is expected to reference.
type Actor struct {
	Name               string            `json:"name"`
	Class              string            `json:"class,omitempty"`
	Race               string            `json:"race,omitempty"`
	Background         string            `json:"background,omitempty"`
	Role               string            `json:"role,omitempty"`
	Stats              map[string]int    `json:"stats,omitempty"`
	Inventory          []string          `json:"inventory,omitempty"`
	StatusEffects      []string          `json:"statusEffects,omitempty"`
	PersonalGoals      []string          `json:"personalGoals,omitempty"`
	CurrentLocation    string            `json:"currentLocation,omitempty"`
	DispositionToParty string            `json:"dispositionToParty,omitempty"`
	Knowledge          []Knowledge       `json:"knowledge,omitempty"`
	DialogueState      map[string]string `json:"dialogue_state,omitempty"`
}

// Clone returns a deep copy of the actor.
func (a *Actor) Clone() *Actor {
	if a == nil {
		return nil
	}
	c := *a
	c.Stats = maps.Clone(a.Stats)
	c.Inventory = slices.Clone(a.Inventory)
	c.StatusEffects = slices.Clone(a.StatusEffects)
	c.PersonalGoals = slices.Clone(a.PersonalGoals)
	c.Knowledge = slices.Clone(a.Knowledge)
	c.DialogueState = maps.Clone(a.DialogueState)
	return &c
}

// Combatant builds the d20 actor for this character from its stats.
// Actors without hit points cannot be built.
func (a *Actor) Combatant(id string) (*d20.Actor, error) {
	maxHP := a.Stats[StatHPMax]
	if maxHP <= 0 {
		return nil, fmt.Errorf("actor %s has no hit points", id)
	}
	ac, ok := a.Stats[StatAC]
	if !ok || ac <= 0 {
		ac = DefaultAC
	}

	attrs := make(map[string]int, len(a.Stats))
	for k, v := range a.Stats {
		switch k {
		case StatHPCurrent, StatHPMax, StatAC:
			continue
		}
		attrs[k] = v
	}

	combatant, err := d20.NewActor(id).
		WithHP(maxHP).
		WithAC(ac).
		WithAttributes(attrs).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build actor: %w", err)
	}

	if hp, ok := a.Stats[StatHPCurrent]; ok && hp > 0 && hp != maxHP {
		if err := combatant.SetHP(hp); err != nil {
			return nil, fmt.Errorf("failed to set HP: %w", err)
		}
	}
	return combatant, nil
}

// Modifier returns the actor's modifier for a stat or skill key.
// Unknown keys have a modifier of 0.
func (a *Actor) Modifier(id, key string) int {
	if combatant, err := a.Combatant(id); err == nil {
		if v, ok := combatant.Attribute(key); ok {
			return v
		}
		return 0
	}
	return a.Stats[key]
}

// HP returns current and maximum hit points.
func (a *Actor) HP() (current, max int) {
	return a.Stats[StatHPCurrent], a.Stats[StatHPMax]
}
