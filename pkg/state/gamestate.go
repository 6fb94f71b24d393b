package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"

	"github.com/jwebster45206/dungeon-master/pkg/actor"
)

// ErrUnknownLocation is returned when a location id is not in the world.
var ErrUnknownLocation = errors.New("unknown location")

// UnknownLocationError names the missing location. Its text is shown to the
// narrator as the result of a failed move.
type UnknownLocationError struct {
	ID string
}

func (e *UnknownLocationError) Error() string {
	return fmt.Sprintf("Location key '%s' not found in world locations.", e.ID)
}

func (e *UnknownLocationError) Is(target error) bool {
	return target == ErrUnknownLocation
}

// PointOfInterest is a notable place inside a location.
type PointOfInterest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Location is a node of the world graph. Connections map an exit name
// (e.g. "north_path") to the id of the destination location.
type Location struct {
	Name             string                     `json:"name"`
	Type             string                     `json:"type"`
	Description      string                     `json:"description"`
	PointsOfInterest map[string]PointOfInterest `json:"pointsOfInterest,omitempty"`
	Connections      map[string]string          `json:"connections"`
	State            []string                   `json:"state"`
}

// Clone returns a deep copy of the location.
func (l Location) Clone() Location {
	c := l
	c.PointsOfInterest = maps.Clone(l.PointsOfInterest)
	c.Connections = maps.Clone(l.Connections)
	c.State = slices.Clone(l.State)
	return c
}

type World struct {
	Locations map[string]Location `json:"locations"`
}

// Roster groups actors by kind, keyed by actor id.
type Roster struct {
	PCs  map[string]*actor.Actor `json:"pcs"`
	NPCs map[string]*actor.Actor `json:"npcs"`
}

// NewRoster returns an empty roster.
func NewRoster() Roster {
	return Roster{
		PCs:  make(map[string]*actor.Actor),
		NPCs: make(map[string]*actor.Actor),
	}
}

// Clone returns a deep copy of the roster.
func (r Roster) Clone() Roster {
	c := NewRoster()
	for id, a := range r.PCs {
		c.PCs[id] = a.Clone()
	}
	for id, a := range r.NPCs {
		c.NPCs[id] = a.Clone()
	}
	return c
}

// Session is the denormalized view of what is currently visible to the
// party: the current location and the actors present there.
// CurrentLocation always holds exactly one entry.
type Session struct {
	CurrentLocation map[string]Location `json:"currentLocation"`
	CurrentActors   *Roster             `json:"currentActors,omitempty"`
}

// LocationID returns the id of the current location, or "" if unset.
func (s Session) LocationID() string {
	for id := range s.CurrentLocation {
		return id
	}
	return ""
}

// Clone returns a deep copy of the session.
func (s Session) Clone() Session {
	c := Session{CurrentLocation: make(map[string]Location, len(s.CurrentLocation))}
	for id, loc := range s.CurrentLocation {
		c.CurrentLocation[id] = loc.Clone()
	}
	if s.CurrentActors != nil {
		r := s.CurrentActors.Clone()
		c.CurrentActors = &r
	}
	return c
}

// GameState is the authoritative world tree for a game.
// It is not safe for concurrent use; the turn engine owns it.
type GameState struct {
	World   World   `json:"world"`
	Actors  Roster  `json:"actors"`
	Journal string  `json:"journal"`
	Session Session `json:"session"`
	History string  `json:"history"`
}

// Location returns a deep copy of the world location with the given id.
func (gs *GameState) Location(id string) (Location, bool) {
	loc, ok := gs.World.Locations[id]
	if !ok {
		return Location{}, false
	}
	return loc.Clone(), true
}

// LocationIDs returns the world's location ids in sorted order.
func (gs *GameState) LocationIDs() []string {
	ids := make([]string, 0, len(gs.World.Locations))
	for id := range gs.World.Locations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SetSessionLocation points the session at a world location.
// On error the session is left unchanged.
func (gs *GameState) SetSessionLocation(id string) error {
	loc, ok := gs.Location(id)
	if !ok {
		return &UnknownLocationError{ID: id}
	}
	gs.Session.CurrentLocation = map[string]Location{id: loc}
	return nil
}

// ActorsAtLocation returns deep copies of every PC and of the NPCs whose
// current location is id. PCs travel as a party and are always present.
func (gs *GameState) ActorsAtLocation(id string) Roster {
	r := NewRoster()
	for pcID, pc := range gs.Actors.PCs {
		r.PCs[pcID] = pc.Clone()
	}
	for npcID, npc := range gs.Actors.NPCs {
		if npc.CurrentLocation == id {
			r.NPCs[npcID] = npc.Clone()
		}
	}
	return r
}

// SetCurrentActors replaces the session roster with the actors at id.
func (gs *GameState) SetCurrentActors(id string) {
	r := gs.ActorsAtLocation(id)
	gs.Session.CurrentActors = &r
}

// MoveParty sets every PC's current location.
func (gs *GameState) MoveParty(id string) {
	for _, pc := range gs.Actors.PCs {
		pc.CurrentLocation = id
	}
}

// RefreshSession rebuilds the session from the current location id and
// returns a snapshot of it.
func (gs *GameState) RefreshSession() (Session, error) {
	id := gs.Session.LocationID()
	if id == "" {
		return Session{}, errors.New("no current location set in session")
	}
	if err := gs.SetSessionLocation(id); err != nil {
		return Session{}, err
	}
	gs.SetCurrentActors(id)
	return gs.Session.Clone(), nil
}

// PC returns the player character with the given id.
func (gs *GameState) PC(id string) (*actor.Actor, bool) {
	pc, ok := gs.Actors.PCs[id]
	return pc, ok
}

// ActorName returns the display name of a PC or NPC, falling back to id.
func (gs *GameState) ActorName(id string) string {
	if a, ok := gs.Actors.PCs[id]; ok && a.Name != "" {
		return a.Name
	}
	if a, ok := gs.Actors.NPCs[id]; ok && a.Name != "" {
		return a.Name
	}
	return id
}

// PCIDs returns the player character ids in sorted order.
func (gs *GameState) PCIDs() []string {
	ids := make([]string, 0, len(gs.Actors.PCs))
	for id := range gs.Actors.PCs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Snapshot returns a deep copy of the whole game state.
func (gs *GameState) Snapshot() *GameState {
	c := &GameState{
		World:   World{Locations: make(map[string]Location, len(gs.World.Locations))},
		Actors:  gs.Actors.Clone(),
		Journal: gs.Journal,
		Session: gs.Session.Clone(),
		History: gs.History,
	}
	for id, loc := range gs.World.Locations {
		c.World.Locations[id] = loc.Clone()
	}
	return c
}

// SessionView returns a read-only copy of the session.
func (gs *GameState) SessionView() Session {
	return gs.Session.Clone()
}

// Tree returns the game state as a generic JSON tree of maps, slices and
// scalars, the form used for identifier lookups.
func (gs *GameState) Tree() (any, error) {
	return toTree(gs)
}

// SessionTree returns the session as a generic JSON tree.
func (gs *GameState) SessionTree() (any, error) {
	return toTree(gs.Session)
}

func toTree(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal game state: %w", err)
	}
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game state: %w", err)
	}
	return tree, nil
}
