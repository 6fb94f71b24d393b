package state

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/jwebster45206/dungeon-master/pkg/actor"
)

// DefaultScenario is the scenario a new game starts in.
const DefaultScenario = "havenwood"

//go:embed scenarios/*.json
var scenarioFS embed.FS

// ListScenarios returns the names of the embedded scenarios.
func ListScenarios() ([]string, error) {
	entries, err := fs.ReadDir(scenarioFS, "scenarios")
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".json" {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// LoadScenario loads a game state by embedded scenario name, or from a
// JSON file when name ends in ".json". The session is rebuilt from its
// current location so that it mirrors the world.
func LoadScenario(name string) (*GameState, error) {
	if name == "" {
		name = DefaultScenario
	}

	var (
		data []byte
		err  error
	)
	if strings.HasSuffix(name, ".json") {
		data, err = os.ReadFile(name)
	} else {
		data, err = scenarioFS.ReadFile("scenarios/" + name + ".json")
	}
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("scenario not found: %s", name)
		}
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}

	return Parse(data)
}

// Parse decodes a game state and starts its session.
func Parse(data []byte) (*GameState, error) {
	gs, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if _, err := gs.RefreshSession(); err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	return gs, nil
}

// Decode unmarshals a game state without touching its session.
// Unknown fields are rejected.
func Decode(data []byte) (*GameState, error) {
	var gs GameState
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&gs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scenario: %w", err)
	}
	if gs.World.Locations == nil {
		gs.World.Locations = make(map[string]Location)
	}
	if gs.Actors.PCs == nil {
		gs.Actors.PCs = make(map[string]*actor.Actor)
	}
	if gs.Actors.NPCs == nil {
		gs.Actors.NPCs = make(map[string]*actor.Actor)
	}
	return &gs, nil
}

// Validate reports structural problems: dangling connections, actors in
// unknown locations and a session that does not mirror the world.
func (gs *GameState) Validate() []error {
	var errs []error

	if len(gs.Actors.PCs) == 0 {
		errs = append(errs, errors.New("scenario has no player characters"))
	}

	for _, id := range gs.LocationIDs() {
		loc := gs.World.Locations[id]
		if loc.Name == "" {
			errs = append(errs, fmt.Errorf("location %s: name is required", id))
		}
		exits := make([]string, 0, len(loc.Connections))
		for exit := range loc.Connections {
			exits = append(exits, exit)
		}
		sort.Strings(exits)
		for _, exit := range exits {
			dest := loc.Connections[exit]
			if _, ok := gs.World.Locations[dest]; !ok {
				errs = append(errs, fmt.Errorf("location %s: connection %q points to unknown location %s", id, exit, dest))
			}
		}
	}

	checkActors := func(kind string, actors map[string]*actor.Actor) {
		ids := make([]string, 0, len(actors))
		for id := range actors {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			a := actors[id]
			if a == nil || a.CurrentLocation == "" {
				continue
			}
			if _, ok := gs.World.Locations[a.CurrentLocation]; !ok {
				errs = append(errs, fmt.Errorf("%s %s: current location %s is unknown", kind, id, a.CurrentLocation))
			}
		}
	}
	checkActors("pc", gs.Actors.PCs)
	checkActors("npc", gs.Actors.NPCs)

	if n := len(gs.Session.CurrentLocation); n != 1 {
		errs = append(errs, fmt.Errorf("session must hold exactly one current location, has %d", n))
	} else if _, ok := gs.World.Locations[gs.Session.LocationID()]; !ok {
		errs = append(errs, fmt.Errorf("session location %s is unknown", gs.Session.LocationID()))
	}

	return errs
}
