package campaign

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownLocation is returned when a path references a location that has
// not been added to the map.
var ErrUnknownLocation = errors.New("both locations must be added to the map before adding a path")

// MapLocation is a named place on a campaign world map.
type MapLocation struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Path is an undirected connection between two locations.
type Path struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Distance int    `json:"distance"`
}

// WorldMap is an undirected graph of campaign locations stored as an
// adjacency list. Insertion order is preserved for display.
type WorldMap struct {
	order     []string
	locations map[string]MapLocation
	adjacency map[string][]string
	paths     []Path
}

// NewWorldMap returns an empty map.
func NewWorldMap() *WorldMap {
	return &WorldMap{
		locations: make(map[string]MapLocation),
		adjacency: make(map[string][]string),
	}
}

// AddLocation adds or replaces a location.
func (m *WorldMap) AddLocation(name, description string) {
	if _, ok := m.locations[name]; !ok {
		m.order = append(m.order, name)
		m.adjacency[name] = nil
	}
	m.locations[name] = MapLocation{Name: name, Description: description}
}

// AddPath connects two existing locations in both directions.
func (m *WorldMap) AddPath(from, to string, distance int) error {
	if _, ok := m.locations[from]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLocation, from)
	}
	if _, ok := m.locations[to]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLocation, to)
	}
	if distance <= 0 {
		distance = 1
	}
	m.paths = append(m.paths, Path{From: from, To: to, Distance: distance})
	m.adjacency[from] = append(m.adjacency[from], to)
	m.adjacency[to] = append(m.adjacency[to], from)
	return nil
}

// Location returns the named location.
func (m *WorldMap) Location(name string) (MapLocation, bool) {
	loc, ok := m.locations[name]
	return loc, ok
}

// Locations returns every location in insertion order.
func (m *WorldMap) Locations() []MapLocation {
	out := make([]MapLocation, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.locations[name])
	}
	return out
}

// Neighbors returns the locations directly connected to name.
func (m *WorldMap) Neighbors(name string) []string {
	return append([]string(nil), m.adjacency[name]...)
}

// Paths returns every path in insertion order.
func (m *WorldMap) Paths() []Path {
	return append([]Path(nil), m.paths...)
}

// String renders the adjacency list, one location per line.
func (m *WorldMap) String() string {
	var sb strings.Builder
	for _, name := range m.order {
		sb.WriteString(name)
		sb.WriteString(": [")
		sb.WriteString(strings.Join(m.adjacency[name], ", "))
		sb.WriteString("]\n")
	}
	return sb.String()
}

// Chain builds a map whose locations are linked one after another in the
// order given.
func Chain(locations []MapLocation) (*WorldMap, error) {
	m := NewWorldMap()
	for _, loc := range locations {
		m.AddLocation(loc.Name, loc.Description)
	}
	for i := 0; i+1 < len(locations); i++ {
		if err := m.AddPath(locations[i].Name, locations[i+1].Name, 1); err != nil {
			return nil, err
		}
	}
	return m, nil
}
