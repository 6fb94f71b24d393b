// Package console provides the terminal front-ends: a full-screen
// bubbletea UI and a plain line-based REPL.
package console

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jwebster45206/dungeon-master/internal/dm"
	"github.com/jwebster45206/dungeon-master/pkg/dice"
	"github.com/jwebster45206/dungeon-master/pkg/event"
	"github.com/jwebster45206/dungeon-master/pkg/state"
)

// Runner is the part of the turn engine the consoles drive.
type Runner interface {
	RunTurn(ctx context.Context, input string) (*dm.TurnResult, error)
	Session() state.Session
}

// EngineFactory starts a game for a scenario name.
type EngineFactory func(scenario string) (Runner, error)

// rollCommand evaluates "/roll <formula> [mode]".
func rollCommand(roller *dice.Roller, args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("usage: /roll <formula> [normal|advantage|disadvantage]")
	}
	mode := dice.ModeNormal
	if len(args) > 1 {
		m, err := dice.ParseMode(args[1])
		if err != nil {
			return "", err
		}
		mode = m
	}
	res, err := roller.Roll(args[0], mode)
	if err != nil {
		return "", err
	}
	return res.String(), nil
}

// sessionJSON renders the session as indented JSON.
func sessionJSON(s state.Session) string {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return string(data)
}

// sessionSummary is a short description of the session for side panels.
func sessionSummary(s state.Session) string {
	var b strings.Builder
	id := s.LocationID()
	if id == "" {
		return "No location set.\n"
	}
	loc := s.CurrentLocation[id]

	b.WriteString("Location:\n")
	fmt.Fprintf(&b, "%s (%s)\n\n", loc.Name, id)

	if len(loc.Connections) > 0 {
		b.WriteString("Exits:\n")
		exits := make([]string, 0, len(loc.Connections))
		for dir := range loc.Connections {
			exits = append(exits, dir)
		}
		sort.Strings(exits)
		for _, dir := range exits {
			fmt.Fprintf(&b, "• %s → %s\n", dir, loc.Connections[dir])
		}
		b.WriteString("\n")
	}

	if len(loc.State) > 0 {
		fmt.Fprintf(&b, "State:\n%s\n\n", strings.Join(loc.State, ", "))
	}

	if s.CurrentActors != nil {
		b.WriteString("Party:\n")
		for _, id := range sortedKeys(s.CurrentActors.PCs) {
			pc := s.CurrentActors.PCs[id]
			cur, max := pc.HP()
			fmt.Fprintf(&b, "• %s  %d/%d HP\n", pc.Name, cur, max)
		}
		if len(s.CurrentActors.NPCs) > 0 {
			b.WriteString("\nPresent:\n")
			for _, id := range sortedKeys(s.CurrentActors.NPCs) {
				npc := s.CurrentActors.NPCs[id]
				fmt.Fprintf(&b, "• %s (%s)\n", npc.Name, npc.DispositionToParty)
			}
		}
	}
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// resultLines formats execution results, one per line.
func resultLines(results []event.Result) []string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		lines = append(lines, r.Summary())
	}
	return lines
}
