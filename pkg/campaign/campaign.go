package campaign

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// NPC is a non-player character proposed by the campaign generator.
type NPC struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Motivation  string `json:"motivation,omitempty"`
	Personality string `json:"personality,omitempty"`
	Secret      string `json:"secret,omitempty"`
}

// Campaign is a one-shot campaign outline.
type Campaign struct {
	MainQuestHook string        `json:"main_quest_hook"`
	KeyLocations  []MapLocation `json:"key_locations"`
	NPCs          []NPC         `json:"npcs"`
	MajorConflict string        `json:"major_conflict"`

	WorldMap *WorldMap `json:"-"`
}

// ParseCampaign decodes a campaign outline and builds its world map by
// chaining the key locations in order.
func ParseCampaign(data []byte) (*Campaign, error) {
	var c Campaign
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse campaign: %w", err)
	}
	if c.MainQuestHook == "" {
		return nil, errors.New("campaign is missing main_quest_hook")
	}
	wm, err := Chain(c.KeyLocations)
	if err != nil {
		return nil, fmt.Errorf("failed to build world map: %w", err)
	}
	c.WorldMap = wm
	return &c, nil
}

func (c *Campaign) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Main Quest Hook: %s\n", c.MainQuestHook)
	sb.WriteString("Key Locations:\n")
	for _, loc := range c.KeyLocations {
		fmt.Fprintf(&sb, "  - %s: %s\n", loc.Name, loc.Description)
	}
	sb.WriteString("NPCs:\n")
	for _, npc := range c.NPCs {
		fmt.Fprintf(&sb, "  - %s: %s\n", npc.Name, npc.Description)
	}
	fmt.Fprintf(&sb, "Major Conflict: %s\n", c.MajorConflict)
	return sb.String()
}

// Consequences describes what follows a checkpoint.
type Consequences struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
}

// Checkpoint is a milestone the party must pass within an act.
type Checkpoint struct {
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Consequences Consequences `json:"consequences"`
}

// Act is one of the three acts of a full campaign plot.
type Act struct {
	Summary     string       `json:"summary"`
	Checkpoints []Checkpoint `json:"checkpoints"`
}

// Plot is a full three-act campaign.
type Plot struct {
	MainQuest    string        `json:"main_quest"`
	KeyLocations []MapLocation `json:"key_locations"`
	ActOne       Act           `json:"act_one"`
	ActTwo       Act           `json:"act_two"`
	ActThree     Act           `json:"act_three"`
}

// Acts returns the acts in order.
func (p *Plot) Acts() []Act {
	return []Act{p.ActOne, p.ActTwo, p.ActThree}
}

// ParsePlot decodes a plot, accepting either {"plot": {...}} or the bare
// plot object.
func ParsePlot(data []byte) (*Plot, error) {
	var wrapped struct {
		Plot *Plot `json:"plot"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to parse plot: %w", err)
	}
	if wrapped.Plot != nil {
		return wrapped.Plot, nil
	}

	var p Plot
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse plot: %w", err)
	}
	if p.MainQuest == "" {
		return nil, errors.New("plot is missing main_quest")
	}
	return &p, nil
}
