package campaign

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorldMap_AddPath(t *testing.T) {
	m := NewWorldMap()
	m.AddLocation("Havenwood", "A town in the ruins")
	m.AddLocation("Gloomwood", "A dark forest")

	require.NoError(t, m.AddPath("Havenwood", "Gloomwood", 0))
	assert.Equal(t, []string{"Gloomwood"}, m.Neighbors("Havenwood"))
	assert.Equal(t, []string{"Havenwood"}, m.Neighbors("Gloomwood"))
	assert.Equal(t, []Path{{From: "Havenwood", To: "Gloomwood", Distance: 1}}, m.Paths())

	err := m.AddPath("Havenwood", "Atlantis", 2)
	assert.True(t, errors.Is(err, ErrUnknownLocation))
	assert.Len(t, m.Paths(), 1)
}

func TestWorldMap_String(t *testing.T) {
	m, err := Chain([]MapLocation{{Name: "A"}, {Name: "B"}, {Name: "C"}})
	require.NoError(t, err)
	assert.Equal(t, "A: [B]\nB: [A, C]\nC: [B]\n", m.String())
	assert.Len(t, m.Locations(), 3)
}

func TestParseCampaign(t *testing.T) {
	data := []byte(`{
		"main_quest_hook": "A map fragment glows at midnight.",
		"key_locations": [
			{"name": "Havenwood", "description": "Town"},
			{"name": "Gloomwood", "description": "Forest"},
			{"name": "Sunken Vault", "description": "Ruin"}
		],
		"npcs": [{"name": "Boric", "description": "Barkeep", "motivation": "Protect the town", "personality": "Gruff", "secret": "Former smuggler"}],
		"major_conflict": "The vault keeps the wolves at bay."
	}`)

	c, err := ParseCampaign(data)
	require.NoError(t, err)
	assert.Equal(t, "A map fragment glows at midnight.", c.MainQuestHook)
	require.Len(t, c.NPCs, 1)
	assert.Equal(t, "Former smuggler", c.NPCs[0].Secret)
	require.NotNil(t, c.WorldMap)
	assert.Equal(t, []string{"Havenwood", "Sunken Vault"}, c.WorldMap.Neighbors("Gloomwood"))
	assert.Contains(t, c.String(), "Major Conflict: The vault keeps the wolves at bay.")
}

func TestParseCampaign_Invalid(t *testing.T) {
	_, err := ParseCampaign([]byte(`{"npcs": []}`))
	assert.Error(t, err)

	_, err = ParseCampaign([]byte(`not json`))
	assert.Error(t, err)
}

func TestParsePlot(t *testing.T) {
	wrapped := []byte(`{"plot": {
		"main_quest": "Stop the eclipse cult",
		"key_locations": [{"name": "Observatory", "description": "High tower"}],
		"act_one": {"summary": "Gathering", "checkpoints": [
			{"name": "Meet the sage", "description": "At the tower", "consequences": {"success": "Clue", "failure": "Ambush"}}
		]},
		"act_two": {"summary": "Descent", "checkpoints": []},
		"act_three": {"summary": "Eclipse", "checkpoints": []}
	}}`)

	p, err := ParsePlot(wrapped)
	require.NoError(t, err)
	assert.Equal(t, "Stop the eclipse cult", p.MainQuest)
	acts := p.Acts()
	require.Len(t, acts, 3)
	assert.Equal(t, "Ambush", acts[0].Checkpoints[0].Consequences.Failure)

	bare, err := ParsePlot([]byte(`{"main_quest": "Find the heir", "act_one": {"summary": "s"}}`))
	require.NoError(t, err)
	assert.Equal(t, "Find the heir", bare.MainQuest)

	_, err = ParsePlot([]byte(`{"summary": "no quest"}`))
	assert.Error(t, err)
}
