package dm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/dungeon-master/internal/services"
	"github.com/jwebster45206/dungeon-master/pkg/chat"
	"github.com/jwebster45206/dungeon-master/pkg/event"
	"github.com/jwebster45206/dungeon-master/pkg/textfilter"
)

func TestNarrative_Accessors(t *testing.T) {
	n := Narrative(`{"narrative": "The wolf growls.", "speaker": "wolf"}`)
	assert.Equal(t, "The wolf growls.", n.Text())
	assert.Equal(t, "wolf", n.Speaker())
	assert.False(t, n.IsError())

	failed := NarrationFailed()
	assert.True(t, failed.IsError())
	assert.Equal(t, DetailNarrationFailed, failed.Text())
	assert.Equal(t, "narrator", failed.Speaker())

	assert.Equal(t, "", Narrative(`{"other": 1}`).Text())
}

func TestNarrate(t *testing.T) {
	gs := havenwood(t)
	llm := services.NewMockLLMAPI(`{"narrative": "You slip into the shadows.", "speaker": "narrator"}`)
	n := NewNarrator(llm, testStore(t), 5, 4, nil, discardLogger())

	plan := []event.Event{{Type: event.TypePlayerAction, Subtype: "STEALTH", ActorID: "pc_Elara"}}
	results := []event.Result{{Event: plan[0], Roll: &event.Roll{ActorID: "pc_Elara", Subtype: "stealth", Roll: 12, Total: 12, DC: 15}}}
	history := []chat.ChatMessage{
		{Role: chat.ChatRolePlayer, Content: "one"},
		{Role: chat.ChatRoleSystem, Content: "two"},
		{Role: chat.ChatRoleSystem, Content: "three"},
		{Role: chat.ChatRoleSystem, Content: "four"},
		{Role: chat.ChatRolePlayer, Content: "five"},
	}

	got := n.Narrate(context.Background(), "I hide", plan, results, gs.SessionView(), history)
	assert.Equal(t, "You slip into the shadows.", got.Text())

	_, calls := llm.GetCalls()
	require.Len(t, calls, 1)
	msgs := calls[0].Messages
	// system, context, 4 history entries, user
	require.Len(t, msgs, 7)
	assert.Contains(t, msgs[1].Content, "## Validated Plan:")
	assert.Contains(t, msgs[1].Content, "## Execution Results:")
	assert.Contains(t, msgs[1].Content, `"dc": 15`)
	assert.Contains(t, msgs[1].Content, "## Session:")
	assert.Equal(t, "two", msgs[2].Content)
	assert.Equal(t, chat.ChatMessage{Role: chat.ChatRoleUser, Content: "five"}, msgs[5])
	assert.Equal(t, chat.ChatMessage{Role: chat.ChatRoleUser, Content: "I hide"}, msgs[6])
}

func TestNarrate_Retries(t *testing.T) {
	llm := services.NewMockLLMAPI()
	llm.AddError(errors.New("timeout"))
	llm.AddReply("Once upon a time")
	llm.AddReply(`["not", "an", "object"]`)
	llm.AddReply(`{"narrative": "Finally."}`)
	n := NewNarrator(llm, testStore(t), 5, 0, nil, nil)

	got := n.Narrate(context.Background(), "go", nil, nil, havenwood(t).SessionView(), nil)
	assert.Equal(t, "Finally.", got.Text())
	assert.Equal(t, 0, llm.Remaining())
}

func TestNarrate_GivesUpAfterAttempts(t *testing.T) {
	llm := services.NewMockLLMAPI()
	for i := 0; i < 6; i++ {
		llm.AddError(errors.New("down"))
	}
	n := NewNarrator(llm, testStore(t), 5, 0, nil, discardLogger())

	got := n.Narrate(context.Background(), "go", nil, nil, havenwood(t).SessionView(), nil)
	assert.True(t, got.IsError())
	assert.JSONEq(t, `{"type": "ERROR", "detail": "Failed to generate narration after retries."}`, got.String())
	assert.Equal(t, 1, llm.Remaining(), "exactly five attempts")
}

func TestCheckConsistency(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    *Verdict
		wantErr bool
	}{
		{"consistent", `{"consistent": true, "issues": []}`, &Verdict{Consistent: true, Issues: []string{}}, false},
		{"inconsistent", "```json\n{\"consistent\": false, \"issues\": [\"wolf is not here\"]}\n```", &Verdict{Issues: []string{"wolf is not here"}}, false},
		{"garbage", "sure", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := services.NewMockLLMAPI(tt.reply)
			n := NewNarrator(llm, testStore(t), 1, 0, nil, discardLogger())
			narrative := Narrative(`{"narrative": "A wolf appears."}`)

			got, err := n.CheckConsistency(context.Background(), narrative, havenwood(t).SessionView())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			_, calls := llm.GetCalls()
			assert.Equal(t, "A wolf appears.", calls[0].Messages[len(calls[0].Messages)-1].Content)
		})
	}
}

func TestNarrate_ContentFilter(t *testing.T) {
	gs := havenwood(t)
	llm := services.NewMockLLMAPI(`{"narrative": "Thorne snarls: \"Damn you, thief!\"", "speaker": "npc_GuardCaptainThorne"}`)
	n := NewNarrator(llm, testStore(t), 1, 0, nil, discardLogger())
	n.filter = textfilter.New()

	got := n.Narrate(context.Background(), "I grab the purse", nil, nil, gs.SessionView(), nil)
	assert.Equal(t, `Thorne snarls: "Curse you, thief!"`, got.Text())
	assert.Equal(t, "npc_GuardCaptainThorne", got.Speaker())

	unfiltered := NewNarrator(services.NewMockLLMAPI(`{"narrative": "Damn."}`), testStore(t), 1, 0, nil, discardLogger())
	assert.Equal(t, "Damn.", unfiltered.Narrate(context.Background(), "x", nil, nil, gs.SessionView(), nil).Text())
}
