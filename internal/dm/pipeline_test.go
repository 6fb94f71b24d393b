package dm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/dungeon-master/internal/config"
	"github.com/jwebster45206/dungeon-master/internal/services"
	"github.com/jwebster45206/dungeon-master/pkg/event"
)

func newTestPipeline(t *testing.T, llm *services.MockLLMAPI, maxAttempts int) *Pipeline {
	t.Helper()
	in := NewInterpreter(nil, llm, testStore(t), nil, discardLogger())
	return NewPipeline(in, NewValidator(config.ScopeTree), maxAttempts, nil, discardLogger())
}

func TestProcessPlayerInput_FirstAttempt(t *testing.T) {
	llm := services.NewMockLLMAPI(`[
		{"type": "PLAYER_ACTION", "subtype": "MOVEMENT", "actor_id": "pc_Elara", "parameters": {"target_id": "loc_Gloomwood"}},
		{"type": "PLAYER_ACTION", "subtype": "PERCEPTION", "actor_id": "pc_Elara"}
	]`)
	p := newTestPipeline(t, llm, 5)

	events, err := p.ProcessPlayerInput(context.Background(), havenwood(t), event.Intent(`{}`))
	require.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, 0, llm.Remaining())
}

func TestProcessPlayerInput_RetriesWithInvalidEvents(t *testing.T) {
	llm := services.NewMockLLMAPI(
		`{"type": "PLAYER_ACTION", "subtype": "MOVEMENT", "parameters": {"target_id": "loc_CastleMoon"}}`,
		`{"type": "PLAYER_ACTION", "subtype": "MOVEMENT", "parameters": {"target_id": "loc_Gloomwood"}}`,
	)
	p := newTestPipeline(t, llm, 5)

	events, err := p.ProcessPlayerInput(context.Background(), havenwood(t), event.Intent(`{"intent":"go"}`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "loc_Gloomwood", events[0].Parameters.TargetID)

	_, calls := llm.GetCalls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[0].Messages[1].Content, "## Invalid Events:\n[]")
	assert.Contains(t, calls[1].Messages[1].Content, "Invalid target_id: loc_CastleMoon")
}

func TestProcessPlayerInput_Exhausted(t *testing.T) {
	bad := `{"type": "PLAYER_ACTION", "subtype": "INTERACTION", "parameters": {"target_id": "npc_Ghost"}}`
	llm := services.NewMockLLMAPI(bad, bad, bad)
	p := newTestPipeline(t, llm, 3)

	_, err := p.ProcessPlayerInput(context.Background(), havenwood(t), event.Intent(`{}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidationExhausted))

	var exhausted *ValidationExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 3, exhausted.Attempts)
	require.Len(t, exhausted.Invalid, 1)
	assert.Equal(t, "Invalid target_id: npc_Ghost", exhausted.Invalid[0].ValidationError)
	assert.True(t, strings.Contains(err.Error(), "3 attempts"))
}

func TestProcessPlayerInput_InterpretFailureIsValid(t *testing.T) {
	llm := services.NewMockLLMAPI()
	llm.AddError(errors.New("model offline"))
	p := newTestPipeline(t, llm, 5)

	events, err := p.ProcessPlayerInput(context.Background(), havenwood(t), event.Intent(`{}`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, event.KindError, events[0].Kind())
	assert.Equal(t, DetailInterpretFailed, events[0].Detail)
}

func TestProcessPlayerInput_Cancelled(t *testing.T) {
	llm := services.NewMockLLMAPI(`[]`)
	p := newTestPipeline(t, llm, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.ProcessPlayerInput(ctx, havenwood(t), event.Intent(`{}`))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, llm.Remaining())
}
