package chat

import (
	"fmt"

	"github.com/google/uuid"
)

const (
	ChatRoleUser   = "user"      // Player text sent to a stage
	ChatRoleAgent  = "assistant" // Model reply
	ChatRoleSystem = "system"    // Stage instructions and pipeline notes
	ChatRolePlayer = "player"    // Player entry in the turn history
)

// ChatMessage represents a single chat message in the conversation.
// This shape is defined by Ollama's API and is used both for LLM requests
// and for the turn history kept by the engine.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse is the reply of an LLM backend.
type ChatResponse struct {
	Message string `json:"message,omitempty"`
	Model   string `json:"model,omitempty"`
}

// TurnRequest is a player action submitted to the dungeon master api.
type TurnRequest struct {
	SessionID uuid.UUID `json:"session_id"`
	ActorID   string    `json:"actor_id,omitempty"`
	Message   string    `json:"message"`
}

func (tr *TurnRequest) Validate() error {
	if tr.Message == "" {
		return fmt.Errorf("message cannot be empty")
	}
	return nil
}

// Window returns at most the last limit messages.
func Window(history []ChatMessage, limit int) []ChatMessage {
	if limit <= 0 || len(history) <= limit {
		return history
	}
	return history[len(history)-limit:]
}
