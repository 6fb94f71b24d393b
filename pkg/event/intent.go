package event

import (
	"encoding/json"
	"strings"
)

// Intent is the model's structured reading of player input: any JSON
// object or array. It is passed on to event interpretation verbatim.
type Intent json.RawMessage

// ErrorIntent builds the sentinel intent returned when interpretation fails.
func ErrorIntent(detail string) Intent {
	data, _ := json.Marshal(map[string]string{"type": TypeError, "detail": detail})
	return Intent(data)
}

// IsError reports whether the intent is an error sentinel.
func (i Intent) IsError() bool {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(i, &probe); err != nil {
		return false
	}
	return strings.EqualFold(probe.Type, TypeError)
}

// String returns the intent's JSON text.
func (i Intent) String() string {
	if len(i) == 0 {
		return "null"
	}
	return string(i)
}

func (i Intent) MarshalJSON() ([]byte, error) {
	if len(i) == 0 {
		return []byte("null"), nil
	}
	return i, nil
}

func (i *Intent) UnmarshalJSON(data []byte) error {
	*i = append((*i)[:0], data...)
	return nil
}

// PlayerInput is one player's action in a multi-player turn.
type PlayerInput struct {
	ActorID string `json:"actor_id"`
	Input   string `json:"input"`
}
