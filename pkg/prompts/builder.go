package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jwebster45206/dungeon-master/pkg/chat"
)

// Builder constructs chat messages for a pipeline stage using a fluent interface.
type Builder struct {
	system       string
	sections     []section
	history      []chat.ChatMessage
	historyLimit int
	userMessage  string
	err          error
}

type section struct {
	title string
	body  string
}

// New creates a builder for a stage whose system prompt is system.
func New(system string) *Builder {
	return &Builder{
		system:       system,
		historyLimit: 20,
	}
}

// WithContext adds a titled block to the context message. Strings are used
// as is; anything else is encoded as indented JSON.
func (b *Builder) WithContext(title string, v any) *Builder {
	var body string
	switch val := v.(type) {
	case string:
		body = val
	case json.RawMessage:
		body = string(val)
	default:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			if b.err == nil {
				b.err = fmt.Errorf("error encoding %s: %w", title, err)
			}
			return b
		}
		body = string(data)
	}
	b.sections = append(b.sections, section{title: title, body: body})
	return b
}

// WithHistory sets the turn history and the window size applied to it.
func (b *Builder) WithHistory(history []chat.ChatMessage, limit int) *Builder {
	b.history = history
	b.historyLimit = limit
	return b
}

// WithUserMessage sets the final user message.
func (b *Builder) WithUserMessage(message string) *Builder {
	b.userMessage = message
	return b
}

// Build returns the message array: system prompt, context, windowed
// history, then the user message.
func (b *Builder) Build() ([]chat.ChatMessage, error) {
	if b.err != nil {
		return nil, b.err
	}
	if strings.TrimSpace(b.system) == "" {
		return nil, fmt.Errorf("system prompt is required")
	}

	messages := []chat.ChatMessage{{Role: chat.ChatRoleSystem, Content: b.system}}

	if len(b.sections) > 0 {
		var sb strings.Builder
		for i, s := range b.sections {
			if i > 0 {
				sb.WriteString("\n\n")
			}
			sb.WriteString("## ")
			sb.WriteString(s.title)
			sb.WriteString(":\n")
			sb.WriteString(s.body)
		}
		messages = append(messages, chat.ChatMessage{Role: chat.ChatRoleSystem, Content: sb.String()})
	}

	// The history keeps player entries under their own role; models only
	// know user, assistant and system.
	for _, m := range chat.Window(b.history, b.historyLimit) {
		if m.Role == chat.ChatRolePlayer {
			m.Role = chat.ChatRoleUser
		}
		messages = append(messages, m)
	}

	if b.userMessage != "" {
		messages = append(messages, chat.ChatMessage{Role: chat.ChatRoleUser, Content: b.userMessage})
	}
	return messages, nil
}
