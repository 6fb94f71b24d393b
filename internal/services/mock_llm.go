package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/jwebster45206/dungeon-master/pkg/chat"
)

// MockLLMAPI is a mock implementation of LLMService for testing.
// Replies are served in order; ChatFunc, when set, takes precedence.
type MockLLMAPI struct {
	InitModelFunc func(ctx context.Context, modelName string) error
	ChatFunc      func(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error)

	// Track calls for testing
	InitModelCalls []string
	ChatCalls      []ChatCall

	replies []MockReply

	mu sync.Mutex // protects all fields above
}

// ChatCall records the messages of one Chat call.
type ChatCall struct {
	Messages []chat.ChatMessage
}

// MockReply is one scripted Chat outcome.
type MockReply struct {
	Message string
	Err     error
}

// NewMockLLMAPI creates a new mock LLM service that answers with replies in
// order.
func NewMockLLMAPI(replies ...string) *MockLLMAPI {
	m := &MockLLMAPI{}
	for _, r := range replies {
		m.replies = append(m.replies, MockReply{Message: r})
	}
	return m
}

// InitModel mocks model initialization
func (m *MockLLMAPI) InitModel(ctx context.Context, modelName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.InitModelCalls = append(m.InitModelCalls, modelName)

	if m.InitModelFunc != nil {
		return m.InitModelFunc(ctx, modelName)
	}
	return nil
}

// Chat returns the next scripted reply. With no replies left it fails, so
// tests notice unexpected calls.
func (m *MockLLMAPI) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ChatCalls = append(m.ChatCalls, ChatCall{Messages: messages})

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, messages)
	}
	if len(m.replies) == 0 {
		return nil, fmt.Errorf("mock llm: no reply scripted for call %d", len(m.ChatCalls))
	}

	next := m.replies[0]
	m.replies = m.replies[1:]
	if next.Err != nil {
		return nil, next.Err
	}
	return &chat.ChatResponse{Message: next.Message, Model: "mock"}, nil
}

// AddReply queues a successful reply.
func (m *MockLLMAPI) AddReply(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, MockReply{Message: message})
}

// AddError queues a failed call.
func (m *MockLLMAPI) AddError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, MockReply{Err: err})
}

// SetInitModelError sets up the mock to return an error on InitModel
func (m *MockLLMAPI) SetInitModelError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InitModelFunc = func(ctx context.Context, modelName string) error {
		return err
	}
}

// SetChatError makes every Chat call fail with err
func (m *MockLLMAPI) SetChatError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatFunc = func(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
		return nil, err
	}
}

// Remaining returns how many scripted replies have not been used.
func (m *MockLLMAPI) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.replies)
}

// GetCalls returns a copy of the call tracking data in a thread-safe way
func (m *MockLLMAPI) GetCalls() ([]string, []ChatCall) {
	m.mu.Lock()
	defer m.mu.Unlock()

	initCalls := make([]string, len(m.InitModelCalls))
	copy(initCalls, m.InitModelCalls)

	chatCalls := make([]ChatCall, len(m.ChatCalls))
	copy(chatCalls, m.ChatCalls)

	return initCalls, chatCalls
}

// Reset clears all call tracking and scripted replies
func (m *MockLLMAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InitModelCalls = nil
	m.ChatCalls = nil
	m.replies = nil
}
