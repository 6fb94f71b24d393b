package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwebster45206/dungeon-master/internal/config"
	"github.com/jwebster45206/dungeon-master/pkg/chat"
)

// LLMService defines the interface for interacting with the LLM API
type LLMService interface {
	// InitModel makes sure the model can serve requests
	InitModel(ctx context.Context, modelName string) error

	// Chat generates a chat response using the LLM
	Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error)
}

// ModelOptions describes how one pipeline stage talks to its model.
type ModelOptions struct {
	Model       string
	JSON        bool // ask the backend to constrain output to JSON
	Temperature float64
	Timeout     time.Duration // per call; zero means no limit beyond ctx
}

// NewLLMService builds the backend selected by cfg for one stage.
func NewLLMService(cfg config.LLMConfig, opts ModelOptions, logger *slog.Logger) (LLMService, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		return NewOllamaService(cfg.BaseURL, opts, logger), nil
	case config.ProviderOpenAI:
		return NewOpenAIService(cfg.BaseURL, cfg.APIKey, opts, logger), nil
	case config.ProviderAnthropic:
		return NewAnthropicService(cfg.BaseURL, cfg.APIKey, opts, logger), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.Provider)
	}
}

// withTimeout bounds a single call.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
