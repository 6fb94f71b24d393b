package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/dungeon-master/pkg/chat"
)

const (
	openAIBaseURL = "https://api.openai.com/v1"
)

// OpenAIService implements LLMService for any OpenAI-compatible
// chat/completions endpoint (OpenAI, Venice, vLLM, LM Studio).
type OpenAIService struct {
	baseURL    string
	apiKey     string
	opts       ModelOptions
	httpClient *http.Client
	logger     *slog.Logger
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

// OpenAIChatRequest represents the request structure for chat completions
type OpenAIChatRequest struct {
	Model          string                `json:"model"`
	Messages       []chat.ChatMessage    `json:"messages"`
	Temperature    float64               `json:"temperature"`
	Stream         bool                  `json:"stream"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

// OpenAIChatChoice represents a single choice in the response
type OpenAIChatChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
		Refusal string `json:"refusal,omitempty"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

// OpenAIChatResponse represents the response structure for chat completions
type OpenAIChatResponse struct {
	ID      string             `json:"id"`
	Model   string             `json:"model"`
	Choices []OpenAIChatChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// NewOpenAIService creates a client for an OpenAI-compatible API. An empty
// baseURL uses api.openai.com.
func NewOpenAIService(baseURL, apiKey string, opts ModelOptions, logger *slog.Logger) *OpenAIService {
	if baseURL == "" {
		baseURL = openAIBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAIService{
		baseURL:    baseURL,
		apiKey:     apiKey,
		opts:       opts,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// InitModel is a no-op; hosted APIs have no load step
func (c *OpenAIService) InitModel(ctx context.Context, modelName string) error {
	return nil
}

// Chat generates a chat response using the chat/completions endpoint
func (c *OpenAIService) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}

	ctx, cancel := withTimeout(ctx, c.opts.Timeout)
	defer cancel()

	request := OpenAIChatRequest{
		Model:       c.opts.Model,
		Messages:    messages,
		Temperature: c.opts.Temperature,
		Stream:      false,
	}
	if c.opts.JSON {
		request.ResponseFormat = &openAIResponseFormat{Type: "json_object"}
	}

	reqBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("Making chat completion request", "model", c.opts.Model, "message_count", len(messages))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var chatResp OpenAIChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if chatResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned from API")
	}

	choice := chatResp.Choices[0]
	if choice.Message.Refusal != "" {
		return nil, fmt.Errorf("model refused to respond: %s", choice.Message.Refusal)
	}

	return &chat.ChatResponse{
		Message: choice.Message.Content,
		Model:   chatResp.Model,
	}, nil
}
