package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/fenwick-ai/ragengine/internal/models/utils/ollama"
	"github.com/fenwick-ai/ragengine/internal/types"
)

// ChatOptions carries per-call generation parameters.
type ChatOptions struct {
	Temperature         float64 `json:"temperature"`
	TopP                float64 `json:"top_p"`
	Seed                int     `json:"seed"`
	MaxTokens           int     `json:"max_tokens"`
	MaxCompletionTokens int     `json:"max_completion_tokens"`
	FrequencyPenalty    float64 `json:"frequency_penalty"`
	PresencePenalty     float64 `json:"presence_penalty"`
	Thinking            *bool   `json:"thinking"`
}

// Message is a single chat turn.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// Chat is the capability contract for a chat-completion model.
type Chat interface {
	// Chat performs a non-streaming completion.
	Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*types.ChatResponse, error)

	// ChatStream performs a streaming completion.
	ChatStream(ctx context.Context, messages []Message, opts *ChatOptions) (<-chan types.StreamResponse, error)

	// GetModelName returns the underlying model name.
	GetModelName() string

	// GetModelID returns the registered model id.
	GetModelID() string
}

type ChatConfig struct {
	Source    types.ModelSource
	BaseURL   string
	ModelName string
	APIKey    string
	ModelID   string

	// OllamaService is required only when Source is local.
	OllamaService *ollama.OllamaService
}

// NewChat creates a chat instance for the given source. OllamaService comes
// from the container's single instance, passed in explicitly rather than
// resolved from a runtime registry.
func NewChat(config *ChatConfig) (Chat, error) {
	switch strings.ToLower(string(config.Source)) {
	case string(types.ModelSourceLocal):
		return NewOllamaChat(config, config.OllamaService)
	case string(types.ModelSourceRemote):
		return NewRemoteAPIChat(config)
	default:
		return nil, fmt.Errorf("unsupported chat model source: %s", config.Source)
	}
}
