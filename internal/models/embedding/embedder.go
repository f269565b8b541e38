package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/fenwick-ai/ragengine/internal/models/utils/ollama"
	"github.com/fenwick-ai/ragengine/internal/types"
)

// Embedder defines the interface for text vectorization
type Embedder interface {
	// Embed converts text to vector
	Embed(ctx context.Context, text string) ([]float32, error)

	// BatchEmbed converts multiple texts to vectors in batch
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)

	// GetModelName returns the model name
	GetModelName() string

	// GetDimensions returns the vector dimensions
	GetDimensions() int

	// GetModelID returns the model ID
	GetModelID() string

	EmbedderPooler
}

type EmbedderPooler interface {
	BatchEmbedWithPool(ctx context.Context, model Embedder, texts []string) ([][]float32, error)
}

// EmbedderType represents the embedder type
type EmbedderType string

// Config represents the embedder configuration
type Config struct {
	Source               types.ModelSource `json:"source"`
	BaseURL              string            `json:"base_url"`
	ModelName            string            `json:"model_name"`
	APIKey               string            `json:"api_key"`
	TruncatePromptTokens int               `json:"truncate_prompt_tokens"`
	Dimensions           int               `json:"dimensions"`
	ModelID              string            `json:"model_id"`

	// Pooler bounds concurrent embedding calls; required.
	Pooler EmbedderPooler
	// OllamaService is required only when Source is local.
	OllamaService *ollama.OllamaService
}

// NewEmbedder creates an embedder based on the configuration. Pooler and
// (for local models) OllamaService come from the container's single
// instances, passed in explicitly rather than resolved from a runtime
// registry.
func NewEmbedder(config Config) (Embedder, error) {
	switch strings.ToLower(string(config.Source)) {
	case string(types.ModelSourceLocal):
		return NewOllamaEmbedder(config.BaseURL,
			config.ModelName, config.TruncatePromptTokens, config.Dimensions, config.ModelID,
			config.Pooler, config.OllamaService)
	case string(types.ModelSourceRemote):
		return NewOpenAIEmbedder(config.APIKey,
			config.BaseURL,
			config.ModelName,
			config.TruncatePromptTokens,
			config.Dimensions,
			config.ModelID,
			config.Pooler)
	default:
		return nil, fmt.Errorf("unsupported embedder source: %s", config.Source)
	}
}
