package interfaces

import (
	"context"

	"github.com/fenwick-ai/ragengine/internal/models/chat"
	"github.com/fenwick-ai/ragengine/internal/models/embedding"
	"github.com/fenwick-ai/ragengine/internal/models/rerank"
	"github.com/fenwick-ai/ragengine/internal/types"
)

// ModelService defines the model registry service interface.
type ModelService interface {
	CreateModel(ctx context.Context, model *types.Model) error
	GetModelByID(ctx context.Context, id string) (*types.Model, error)
	ListModels(ctx context.Context) ([]*types.Model, error)
	UpdateModel(ctx context.Context, model *types.Model) error
	DeleteModel(ctx context.Context, id string) error
	// GetEmbeddingModel resolves a registered model id to a live Embedder.
	GetEmbeddingModel(ctx context.Context, modelID string) (embedding.Embedder, error)
	// GetRerankModel resolves a registered model id to a live Reranker.
	GetRerankModel(ctx context.Context, modelID string) (rerank.Reranker, error)
	// GetChatModel resolves a registered model id to a live Chat client.
	GetChatModel(ctx context.Context, modelID string) (chat.Chat, error)
}

// ModelRepository defines the model persistence interface.
type ModelRepository interface {
	Create(ctx context.Context, model *types.Model) error
	GetByID(ctx context.Context, id string) (*types.Model, error)
	List(ctx context.Context, modelType types.ModelType, source types.ModelSource) ([]*types.Model, error)
	Update(ctx context.Context, model *types.Model) error
	Delete(ctx context.Context, id string) error
}
