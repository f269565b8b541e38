package interfaces

import (
	"context"

	"github.com/fenwick-ai/ragengine/internal/types"
)

// PipelineConfigRepository persists named, reusable pipeline configurations.
type PipelineConfigRepository interface {
	Create(ctx context.Context, p *types.PipelineConfig) (*types.PipelineConfig, error)
	Get(ctx context.Context, id string) (*types.PipelineConfig, error)
	// GetDefaultForCollection returns the pipeline flagged IsDefault for a
	// collection, used when a SearchInput omits PipelineID.
	GetDefaultForCollection(ctx context.Context, collectionID string) (*types.PipelineConfig, error)
	List(ctx context.Context) ([]*types.PipelineConfig, error)
	Update(ctx context.Context, p *types.PipelineConfig) error
	Delete(ctx context.Context, id string) error
}

// PromptTemplateRepository persists RAG and evaluation prompt templates.
type PromptTemplateRepository interface {
	Create(ctx context.Context, t *types.PromptTemplate) (*types.PromptTemplate, error)
	Get(ctx context.Context, id string) (*types.PromptTemplate, error)
	// GetDefault returns the default template of a given kind, used when a
	// PipelineConfig doesn't name an explicit template id.
	GetDefault(ctx context.Context, kind types.PromptTemplateKind) (*types.PromptTemplate, error)
	List(ctx context.Context, kind types.PromptTemplateKind) ([]*types.PromptTemplate, error)
	Update(ctx context.Context, t *types.PromptTemplate) error
	Delete(ctx context.Context, id string) error
}
