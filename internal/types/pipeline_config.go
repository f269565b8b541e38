package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChunkingStrategy names the ingestion-time chunking scheme a pipeline
// assumes its Collection was built with (retrieval-relevant metadata only;
// the engine never chunks documents itself).
type ChunkingStrategy string

const (
	ChunkingFixedSize  ChunkingStrategy = "fixed_size"
	ChunkingSemantic   ChunkingStrategy = "semantic"
	ChunkingHierarchical ChunkingStrategy = "hierarchical"
)

// RetrieverKind selects the retrieval strategy the search service
// dispatches to.
type RetrieverKind string

const (
	RetrieverVector  RetrieverKind = "vector"
	RetrieverKeyword RetrieverKind = "keyword"
	RetrieverHybrid  RetrieverKind = "hybrid"
)

// ContextStrategy selects how retrieved chunks are assembled into the
// generation prompt's context window.
type ContextStrategy string

const (
	ContextConcatenate   ContextStrategy = "concatenate"
	ContextPriorityOrder ContextStrategy = "priority_order"
	ContextSummarize     ContextStrategy = "summarize"
)

const (
	MinContextTokens = 128
	MaxContextTokens = 8192
	MinTimeoutSeconds = 1
	MaxTimeoutSeconds = 300
)

// PipelineConfig is a named, reusable configuration for the search
// pipeline. A pipeline not bound to a Collection is a template; binding a
// CollectionID makes it directly invocable by id from SearchInput.
type PipelineConfig struct {
	ID          string `json:"id" gorm:"type:varchar(36);primaryKey"`
	DisplayName string `json:"display_name"`
	CollectionID string `json:"collection_id,omitempty"`

	LLMProviderID    string           `json:"llm_provider_id"`
	ChunkingStrategy ChunkingStrategy `json:"chunking_strategy"`
	EmbeddingModelID string           `json:"embedding_model_id"`
	Retriever        RetrieverKind    `json:"retriever"`
	ContextStrategy  ContextStrategy  `json:"context_strategy"`

	EnableLogging    bool `json:"enable_logging"`
	MaxContextTokens int  `json:"max_context_tokens"`
	TimeoutSeconds   int  `json:"timeout_seconds"`

	Config map[string]any `json:"config" gorm:"type:json"`

	IsDefault bool `json:"is_default"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

func (p *PipelineConfig) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// Validate checks the numeric invariants: MaxContextTokens and
// TimeoutSeconds must fall within their fixed ranges, and a default pipeline
// must be bound to a Collection.
func (p *PipelineConfig) Validate() error {
	if p.MaxContextTokens < MinContextTokens || p.MaxContextTokens > MaxContextTokens {
		return &ValidationError{Field: "max_context_tokens", Reason: "out of range [128, 8192]"}
	}
	if p.TimeoutSeconds < MinTimeoutSeconds || p.TimeoutSeconds > MaxTimeoutSeconds {
		return &ValidationError{Field: "timeout_seconds", Reason: "out of range [1, 300]"}
	}
	if p.IsDefault && p.CollectionID == "" {
		return &ValidationError{Field: "collection_id", Reason: "a default pipeline must be bound to a collection"}
	}
	return nil
}

// ValidationError reports a single field-level validation failure. It is a
// plain value type here so internal/types has no dependency on
// internal/errors; callers map it to the Validation error kind.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}
