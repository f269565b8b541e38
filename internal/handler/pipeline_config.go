package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fenwick-ai/ragengine/internal/errors"
	"github.com/fenwick-ai/ragengine/internal/logger"
	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/fenwick-ai/ragengine/internal/types/interfaces"
)

// PipelineConfigHandler handles HTTP requests for pipeline configurations.
type PipelineConfigHandler struct {
	pipelines interfaces.PipelineConfigRepository
}

// NewPipelineConfigHandler creates a new pipeline config handler
func NewPipelineConfigHandler(pipelines interfaces.PipelineConfigRepository) *PipelineConfigHandler {
	return &PipelineConfigHandler{pipelines: pipelines}
}

// PipelineConfigRequest is the create/update body.
type PipelineConfigRequest struct {
	DisplayName      string                `json:"display_name" binding:"required"`
	CollectionID     string                `json:"collection_id"`
	LLMProviderID    string                `json:"llm_provider_id" binding:"required"`
	ChunkingStrategy types.ChunkingStrategy `json:"chunking_strategy"`
	EmbeddingModelID string                `json:"embedding_model_id"`
	Retriever        types.RetrieverKind   `json:"retriever"`
	ContextStrategy  types.ContextStrategy `json:"context_strategy"`
	EnableLogging    bool                  `json:"enable_logging"`
	MaxContextTokens int                   `json:"max_context_tokens"`
	TimeoutSeconds   int                   `json:"timeout_seconds"`
	Config           map[string]any        `json:"config"`
	IsDefault        bool                  `json:"is_default"`
}

func (r *PipelineConfigRequest) toConfig() *types.PipelineConfig {
	return &types.PipelineConfig{
		DisplayName:      r.DisplayName,
		CollectionID:     r.CollectionID,
		LLMProviderID:    r.LLMProviderID,
		ChunkingStrategy: r.ChunkingStrategy,
		EmbeddingModelID: r.EmbeddingModelID,
		Retriever:        r.Retriever,
		ContextStrategy:  r.ContextStrategy,
		EnableLogging:    r.EnableLogging,
		MaxContextTokens: r.MaxContextTokens,
		TimeoutSeconds:   r.TimeoutSeconds,
		Config:           r.Config,
		IsDefault:        r.IsDefault,
	}
}

// CreatePipeline handles POST /pipelines
func (h *PipelineConfigHandler) CreatePipeline(c *gin.Context) {
	ctx := c.Request.Context()

	var req PipelineConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error(ctx, "Failed to parse pipeline config", err)
		c.Error(errors.NewBadRequestError(err.Error()))
		return
	}

	p := req.toConfig()
	if err := p.Validate(); err != nil {
		c.Error(errors.NewBadRequestError(err.Error()))
		return
	}

	if p.IsDefault {
		if err := h.clearDefault(c, p.CollectionID, ""); err != nil {
			return
		}
	}

	created, err := h.pipelines.Create(ctx, p)
	if err != nil {
		logger.ErrorWithFields(ctx, err, nil)
		c.Error(errors.NewInternalServerError(err.Error()))
		return
	}

	logger.Infof(ctx, "Pipeline config created, ID: %s, default: %t", created.ID, created.IsDefault)
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    created,
	})
}

// GetPipeline handles GET /pipelines/:id
func (h *PipelineConfigHandler) GetPipeline(c *gin.Context) {
	ctx := c.Request.Context()

	id := c.Param("id")
	p, err := h.pipelines.Get(ctx, id)
	if err != nil {
		c.Error(errors.NewPipelineNotFoundError(id))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    p,
	})
}

// ListPipelines handles GET /pipelines
func (h *PipelineConfigHandler) ListPipelines(c *gin.Context) {
	ctx := c.Request.Context()

	pipelines, err := h.pipelines.List(ctx)
	if err != nil {
		logger.ErrorWithFields(ctx, err, nil)
		c.Error(errors.NewInternalServerError(err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    pipelines,
	})
}

// UpdatePipeline handles PUT /pipelines/:id
func (h *PipelineConfigHandler) UpdatePipeline(c *gin.Context) {
	ctx := c.Request.Context()

	id := c.Param("id")
	existing, err := h.pipelines.Get(ctx, id)
	if err != nil {
		c.Error(errors.NewPipelineNotFoundError(id))
		return
	}

	var req PipelineConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewBadRequestError(err.Error()))
		return
	}

	p := req.toConfig()
	p.ID = existing.ID
	if err := p.Validate(); err != nil {
		c.Error(errors.NewBadRequestError(err.Error()))
		return
	}

	if p.IsDefault && !existing.IsDefault {
		if err := h.clearDefault(c, p.CollectionID, p.ID); err != nil {
			return
		}
	}

	if err := h.pipelines.Update(ctx, p); err != nil {
		logger.ErrorWithFields(ctx, err, nil)
		c.Error(errors.NewInternalServerError(err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    p,
	})
}

// DeletePipeline handles DELETE /pipelines/:id
func (h *PipelineConfigHandler) DeletePipeline(c *gin.Context) {
	ctx := c.Request.Context()

	id := c.Param("id")
	if _, err := h.pipelines.Get(ctx, id); err != nil {
		c.Error(errors.NewPipelineNotFoundError(id))
		return
	}

	if err := h.pipelines.Delete(ctx, id); err != nil {
		logger.ErrorWithFields(ctx, err, nil)
		c.Error(errors.NewInternalServerError(err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Pipeline deleted",
	})
}

// clearDefault demotes the collection's current default pipeline, if any,
// so the at-most-one-default invariant holds. A collection-less
// pipeline can never be default; Validate rejects that before we get here.
func (h *PipelineConfigHandler) clearDefault(c *gin.Context, collectionID, keepID string) error {
	ctx := c.Request.Context()

	current, err := h.pipelines.GetDefaultForCollection(ctx, collectionID)
	if err != nil || current == nil || current.ID == keepID {
		return nil
	}
	current.IsDefault = false
	if err := h.pipelines.Update(ctx, current); err != nil {
		logger.ErrorWithFields(ctx, err, nil)
		c.Error(errors.NewInternalServerError(err.Error()))
		return err
	}
	return nil
}
