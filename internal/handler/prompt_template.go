package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fenwick-ai/ragengine/internal/errors"
	"github.com/fenwick-ai/ragengine/internal/logger"
	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/fenwick-ai/ragengine/internal/types/interfaces"
)

// PromptTemplateHandler handles HTTP requests for prompt templates.
type PromptTemplateHandler struct {
	templates interfaces.PromptTemplateRepository
}

// NewPromptTemplateHandler creates a new prompt template handler
func NewPromptTemplateHandler(templates interfaces.PromptTemplateRepository) *PromptTemplateHandler {
	return &PromptTemplateHandler{templates: templates}
}

// PromptTemplateRequest is the create/update body.
type PromptTemplateRequest struct {
	Kind           types.PromptTemplateKind `json:"kind" binding:"required"`
	Format         string                   `json:"format" binding:"required"`
	InputVariables []string                 `json:"input_variables" binding:"required"`
	IsDefault      bool                     `json:"is_default"`
}

// CreateTemplate handles POST /templates. A format referencing an
// undeclared variable is rejected here, at build time.
func (h *PromptTemplateHandler) CreateTemplate(c *gin.Context) {
	ctx := c.Request.Context()

	var req PromptTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error(ctx, "Failed to parse template parameters", err)
		c.Error(errors.NewBadRequestError(err.Error()))
		return
	}

	userID := c.GetString(types.UserIDContextKey.String())
	if userID == "" {
		c.Error(errors.NewUnauthorizedError("Unauthorized"))
		return
	}

	template, err := types.NewPromptTemplate("", userID, req.Kind, req.Format, req.InputVariables)
	if err != nil {
		c.Error(errors.NewBadRequestError(err.Error()))
		return
	}
	template.IsDefault = req.IsDefault

	created, err := h.templates.Create(ctx, template)
	if err != nil {
		logger.ErrorWithFields(ctx, err, nil)
		c.Error(errors.NewInternalServerError(err.Error()))
		return
	}

	logger.Infof(ctx, "Prompt template created, ID: %s, kind: %s", created.ID, created.Kind)
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    created,
	})
}

// GetTemplate handles GET /templates/:id
func (h *PromptTemplateHandler) GetTemplate(c *gin.Context) {
	ctx := c.Request.Context()

	id := c.Param("id")
	template, err := h.templates.Get(ctx, id)
	if err != nil {
		c.Error(errors.NewTemplateNotFoundError(id))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    template,
	})
}

// ListTemplates handles GET /templates?kind=rag
func (h *PromptTemplateHandler) ListTemplates(c *gin.Context) {
	ctx := c.Request.Context()

	kind := types.PromptTemplateKind(c.Query("kind"))
	templates, err := h.templates.List(ctx, kind)
	if err != nil {
		logger.ErrorWithFields(ctx, err, nil)
		c.Error(errors.NewInternalServerError(err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    templates,
	})
}

// UpdateTemplate handles PUT /templates/:id
func (h *PromptTemplateHandler) UpdateTemplate(c *gin.Context) {
	ctx := c.Request.Context()

	id := c.Param("id")
	existing, err := h.templates.Get(ctx, id)
	if err != nil {
		c.Error(errors.NewTemplateNotFoundError(id))
		return
	}

	var req PromptTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewBadRequestError(err.Error()))
		return
	}

	template, err := types.NewPromptTemplate(existing.ID, existing.OwnerUserID, req.Kind, req.Format, req.InputVariables)
	if err != nil {
		c.Error(errors.NewBadRequestError(err.Error()))
		return
	}
	template.IsDefault = req.IsDefault

	if err := h.templates.Update(ctx, template); err != nil {
		logger.ErrorWithFields(ctx, err, nil)
		c.Error(errors.NewInternalServerError(err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    template,
	})
}

// DeleteTemplate handles DELETE /templates/:id
func (h *PromptTemplateHandler) DeleteTemplate(c *gin.Context) {
	ctx := c.Request.Context()

	id := c.Param("id")
	if _, err := h.templates.Get(ctx, id); err != nil {
		c.Error(errors.NewTemplateNotFoundError(id))
		return
	}

	if err := h.templates.Delete(ctx, id); err != nil {
		logger.ErrorWithFields(ctx, err, nil)
		c.Error(errors.NewInternalServerError(err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Template deleted",
	})
}
