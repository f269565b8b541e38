package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fenwick-ai/ragengine/internal/errors"
	"github.com/fenwick-ai/ragengine/internal/logger"
	"github.com/fenwick-ai/ragengine/internal/search"
	"github.com/fenwick-ai/ragengine/internal/types"
)

// SearchHandler exposes the search pipeline over HTTP.
type SearchHandler struct {
	service *search.Service
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(service *search.Service) *SearchHandler {
	return &SearchHandler{service: service}
}

// SearchRequest is the POST /search body. The user id always comes from the
// bearer token, never from the body.
type SearchRequest struct {
	Question     string                 `json:"question" binding:"required"`
	CollectionID string                 `json:"collection_id" binding:"required"`
	PipelineID   string                 `json:"pipeline_id"`
	Metadata     *types.RequestMetadata `json:"config_metadata"`
}

// Search handles POST /search
func (h *SearchHandler) Search(c *gin.Context) {
	ctx := c.Request.Context()

	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error(ctx, "Failed to parse search request", err)
		c.Error(errors.NewBadRequestError(err.Error()))
		return
	}

	userID := c.GetString(types.UserIDContextKey.String())
	if userID == "" {
		c.Error(errors.NewUnauthorizedError("Unauthorized"))
		return
	}

	output, err := h.service.Search(ctx, types.SearchInput{
		Question:     req.Question,
		CollectionID: req.CollectionID,
		PipelineID:   req.PipelineID,
		UserID:       userID,
		Metadata:     req.Metadata,
	})
	if err != nil {
		logger.Errorf(ctx, "Search failed, collection: %s: %v", req.CollectionID, err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    output,
	})
}
