package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fenwick-ai/ragengine/internal/errors"
	"github.com/fenwick-ai/ragengine/internal/logger"
	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/fenwick-ai/ragengine/internal/types/interfaces"
)

// CollectionHandler handles HTTP requests for collection management.
type CollectionHandler struct {
	service interfaces.CollectionService
}

// NewCollectionHandler creates a new collection handler
func NewCollectionHandler(service interfaces.CollectionService) *CollectionHandler {
	return &CollectionHandler{service: service}
}

// CreateCollectionRequest is the POST /collections body.
type CreateCollectionRequest struct {
	DisplayName       string   `json:"display_name" binding:"required"`
	IsPrivate         bool     `json:"is_private"`
	AuthorizedUserIDs []string `json:"authorized_user_ids"`
}

// CreateCollection handles POST /collections
func (h *CollectionHandler) CreateCollection(c *gin.Context) {
	ctx := c.Request.Context()

	var req CreateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error(ctx, "Failed to parse collection creation parameters", err)
		c.Error(errors.NewBadRequestError(err.Error()))
		return
	}

	userID := c.GetString(types.UserIDContextKey.String())
	if userID == "" {
		c.Error(errors.NewUnauthorizedError("Unauthorized"))
		return
	}

	collection, err := h.service.CreateCollection(ctx, &types.Collection{
		DisplayName:       req.DisplayName,
		IsPrivate:         req.IsPrivate,
		OwnerUserID:       userID,
		AuthorizedUserIDs: req.AuthorizedUserIDs,
	})
	if err != nil {
		logger.ErrorWithFields(ctx, err, nil)
		c.Error(err)
		return
	}

	logger.Infof(ctx, "Collection created successfully, ID: %s", collection.ID)
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    collection,
	})
}

// GetCollection handles GET /collections/:id
func (h *CollectionHandler) GetCollection(c *gin.Context) {
	ctx := c.Request.Context()

	id := c.Param("id")
	if id == "" {
		c.Error(errors.NewBadRequestError("Collection ID cannot be empty"))
		return
	}

	collection, err := h.service.GetCollection(ctx, id)
	if err != nil {
		c.Error(err)
		return
	}

	// A private collection reads as absent to anyone outside its access set.
	userID := c.GetString(types.UserIDContextKey.String())
	if !collection.CanAccess(userID) {
		c.Error(errors.NewCollectionNotFoundError(id))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    collection,
	})
}

// ListCollections handles GET /collections
func (h *CollectionHandler) ListCollections(c *gin.Context) {
	ctx := c.Request.Context()

	userID := c.GetString(types.UserIDContextKey.String())
	if userID == "" {
		c.Error(errors.NewUnauthorizedError("Unauthorized"))
		return
	}

	collections, err := h.service.ListCollections(ctx, userID)
	if err != nil {
		logger.ErrorWithFields(ctx, err, nil)
		c.Error(errors.NewInternalServerError(err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    collections,
	})
}

// UpdateCollectionRequest is the PUT /collections/:id body.
type UpdateCollectionRequest struct {
	DisplayName       string   `json:"display_name"`
	IsPrivate         bool     `json:"is_private"`
	AuthorizedUserIDs []string `json:"authorized_user_ids"`
}

// UpdateCollection handles PUT /collections/:id
func (h *CollectionHandler) UpdateCollection(c *gin.Context) {
	ctx := c.Request.Context()

	id := c.Param("id")
	var req UpdateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewBadRequestError(err.Error()))
		return
	}

	collection, err := h.service.GetCollection(ctx, id)
	if err != nil {
		c.Error(err)
		return
	}

	userID := c.GetString(types.UserIDContextKey.String())
	if collection.OwnerUserID != userID {
		c.Error(errors.NewCollectionNotFoundError(id))
		return
	}

	if req.DisplayName != "" {
		collection.DisplayName = req.DisplayName
	}
	collection.IsPrivate = req.IsPrivate
	if req.AuthorizedUserIDs != nil {
		collection.AuthorizedUserIDs = req.AuthorizedUserIDs
	}

	if err := h.service.UpdateCollection(ctx, collection); err != nil {
		logger.ErrorWithFields(ctx, err, nil)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    collection,
	})
}

// DeleteCollection handles DELETE /collections/:id
func (h *CollectionHandler) DeleteCollection(c *gin.Context) {
	ctx := c.Request.Context()

	id := c.Param("id")
	collection, err := h.service.GetCollection(ctx, id)
	if err != nil {
		c.Error(err)
		return
	}

	userID := c.GetString(types.UserIDContextKey.String())
	if collection.OwnerUserID != userID {
		c.Error(errors.NewCollectionNotFoundError(id))
		return
	}

	if err := h.service.DeleteCollection(ctx, id); err != nil {
		logger.ErrorWithFields(ctx, err, nil)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Collection deleted",
	})
}
