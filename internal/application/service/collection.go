package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fenwick-ai/ragengine/internal/application/service/retriever"
	apperrors "github.com/fenwick-ai/ragengine/internal/errors"
	"github.com/fenwick-ai/ragengine/internal/logger"
	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/fenwick-ai/ragengine/internal/types/interfaces"
)

// collectionService manages Collection lifecycle and access metadata. The
// engine never ingests documents into a collection itself; this service only
// maintains the records the search pipeline resolves against.
type collectionService struct {
	repo      interfaces.CollectionRepository
	pipelines interfaces.PipelineConfigRepository
	models    interfaces.ModelService
	engine    *retriever.CompositeRetrieveEngine
}

// NewCollectionService creates a new collection service
func NewCollectionService(
	repo interfaces.CollectionRepository,
	pipelines interfaces.PipelineConfigRepository,
	models interfaces.ModelService,
	engine *retriever.CompositeRetrieveEngine,
) interfaces.CollectionService {
	return &collectionService{repo: repo, pipelines: pipelines, models: models, engine: engine}
}

// CreateCollection creates a collection record. The vector-store handle is
// generated here and immutable for the collection's life: callers never
// choose it.
func (s *collectionService) CreateCollection(ctx context.Context, c *types.Collection) (*types.Collection, error) {
	if strings.TrimSpace(c.DisplayName) == "" {
		return nil, apperrors.NewValidationError("display_name", "must not be empty")
	}
	if c.OwnerUserID == "" {
		return nil, apperrors.NewValidationError("owner_user_id", "must not be empty")
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.VectorDBName = fmt.Sprintf("collection_%s", strings.ReplaceAll(uuid.New().String(), "-", ""))
	c.Status = types.CollectionStatusCreated

	logger.Infof(ctx, "Creating collection, name: %s, owner: %s, vector handle: %s",
		c.DisplayName, c.OwnerUserID, c.VectorDBName)
	return s.repo.Create(ctx, c)
}

func (s *collectionService) GetCollection(ctx context.Context, id string) (*types.Collection, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewCollectionNotFoundError(id)
		}
		return nil, err
	}
	return c, nil
}

func (s *collectionService) ListCollections(ctx context.Context, userID string) ([]*types.Collection, error) {
	return s.repo.ListAccessibleTo(ctx, userID)
}

// UpdateCollection updates mutable fields only: the vector-store handle is
// never rewritten once generated.
func (s *collectionService) UpdateCollection(ctx context.Context, c *types.Collection) error {
	existing, err := s.GetCollection(ctx, c.ID)
	if err != nil {
		return err
	}
	c.VectorDBName = existing.VectorDBName
	return s.repo.Update(ctx, c)
}

// DeleteCollection removes the collection record and cascades into the
// vector store, dropping every embedding indexed under the collection id.
func (s *collectionService) DeleteCollection(ctx context.Context, id string) error {
	if _, err := s.GetCollection(ctx, id); err != nil {
		return err
	}

	dimension := s.resolveDimension(ctx, id)
	if s.engine != nil {
		if err := s.engine.DeleteByCollectionIDList(ctx, []string{id}, dimension); err != nil {
			return apperrors.NewStorageError(apperrors.ErrStorageUnavailable,
				fmt.Sprintf("failed to delete vector data for collection %s: %v", id, err))
		}
	}

	logger.Infof(ctx, "Deleting collection, ID: %s", id)
	return s.repo.Delete(ctx, id)
}

// resolveDimension walks collection -> default pipeline -> embedding model
// to find the vector dimension the collection was indexed with. 0 falls back
// to the store's dimension column match.
func (s *collectionService) resolveDimension(ctx context.Context, collectionID string) int {
	p, err := s.pipelines.GetDefaultForCollection(ctx, collectionID)
	if err != nil || p == nil || p.EmbeddingModelID == "" {
		return 0
	}
	embedder, err := s.models.GetEmbeddingModel(ctx, p.EmbeddingModelID)
	if err != nil {
		logger.Warnf(ctx, "resolve embedding dimension for collection %s: %v", collectionID, err)
		return 0
	}
	return embedder.GetDimensions()
}
