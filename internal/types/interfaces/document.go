package interfaces

import (
	"context"

	"github.com/fenwick-ai/ragengine/internal/types"
)

// DocumentMetadataLookup is the read-only document metadata capability the
// search service uses to build DocumentMetadata entries (display name, page
// numbers) for a SearchOutput without ever touching blob storage.
type DocumentMetadataLookup interface {
	// GetDisplayName returns the human-facing name of a document.
	GetDisplayName(ctx context.Context, collectionID, documentID string) (string, error)
	// BatchGetDisplayNames resolves display names for many documents at once.
	BatchGetDisplayNames(ctx context.Context, collectionID string, documentIDs []string) (map[string]string, error)
}

// CollectionService defines Collection management operations.
type CollectionService interface {
	CreateCollection(ctx context.Context, c *types.Collection) (*types.Collection, error)
	GetCollection(ctx context.Context, id string) (*types.Collection, error)
	ListCollections(ctx context.Context, userID string) ([]*types.Collection, error)
	UpdateCollection(ctx context.Context, c *types.Collection) error
	DeleteCollection(ctx context.Context, id string) error
}

// CollectionRepository defines Collection persistence operations.
type CollectionRepository interface {
	Create(ctx context.Context, c *types.Collection) (*types.Collection, error)
	Get(ctx context.Context, id string) (*types.Collection, error)
	ListAccessibleTo(ctx context.Context, userID string) ([]*types.Collection, error)
	Update(ctx context.Context, c *types.Collection) error
	Delete(ctx context.Context, id string) error
}
