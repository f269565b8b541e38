package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/fenwick-ai/ragengine/internal/types/interfaces"
)

// documentRepository implements the DocumentStore capability and the
// DocumentMetadataLookup the search service reads document display data
// from, over a single GORM-backed File table.
type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new document metadata repository.
func NewDocumentRepository(db *gorm.DB) interfaces.DocumentMetadataLookup {
	return &documentRepository{db: db}
}

func (r *documentRepository) GetDisplayName(ctx context.Context, collectionID, documentID string) (string, error) {
	var f types.File
	if err := r.db.WithContext(ctx).Where(
		"collection_id = ? AND id = ?", collectionID, documentID,
	).First(&f).Error; err != nil {
		return "", err
	}
	return f.DisplayName, nil
}

// BatchGetDisplayNames resolves display names for many documents at
// once. A document id with no matching
// row is simply absent from the returned map — the caller (internal/search)
// treats that as a Configuration error, not something this lookup should
// paper over.
func (r *documentRepository) BatchGetDisplayNames(
	ctx context.Context, collectionID string, documentIDs []string,
) (map[string]string, error) {
	if len(documentIDs) == 0 {
		return map[string]string{}, nil
	}
	var files []types.File
	if err := r.db.WithContext(ctx).Where(
		"collection_id = ? AND id IN ?", collectionID, documentIDs,
	).Find(&files).Error; err != nil {
		return nil, err
	}
	names := make(map[string]string, len(files))
	for _, f := range files {
		names[f.ID] = f.DisplayName
	}
	return names, nil
}
