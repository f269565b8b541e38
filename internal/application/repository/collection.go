package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/fenwick-ai/ragengine/internal/types/interfaces"
)

// collectionRepository implements CollectionRepository over GORM.
type collectionRepository struct {
	db *gorm.DB
}

// NewCollectionRepository creates a new collection repository.
func NewCollectionRepository(db *gorm.DB) interfaces.CollectionRepository {
	return &collectionRepository{db: db}
}

func (r *collectionRepository) Create(ctx context.Context, c *types.Collection) (*types.Collection, error) {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

func (r *collectionRepository) Get(ctx context.Context, id string) (*types.Collection, error) {
	var c types.Collection
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListAccessibleTo returns every collection a user may search: those they
// own, those explicitly authorizing them, and every non-private
// collection; Collection.CanAccess mirrors this at the single-row level.
func (r *collectionRepository) ListAccessibleTo(ctx context.Context, userID string) ([]*types.Collection, error) {
	var collections []*types.Collection
	if err := r.db.WithContext(ctx).Where(
		"is_private = ? OR owner_user_id = ? OR authorized_user_ids LIKE ?",
		false, userID, "%\""+userID+"\"%",
	).Order("created_at DESC").Find(&collections).Error; err != nil {
		return nil, err
	}
	return collections, nil
}

func (r *collectionRepository) Update(ctx context.Context, c *types.Collection) error {
	c.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *collectionRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&types.Collection{}, "id = ?", id).Error
}
