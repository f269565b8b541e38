package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/fenwick-ai/ragengine/internal/types/interfaces"
)

// pipelineConfigRepository implements PipelineConfigRepository over GORM.
type pipelineConfigRepository struct {
	db *gorm.DB
}

// NewPipelineConfigRepository creates a new pipeline config repository.
func NewPipelineConfigRepository(db *gorm.DB) interfaces.PipelineConfigRepository {
	return &pipelineConfigRepository{db: db}
}

func (r *pipelineConfigRepository) Create(ctx context.Context, p *types.PipelineConfig) (*types.PipelineConfig, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, r.db.Transaction(func(tx *gorm.DB) error {
		if p.IsDefault {
			if err := clearDefaultPipeline(ctx, tx, p.CollectionID); err != nil {
				return err
			}
		}
		return tx.WithContext(ctx).Create(p).Error
	})
}

func (r *pipelineConfigRepository) Get(ctx context.Context, id string) (*types.PipelineConfig, error) {
	var p types.PipelineConfig
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetDefaultForCollection returns the pipeline flagged IsDefault for a
// collection, used when a SearchInput omits PipelineID.
func (r *pipelineConfigRepository) GetDefaultForCollection(
	ctx context.Context, collectionID string,
) (*types.PipelineConfig, error) {
	var p types.PipelineConfig
	if err := r.db.WithContext(ctx).Where(
		"collection_id = ? AND is_default = ?", collectionID, true,
	).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *pipelineConfigRepository) List(ctx context.Context) ([]*types.PipelineConfig, error) {
	var configs []*types.PipelineConfig
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

// Update saves p, clearing any other default pipeline bound to the same
// collection first when p.IsDefault is set — the same "clear before set"
// shape, enforcing that a default pipeline always names a
// collection (PipelineConfig.Validate rejects a collection-less default
// before the transaction ever runs).
func (r *pipelineConfigRepository) Update(ctx context.Context, p *types.PipelineConfig) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.UpdatedAt = time.Now()
	return r.db.Transaction(func(tx *gorm.DB) error {
		if p.IsDefault {
			if err := clearDefaultPipelineExcept(ctx, tx, p.CollectionID, p.ID); err != nil {
				return err
			}
		}
		return tx.WithContext(ctx).Save(p).Error
	})
}

func (r *pipelineConfigRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&types.PipelineConfig{}, "id = ?", id).Error
}

func clearDefaultPipeline(ctx context.Context, tx *gorm.DB, collectionID string) error {
	return tx.WithContext(ctx).Model(&types.PipelineConfig{}).
		Where("collection_id = ? AND is_default = ?", collectionID, true).
		Update("is_default", false).Error
}

func clearDefaultPipelineExcept(ctx context.Context, tx *gorm.DB, collectionID, exceptID string) error {
	return tx.WithContext(ctx).Model(&types.PipelineConfig{}).
		Where("collection_id = ? AND is_default = ? AND id <> ?", collectionID, true, exceptID).
		Update("is_default", false).Error
}
