package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/fenwick-ai/ragengine/internal/types/interfaces"
)

// modelRepository implements the model registry persistence.
type modelRepository struct {
	db *gorm.DB
}

// NewModelRepository creates a new model repository.
func NewModelRepository(db *gorm.DB) interfaces.ModelRepository {
	return &modelRepository{db: db}
}

func (r *modelRepository) Create(ctx context.Context, m *types.Model) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *modelRepository) GetByID(ctx context.Context, id string) (*types.Model, error) {
	var m types.Model
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *modelRepository) List(
	ctx context.Context, modelType types.ModelType, source types.ModelSource,
) ([]*types.Model, error) {
	query := r.db.WithContext(ctx)
	if modelType != "" {
		query = query.Where("type = ?", modelType)
	}
	if source != "" {
		query = query.Where("source = ?", source)
	}
	var models []*types.Model
	if err := query.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	return models, nil
}

func (r *modelRepository) Update(ctx context.Context, m *types.Model) error {
	m.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Model(&types.Model{}).Where("id = ?", m.ID).Updates(m).Error
}

func (r *modelRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&types.Model{}, "id = ?", id).Error
}
