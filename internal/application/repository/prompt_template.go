package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/fenwick-ai/ragengine/internal/types/interfaces"
)

// promptTemplateRepository implements PromptTemplateRepository over GORM.
type promptTemplateRepository struct {
	db *gorm.DB
}

// NewPromptTemplateRepository creates a new prompt template repository.
func NewPromptTemplateRepository(db *gorm.DB) interfaces.PromptTemplateRepository {
	return &promptTemplateRepository{db: db}
}

func (r *promptTemplateRepository) Create(ctx context.Context, t *types.PromptTemplate) (*types.PromptTemplate, error) {
	return t, r.db.Transaction(func(tx *gorm.DB) error {
		if t.IsDefault {
			if err := clearDefaultTemplate(ctx, tx, t.Kind); err != nil {
				return err
			}
		}
		return tx.WithContext(ctx).Create(t).Error
	})
}

func (r *promptTemplateRepository) Get(ctx context.Context, id string) (*types.PromptTemplate, error) {
	var t types.PromptTemplate
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// GetDefault returns the default template of a given kind, used when a
// PipelineConfig doesn't name an explicit template id.
func (r *promptTemplateRepository) GetDefault(
	ctx context.Context, kind types.PromptTemplateKind,
) (*types.PromptTemplate, error) {
	var t types.PromptTemplate
	if err := r.db.WithContext(ctx).Where(
		"kind = ? AND is_default = ?", kind, true,
	).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *promptTemplateRepository) List(ctx context.Context, kind types.PromptTemplateKind) ([]*types.PromptTemplate, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	var templates []*types.PromptTemplate
	if err := q.Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

func (r *promptTemplateRepository) Update(ctx context.Context, t *types.PromptTemplate) error {
	t.UpdatedAt = time.Now()
	return r.db.Transaction(func(tx *gorm.DB) error {
		if t.IsDefault {
			if err := clearDefaultTemplateExcept(ctx, tx, t.Kind, t.ID); err != nil {
				return err
			}
		}
		return tx.WithContext(ctx).Save(t).Error
	})
}

func (r *promptTemplateRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&types.PromptTemplate{}, "id = ?", id).Error
}

func clearDefaultTemplate(ctx context.Context, tx *gorm.DB, kind types.PromptTemplateKind) error {
	return tx.WithContext(ctx).Model(&types.PromptTemplate{}).
		Where("kind = ? AND is_default = ?", kind, true).
		Update("is_default", false).Error
}

func clearDefaultTemplateExcept(ctx context.Context, tx *gorm.DB, kind types.PromptTemplateKind, exceptID string) error {
	return tx.WithContext(ctx).Model(&types.PromptTemplate{}).
		Where("kind = ? AND is_default = ? AND id <> ?", kind, true, exceptID).
		Update("is_default", false).Error
}
