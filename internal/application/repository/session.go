package repository

import (
	"context"
	"time"

	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/fenwick-ai/ragengine/internal/types/interfaces"
	"gorm.io/gorm"
)

// sessionRepository implements ConversationRepository over GORM.
type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository creates a new conversation session repository.
func NewSessionRepository(db *gorm.DB) interfaces.ConversationRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, session *types.ConversationSession) (*types.ConversationSession, error) {
	session.CreatedAt = time.Now()
	session.UpdatedAt = time.Now()
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

func (r *sessionRepository) Get(ctx context.Context, id string) (*types.ConversationSession, error) {
	var session types.ConversationSession
	if err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) GetByUserID(ctx context.Context, userID string) ([]*types.ConversationSession, error) {
	var sessions []*types.ConversationSession
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *sessionRepository) GetPagedByUserID(
	ctx context.Context, userID string, page *types.Pagination,
) ([]*types.ConversationSession, int64, error) {
	var sessions []*types.ConversationSession
	var total int64

	if err := r.db.WithContext(ctx).Model(&types.ConversationSession{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.Limit()).
		Find(&sessions).Error; err != nil {
		return nil, 0, err
	}

	return sessions, total, nil
}

func (r *sessionRepository) Update(ctx context.Context, session *types.ConversationSession) error {
	session.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(session).Error
}

func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&types.ConversationSession{}, "id = ?", id).Error
}
