package repository

import (
	"context"
	"slices"
	"time"

	"gorm.io/gorm"

	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/fenwick-ai/ragengine/internal/types/interfaces"
)

// messageRepository implements ConversationMessageRepository over GORM.
type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new conversation message repository.
func NewMessageRepository(db *gorm.DB) interfaces.ConversationMessageRepository {
	return &messageRepository{
		db: db,
	}
}

func (r *messageRepository) CreateMessage(
	ctx context.Context, message *types.ConversationMessage,
) (*types.ConversationMessage, error) {
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return nil, err
	}
	return message, nil
}

func (r *messageRepository) GetMessage(
	ctx context.Context, sessionID string, messageID string,
) (*types.ConversationMessage, error) {
	var message types.ConversationMessage
	if err := r.db.WithContext(ctx).Where(
		"id = ? AND session_id = ?", messageID, sessionID,
	).First(&message).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

// GetMessagesBySession retrieves all messages for a session with pagination.
func (r *messageRepository) GetMessagesBySession(
	ctx context.Context, sessionID string, page int, pageSize int,
) ([]*types.ConversationMessage, error) {
	var messages []*types.ConversationMessage
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("created_at ASC").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

// GetRecentMessagesBySession retrieves the most recent messages for a
// session in chronological order, used to build the conversation context
// window.
func (r *messageRepository) GetRecentMessagesBySession(
	ctx context.Context, sessionID string, limit int,
) ([]*types.ConversationMessage, error) {
	var messages []*types.ConversationMessage
	if err := r.db.WithContext(ctx).Where(
		"session_id = ?", sessionID,
	).Order("created_at DESC").Limit(limit).Find(&messages).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	slices.SortFunc(messages, func(a, b *types.ConversationMessage) int {
		cmp := a.CreatedAt.Compare(b.CreatedAt)
		if cmp == 0 {
			if a.Role == types.RoleUser { // User messages come first
				return -1
			}
			return 1 // Assistant messages come last
		}
		return cmp
	})
	return messages, nil
}

func (r *messageRepository) GetMessagesBySessionBeforeTime(
	ctx context.Context, sessionID string, beforeTime time.Time, limit int,
) ([]*types.ConversationMessage, error) {
	var messages []*types.ConversationMessage
	if err := r.db.WithContext(ctx).Where(
		"session_id = ? AND created_at < ?", sessionID, beforeTime,
	).Order("created_at DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, err
	}
	slices.SortFunc(messages, func(a, b *types.ConversationMessage) int {
		cmp := a.CreatedAt.Compare(b.CreatedAt)
		if cmp == 0 {
			if a.Role == types.RoleUser {
				return -1
			}
			return 1
		}
		return cmp
	})
	return messages, nil
}

func (r *messageRepository) UpdateMessage(ctx context.Context, message *types.ConversationMessage) error {
	return r.db.WithContext(ctx).Model(&types.ConversationMessage{}).Where(
		"id = ? AND session_id = ?", message.ID, message.SessionID,
	).Updates(message).Error
}

func (r *messageRepository) DeleteMessage(ctx context.Context, sessionID string, messageID string) error {
	return r.db.WithContext(ctx).Where(
		"id = ? AND session_id = ?", messageID, sessionID,
	).Delete(&types.ConversationMessage{}).Error
}

// GetFirstMessageOfSession retrieves the first user message of a session,
// used by GenerateTitle when no message is supplied directly.
func (r *messageRepository) GetFirstMessageOfSession(ctx context.Context, sessionID string) (*types.ConversationMessage, error) {
	var message types.ConversationMessage
	if err := r.db.WithContext(ctx).Where(
		"session_id = ? and role = ?", sessionID, types.RoleUser,
	).Order("created_at ASC").First(&message).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}
