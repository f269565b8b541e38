package interfaces

import (
	"context"
	"time"

	"github.com/fenwick-ai/ragengine/internal/types"
)

// ConversationMessageService defines the message service interface.
type ConversationMessageService interface {
	CreateMessage(ctx context.Context, message *types.ConversationMessage) (*types.ConversationMessage, error)
	GetMessage(ctx context.Context, sessionID string, id string) (*types.ConversationMessage, error)
	GetMessagesBySession(ctx context.Context, sessionID string, page int, pageSize int) ([]*types.ConversationMessage, error)
	// GetRecentMessagesBySession returns the most recent messages, used to
	// build the history window for rewrite/generation.
	GetRecentMessagesBySession(ctx context.Context, sessionID string, limit int) ([]*types.ConversationMessage, error)
	GetMessagesBySessionBeforeTime(
		ctx context.Context, sessionID string, beforeTime time.Time, limit int,
	) ([]*types.ConversationMessage, error)
	UpdateMessage(ctx context.Context, message *types.ConversationMessage) error
	DeleteMessage(ctx context.Context, sessionID string, id string) error
}

// ConversationMessageRepository defines the message repository interface.
type ConversationMessageRepository interface {
	ConversationMessageService
	GetFirstMessageOfSession(ctx context.Context, sessionID string) (*types.ConversationMessage, error)
}
