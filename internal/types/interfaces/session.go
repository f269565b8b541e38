package interfaces

import (
	"context"

	"github.com/fenwick-ai/ragengine/internal/types"
)

// ConversationService defines the conversation orchestrator service
// interface.
type ConversationService interface {
	// CreateSession creates a conversation session.
	CreateSession(ctx context.Context, session *types.ConversationSession) (*types.ConversationSession, error)
	// GetSession gets a session by id.
	GetSession(ctx context.Context, id string) (*types.ConversationSession, error)
	// GetSessionsByUser gets all sessions owned by a user.
	GetSessionsByUser(ctx context.Context, userID string) ([]*types.ConversationSession, error)
	// GetPagedSessionsByUser gets paged sessions owned by a user.
	GetPagedSessionsByUser(ctx context.Context, userID string, page *types.Pagination) (*types.PageResult, error)
	// UpdateSession updates a session.
	UpdateSession(ctx context.Context, session *types.ConversationSession) error
	// DeleteSession deletes a session.
	DeleteSession(ctx context.Context, id string) error
	// GenerateTitle generates a short title for a session from its history.
	GenerateTitle(ctx context.Context, sessionID string, messages []types.ConversationMessage) (string, error)
	// Search runs one conversational search turn,
	// returning the completed turn plus a channel of streamed frames.
	Search(ctx context.Context, sessionID string, input types.SearchInput,
	) (*types.SearchOutput, <-chan types.StreamResponse, error)
}

// ConversationRepository defines the conversation session repository interface.
type ConversationRepository interface {
	Create(ctx context.Context, session *types.ConversationSession) (*types.ConversationSession, error)
	Get(ctx context.Context, id string) (*types.ConversationSession, error)
	GetByUserID(ctx context.Context, userID string) ([]*types.ConversationSession, error)
	GetPagedByUserID(ctx context.Context, userID string, page *types.Pagination) ([]*types.ConversationSession, int64, error)
	Update(ctx context.Context, session *types.ConversationSession) error
	Delete(ctx context.Context, id string) error
}
