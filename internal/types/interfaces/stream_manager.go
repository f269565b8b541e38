package interfaces

import (
	"context"
	"time"

	"github.com/fenwick-ai/ragengine/internal/types"
)

// StreamInfo is the in-flight state of one streamed generation.
type StreamInfo struct {
	SessionID   string           // session ID
	RequestID   string           // request ID
	Query       string           // query content
	Content     string           // current content
	References  types.References // retrieved chunks cited so far
	LastUpdated time.Time        // last updated time
	IsCompleted bool             // whether completed
}

// StreamManager tracks in-flight streamed generations (internal/stream),
// backed by redis so state survives across handler goroutines/replicas.
type StreamManager interface {
	RegisterStream(ctx context.Context, sessionID, requestID, query string) error
	UpdateStream(ctx context.Context, sessionID, requestID string, content string, refs types.References) error
	CompleteStream(ctx context.Context, sessionID, requestID string) error
	GetStream(ctx context.Context, sessionID, requestID string) (*StreamInfo, error)
}
