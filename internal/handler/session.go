package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fenwick-ai/ragengine/internal/errors"
	"github.com/fenwick-ai/ragengine/internal/logger"
	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/fenwick-ai/ragengine/internal/types/interfaces"
	"github.com/fenwick-ai/ragengine/internal/utils"
)

// SessionHandler handles all HTTP requests related to conversation sessions
type SessionHandler struct {
	conversation  interfaces.ConversationService
	messages      interfaces.ConversationMessageRepository
	streamManager interfaces.StreamManager
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(
	conversation interfaces.ConversationService,
	messages interfaces.ConversationMessageRepository,
	streamManager interfaces.StreamManager,
) *SessionHandler {
	return &SessionHandler{
		conversation:  conversation,
		messages:      messages,
		streamManager: streamManager,
	}
}

// CreateSessionRequest is the POST /sessions body.
type CreateSessionRequest struct {
	CollectionID     string `json:"collection_id" binding:"required"`
	PipelineID       string `json:"pipeline_id"`
	Title            string `json:"title"`
	MaxHistoryRounds int    `json:"max_history_rounds"`
}

// CreateSession handles POST /sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	ctx := c.Request.Context()

	var request CreateSessionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		logger.Error(ctx, "Failed to validate session creation parameters", err)
		c.Error(errors.NewBadRequestError(err.Error()))
		return
	}

	userID := c.GetString(types.UserIDContextKey.String())
	if userID == "" {
		c.Error(errors.NewUnauthorizedError("Unauthorized"))
		return
	}

	session, err := h.conversation.CreateSession(ctx, &types.ConversationSession{
		UserID:           userID,
		CollectionID:     request.CollectionID,
		PipelineID:       request.PipelineID,
		Title:            request.Title,
		MaxHistoryRounds: request.MaxHistoryRounds,
	})
	if err != nil {
		logger.ErrorWithFields(ctx, err, nil)
		c.Error(err)
		return
	}

	logger.Infof(ctx, "Session created successfully, ID: %s", session.ID)
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    session,
	})
}

// GetSession handles GET /sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	ctx := c.Request.Context()

	id := c.Param("id")
	if id == "" {
		c.Error(errors.NewBadRequestError(errors.ErrInvalidSessionID.Error()))
		return
	}

	session, err := h.conversation.GetSession(ctx, id)
	if err != nil {
		c.Error(errors.NewNotFoundError("Session not found"))
		return
	}
	if session.UserID != c.GetString(types.UserIDContextKey.String()) {
		// Ownership failures read as absent, like private collections.
		c.Error(errors.NewNotFoundError("Session not found"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    session,
	})
}

// ListSessions handles GET /sessions with pagination
func (h *SessionHandler) ListSessions(c *gin.Context) {
	ctx := c.Request.Context()

	userID := c.GetString(types.UserIDContextKey.String())
	if userID == "" {
		c.Error(errors.NewUnauthorizedError("Unauthorized"))
		return
	}

	var page types.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		c.Error(errors.NewBadRequestError(err.Error()))
		return
	}

	result, err := h.conversation.GetPagedSessionsByUser(ctx, userID, &page)
	if err != nil {
		logger.ErrorWithFields(ctx, err, nil)
		c.Error(errors.NewInternalServerError(err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// UpdateSessionRequest is the PUT /sessions/:id body.
type UpdateSessionRequest struct {
	Title            string `json:"title"`
	MaxHistoryRounds int    `json:"max_history_rounds"`
}

// UpdateSession handles PUT /sessions/:id
func (h *SessionHandler) UpdateSession(c *gin.Context) {
	ctx := c.Request.Context()

	id := c.Param("id")
	var request UpdateSessionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.Error(errors.NewBadRequestError(err.Error()))
		return
	}

	session, err := h.conversation.GetSession(ctx, id)
	if err != nil || session.UserID != c.GetString(types.UserIDContextKey.String()) {
		c.Error(errors.NewNotFoundError("Session not found"))
		return
	}

	if request.Title != "" {
		session.Title = request.Title
	}
	if request.MaxHistoryRounds > 0 {
		session.MaxHistoryRounds = request.MaxHistoryRounds
	}

	if err := h.conversation.UpdateSession(ctx, session); err != nil {
		logger.ErrorWithFields(ctx, err, nil)
		c.Error(errors.NewInternalServerError(err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    session,
	})
}

// DeleteSession handles DELETE /sessions/:id
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	ctx := c.Request.Context()

	id := c.Param("id")
	session, err := h.conversation.GetSession(ctx, id)
	if err != nil || session.UserID != c.GetString(types.UserIDContextKey.String()) {
		c.Error(errors.NewNotFoundError("Session not found"))
		return
	}

	if err := h.conversation.DeleteSession(ctx, id); err != nil {
		logger.ErrorWithFields(ctx, err, nil)
		c.Error(errors.NewInternalServerError(err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Session deleted",
	})
}

// GenerateTitle handles POST /sessions/:session_id/generate_title
func (h *SessionHandler) GenerateTitle(c *gin.Context) {
	ctx := c.Request.Context()

	sessionID := c.Param("session_id")
	if sessionID == "" {
		c.Error(errors.NewBadRequestError(errors.ErrInvalidSessionID.Error()))
		return
	}

	var request struct {
		Messages []types.ConversationMessage `json:"messages"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.Error(errors.NewBadRequestError(err.Error()))
		return
	}

	title, err := h.conversation.GenerateTitle(ctx, sessionID, request.Messages)
	if err != nil {
		logger.ErrorWithFields(ctx, err, nil)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"title": title},
	})
}

// AskRequest is the POST /sessions/:session_id/messages body.
type AskRequest struct {
	Question string                 `json:"question" binding:"required"`
	Metadata *types.RequestMetadata `json:"config_metadata"`
}

// Ask runs one conversational search turn and streams the references-then-
// answer frames back as server-sent events.
func (h *SessionHandler) Ask(c *gin.Context) {
	ctx := logger.CloneContext(c.Request.Context())

	sessionID := c.Param("session_id")
	if sessionID == "" {
		c.Error(errors.NewBadRequestError(errors.ErrInvalidSessionID.Error()))
		return
	}

	var request AskRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		logger.Error(ctx, "Failed to parse request data", err)
		c.Error(errors.NewBadRequestError(err.Error()))
		return
	}

	question, ok := utils.ValidateInput(request.Question)
	if !ok {
		c.Error(errors.NewBadRequestError("Question contains invalid content"))
		return
	}

	userID := c.GetString(types.UserIDContextKey.String())
	if userID == "" {
		c.Error(errors.NewUnauthorizedError("Unauthorized"))
		return
	}

	logger.Infof(ctx, "Conversation turn, session ID: %s", sessionID)

	output, respCh, err := h.conversation.Search(ctx, sessionID, types.SearchInput{
		Question: question,
		UserID:   userID,
		Metadata: request.Metadata,
	})
	if err != nil {
		logger.ErrorWithFields(ctx, err, nil)
		c.Error(err)
		return
	}

	requestID := c.GetString(types.RequestIDContextKey.String())
	if err := h.streamManager.RegisterStream(ctx, sessionID, requestID, question); err != nil {
		logger.Warnf(ctx, "Register stream failed: %v", err)
	}
	defer func() {
		if err := h.streamManager.CompleteStream(ctx, sessionID, requestID); err != nil {
			logger.Warnf(ctx, "Complete stream failed: %v", err)
		}
	}()

	for response := range respCh {
		c.SSEvent("message", response)
		c.Writer.Flush()
		if response.ResponseType == types.ResponseTypeAnswer {
			if err := h.streamManager.UpdateStream(
				ctx, sessionID, requestID, response.Content, types.References(output.QueryResults),
			); err != nil {
				logger.Warnf(ctx, "Update stream content failed: %v", err)
			}
		}
	}
}

// LoadMessages handles GET /sessions/:session_id/messages for scrollback.
func (h *SessionHandler) LoadMessages(c *gin.Context) {
	ctx := c.Request.Context()

	sessionID := c.Param("session_id")
	if sessionID == "" {
		c.Error(errors.NewBadRequestError(errors.ErrInvalidSessionID.Error()))
		return
	}

	session, err := h.conversation.GetSession(ctx, sessionID)
	if err != nil || session.UserID != c.GetString(types.UserIDContextKey.String()) {
		c.Error(errors.NewNotFoundError("Session not found"))
		return
	}

	var page types.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		c.Error(errors.NewBadRequestError(err.Error()))
		return
	}

	messages, err := h.messages.GetMessagesBySession(ctx, sessionID, page.GetPage(), page.GetPageSize())
	if err != nil {
		logger.ErrorWithFields(ctx, err, nil)
		c.Error(errors.NewInternalServerError(err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    messages,
	})
}

// DeleteMessage handles DELETE /sessions/:session_id/messages/:id
func (h *SessionHandler) DeleteMessage(c *gin.Context) {
	ctx := c.Request.Context()

	sessionID := c.Param("session_id")
	messageID := c.Param("id")
	if sessionID == "" || messageID == "" {
		c.Error(errors.NewBadRequestError("Session ID and message ID cannot be empty"))
		return
	}

	session, err := h.conversation.GetSession(ctx, sessionID)
	if err != nil || session.UserID != c.GetString(types.UserIDContextKey.String()) {
		c.Error(errors.NewNotFoundError("Session not found"))
		return
	}

	if err := h.messages.DeleteMessage(ctx, sessionID, messageID); err != nil {
		logger.ErrorWithFields(ctx, err, nil)
		c.Error(errors.NewInternalServerError(err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Message deleted",
	})
}
