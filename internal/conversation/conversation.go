// Package conversation implements the conversation orchestrator: turn-
// level coordination over the search service — session validation,
// context building, question enhancement, the search call itself, token
// accounting, and message persistence.
package conversation

import (
	"context"
	"strings"

	"github.com/fenwick-ai/ragengine/internal/config"
	apperrors "github.com/fenwick-ai/ragengine/internal/errors"
	"github.com/fenwick-ai/ragengine/internal/logger"
	"github.com/fenwick-ai/ragengine/internal/models/chat"
	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/fenwick-ai/ragengine/internal/types/interfaces"
)

// Searcher is the subset of internal/search.Service the orchestrator needs,
// narrowed to an interface so this package doesn't import internal/search
// directly (keeps the dependency arrow the same direction as the rest of
// the tree: search depends on pipeline, conversation depends on search's
// contract, not its package).
type Searcher interface {
	Search(ctx context.Context, input types.SearchInput) (*types.SearchOutput, error)
}

// Service is the conversation orchestrator.
type Service struct {
	sessions   interfaces.ConversationRepository
	messages   interfaces.ConversationMessageRepository
	search     Searcher
	models     interfaces.ModelService
	pipelines  interfaces.PipelineConfigRepository
	contextSvc *ContextService
	tokenizer  interfaces.Tokenizer
	tracking   *TokenTrackingService
	cfg        *config.ConversationConfig
}

// New builds the conversation orchestrator.
func New(
	sessions interfaces.ConversationRepository,
	messages interfaces.ConversationMessageRepository,
	search Searcher,
	models interfaces.ModelService,
	pipelines interfaces.PipelineConfigRepository,
	contextSvc *ContextService,
	tokenizer interfaces.Tokenizer,
	tracking *TokenTrackingService,
	cfg *config.ConversationConfig,
) *Service {
	return &Service{
		sessions: sessions, messages: messages, search: search, models: models, pipelines: pipelines,
		contextSvc: contextSvc, tokenizer: tokenizer, tracking: tracking, cfg: cfg,
	}
}

func (s *Service) CreateSession(ctx context.Context, session *types.ConversationSession) (*types.ConversationSession, error) {
	return s.sessions.Create(ctx, session)
}

func (s *Service) GetSession(ctx context.Context, id string) (*types.ConversationSession, error) {
	return s.sessions.Get(ctx, id)
}

func (s *Service) GetSessionsByUser(ctx context.Context, userID string) ([]*types.ConversationSession, error) {
	return s.sessions.GetByUserID(ctx, userID)
}

func (s *Service) GetPagedSessionsByUser(ctx context.Context, userID string, page *types.Pagination) (*types.PageResult, error) {
	sessions, total, err := s.sessions.GetPagedByUserID(ctx, userID, page)
	if err != nil {
		return nil, err
	}
	return types.NewPageResult(total, page, sessions), nil
}

func (s *Service) UpdateSession(ctx context.Context, session *types.ConversationSession) error {
	return s.sessions.Update(ctx, session)
}

func (s *Service) DeleteSession(ctx context.Context, id string) error {
	return s.sessions.Delete(ctx, id)
}

// GenerateTitle generates a short session title from its first user
// message: skip if a title already exists, fall back to the first
// persisted user message when none is supplied, strip a leading empty
// <think> block.
func (s *Service) GenerateTitle(ctx context.Context, sessionID string, msgs []types.ConversationMessage) (string, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if session.Title != "" {
		return session.Title, nil
	}

	var first *types.ConversationMessage
	for i := range msgs {
		if msgs[i].Role == types.RoleUser {
			first = &msgs[i]
			break
		}
	}
	if first == nil {
		m, err := s.messages.GetFirstMessageOfSession(ctx, sessionID)
		if err != nil {
			return "", err
		}
		first = m
	}
	if first == nil {
		return "", apperrors.NewValidationError("messages", "no user message found to generate a title from")
	}

	chatModelID, err := s.resolveChatModelID(ctx, session.PipelineID)
	if err != nil {
		return "", err
	}
	chatModel, err := s.models.GetChatModel(ctx, chatModelID)
	if err != nil {
		return "", err
	}

	thinking := false
	resp, err := chatModel.Chat(ctx, []chat.Message{
		{Role: "system", Content: s.titlePrompt()},
		{Role: "user", Content: first.Content},
	}, &chat.ChatOptions{Temperature: 0.3, Thinking: &thinking})
	if err != nil {
		return "", apperrors.NewLLMProviderError(apperrors.ErrLLMProviderBadResponse, err.Error())
	}

	session.Title = strings.TrimPrefix(resp.Content, "<think>\n\n</think>")
	if err := s.sessions.Update(ctx, session); err != nil {
		return "", err
	}
	return session.Title, nil
}

// resolveChatModelID looks up the chat model a session's pipeline was
// configured to use. A ConversationSession carries no model id of its
// own, only a PipelineID, so the model comes from the pipeline's
// LLMProviderID.
func (s *Service) resolveChatModelID(ctx context.Context, pipelineID string) (string, error) {
	if pipelineID == "" {
		return "", apperrors.NewValidationError("pipeline_id", "session has no pipeline configured")
	}
	pipeline, err := s.pipelines.Get(ctx, pipelineID)
	if err != nil {
		return "", err
	}
	if pipeline.LLMProviderID == "" {
		return "", apperrors.NewConfigurationError("pipeline " + pipelineID + " has no llm_provider_id configured")
	}
	return pipeline.LLMProviderID, nil
}

func (s *Service) titlePrompt() string {
	if s.cfg != nil && s.cfg.GenerateSessionTitlePrompt != "" {
		return s.cfg.GenerateSessionTitlePrompt
	}
	return "Summarize the following user question as a short conversation title of no more than six words."
}

// Search runs one conversational turn end to end.
func (s *Service) Search(
	ctx context.Context, sessionID string, input types.SearchInput,
) (*types.SearchOutput, <-chan types.StreamResponse, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, nil, apperrors.NewNotFoundError("session not found: " + sessionID)
	}
	if session.UserID != "" && input.UserID != "" && session.UserID != input.UserID {
		// Access denial is expressed as NotFound, never a distinct
		// "forbidden", matching the collection access-control rule.
		return nil, nil, apperrors.NewNotFoundError("session not found: " + sessionID)
	}

	priorTotal, err := s.conversationTotalTokens(ctx, sessionID)
	if err != nil {
		logger.Warnf(ctx, "conversation: failed to total prior tokens for session %s: %v", sessionID, err)
	}

	question := strings.TrimSpace(input.Question)
	userTokens := s.tokenizer.CountTokens(question)
	userMsg := &types.ConversationMessage{
		SessionID: sessionID, Role: types.RoleUser, Kind: types.MessageKindNormal,
		Content: question, TokenCount: userTokens, IsCompleted: true,
	}
	if _, err := s.messages.CreateMessage(ctx, userMsg); err != nil {
		return nil, nil, err
	}

	convCtx, err := s.contextSvc.Build(ctx, sessionID)
	if err != nil {
		logger.Warnf(ctx, "conversation: failed to build context for session %s: %v", sessionID, err)
		convCtx = &ConversationContext{}
	}

	enhancedQuestion := s.enhanceQuestion(question, convCtx)

	meta := input.Metadata
	if meta == nil {
		meta = &types.RequestMetadata{}
	}
	meta.ConversationAware = true
	meta.ConversationContext = sessionID
	meta.Entities = convCtx.Entities

	searchInput := input
	searchInput.Question = enhancedQuestion
	searchInput.CollectionID = session.CollectionID
	if searchInput.PipelineID == "" {
		searchInput.PipelineID = session.PipelineID
	}
	searchInput.Metadata = meta

	output, err := s.search.Search(ctx, searchInput)
	if err != nil {
		return nil, nil, err
	}

	responseTokens := s.tokenizer.CountTokens(output.Answer)
	systemTokens := s.tokenizer.CountTokens(s.titlePrompt()) // informational only, not persisted as a message
	totalThisTurn := userTokens + responseTokens
	// conversationTotal must equal the sum of token_count across this
	// session's persisted messages; system-prompt tokens are
	// reported in TokenAnalysis but never attributed to a stored message, so
	// they stay out of the running total.
	conversationTotal := priorTotal + totalThisTurn

	tokenAnalysis := &types.TokenAnalysis{
		QueryTokens: userTokens, ResponseTokens: responseTokens, SystemTokens: systemTokens,
		TotalThisTurn: totalThisTurn + systemTokens, ConversationTotal: conversationTotal,
	}
	warning := s.tracking.CheckUsageWarning(conversationTotal, convCtx.ContextLength)
	output.TokenWarning = warning

	kind := types.MessageKindNormal
	if output.Evaluation != nil && output.Evaluation.Error != "" {
		kind = types.MessageKindFallback
	}
	assistantMsg := &types.ConversationMessage{
		SessionID: sessionID, RequestID: userMsg.ID, Role: types.RoleAssistant, Kind: kind,
		Content: output.Answer, TokenCount: responseTokens, ExecutionTimeMS: output.ExecutionTimeMS,
		IsCompleted: true,
		Metadata: types.MessageMetadata{
			Sources: toReferences(output.QueryResults), CoT: output.CoT, TokenAnalysis: tokenAnalysis,
		},
	}
	stored, err := s.messages.CreateMessage(ctx, assistantMsg)
	if err != nil {
		return nil, nil, err
	}

	session.TotalTokensUsed = conversationTotal
	if err := s.sessions.Update(ctx, session); err != nil {
		logger.Warnf(ctx, "conversation: failed to persist session token total for %s: %v", sessionID, err)
	}

	stream := s.replayAsStream(stored, output)
	return output, stream, nil
}

// enhanceQuestion is a pure-string transformation hook. The actual
// LLM-backed rewrite already happens inside the pipeline's QueryEnhancement
// stage (internal/pipeline/enhancement.go), which reads the same session id
// carried in RequestMetadata.ConversationContext; this step is therefore a
// passthrough by contract ("may return the original
// string unchanged").
func (s *Service) enhanceQuestion(question string, _ *ConversationContext) string {
	return question
}

func (s *Service) conversationTotalTokens(ctx context.Context, sessionID string) (int, error) {
	msgs, err := s.messages.GetMessagesBySession(ctx, sessionID, 1, 10000)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, m := range msgs {
		total += m.TokenCount
	}
	return total, nil
}

func toReferences(chunks []types.ScoredChunk) types.References {
	if len(chunks) == 0 {
		return nil
	}
	return types.References(chunks)
}

// replayAsStream packages the already-computed turn as a chunked answer
// interface,
// since the synchronous pipeline Stage contract produces the full answer
// before this orchestrator ever sees it (internal/pipeline/generation.go's
// grounding note).
func (s *Service) replayAsStream(msg *types.ConversationMessage, output *types.SearchOutput) <-chan types.StreamResponse {
	ch := make(chan types.StreamResponse, 2)
	go func() {
		defer close(ch)
		ch <- types.StreamResponse{ID: msg.ID, ResponseType: types.ResponseTypeReferences, References: toReferences(output.QueryResults)}
		ch <- types.StreamResponse{ID: msg.ID, ResponseType: types.ResponseTypeAnswer, Content: output.Answer, Done: true}
	}()
	return ch
}
