package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fenwick-ai/ragengine/internal/config"
	apperrors "github.com/fenwick-ai/ragengine/internal/errors"
	"github.com/fenwick-ai/ragengine/internal/models/chat"
	"github.com/fenwick-ai/ragengine/internal/models/embedding"
	"github.com/fenwick-ai/ragengine/internal/models/rerank"
	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/fenwick-ai/ragengine/internal/types/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessionRepo struct {
	sessions map[string]*types.ConversationSession
	updates  int
}

func newFakeSessionRepo(sessions ...*types.ConversationSession) *fakeSessionRepo {
	m := map[string]*types.ConversationSession{}
	for _, s := range sessions {
		m[s.ID] = s
	}
	return &fakeSessionRepo{sessions: m}
}

func (f *fakeSessionRepo) Create(_ context.Context, s *types.ConversationSession) (*types.ConversationSession, error) {
	f.sessions[s.ID] = s
	return s, nil
}
func (f *fakeSessionRepo) Get(_ context.Context, id string) (*types.ConversationSession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("session not found: " + id)
	}
	return s, nil
}
func (f *fakeSessionRepo) GetByUserID(_ context.Context, userID string) ([]*types.ConversationSession, error) {
	var out []*types.ConversationSession
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}
func (f *fakeSessionRepo) GetPagedByUserID(_ context.Context, userID string, page *types.Pagination) ([]*types.ConversationSession, int64, error) {
	all, _ := f.GetByUserID(context.Background(), userID)
	return all, int64(len(all)), nil
}
func (f *fakeSessionRepo) Update(_ context.Context, s *types.ConversationSession) error {
	f.updates++
	f.sessions[s.ID] = s
	return nil
}
func (f *fakeSessionRepo) Delete(_ context.Context, id string) error {
	delete(f.sessions, id)
	return nil
}

type fakeMessageRepo struct {
	bySession map[string][]*types.ConversationMessage
	nextID    int
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{bySession: map[string][]*types.ConversationMessage{}}
}

func (f *fakeMessageRepo) CreateMessage(_ context.Context, m *types.ConversationMessage) (*types.ConversationMessage, error) {
	f.nextID++
	if m.ID == "" {
		m.ID = "msg-" + string(rune('a'+f.nextID))
	}
	f.bySession[m.SessionID] = append(f.bySession[m.SessionID], m)
	return m, nil
}
func (f *fakeMessageRepo) GetMessage(_ context.Context, sessionID, id string) (*types.ConversationMessage, error) {
	for _, m := range f.bySession[sessionID] {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, apperrors.NewNotFoundError("message not found: " + id)
}
func (f *fakeMessageRepo) GetMessagesBySession(_ context.Context, sessionID string, page, pageSize int) ([]*types.ConversationMessage, error) {
	return f.bySession[sessionID], nil
}
func (f *fakeMessageRepo) GetRecentMessagesBySession(_ context.Context, sessionID string, limit int) ([]*types.ConversationMessage, error) {
	msgs := f.bySession[sessionID]
	if len(msgs) <= limit {
		return msgs, nil
	}
	return msgs[len(msgs)-limit:], nil
}
func (f *fakeMessageRepo) GetMessagesBySessionBeforeTime(_ context.Context, sessionID string, beforeTime time.Time, limit int) ([]*types.ConversationMessage, error) {
	return nil, nil
}
func (f *fakeMessageRepo) UpdateMessage(_ context.Context, m *types.ConversationMessage) error { return nil }
func (f *fakeMessageRepo) DeleteMessage(_ context.Context, sessionID, id string) error          { return nil }
func (f *fakeMessageRepo) GetFirstMessageOfSession(_ context.Context, sessionID string) (*types.ConversationMessage, error) {
	msgs := f.bySession[sessionID]
	for _, m := range msgs {
		if m.Role == types.RoleUser {
			return m, nil
		}
	}
	return nil, apperrors.NewNotFoundError("no messages in session " + sessionID)
}

type fakeSearcher struct {
	output *types.SearchOutput
	err    error
	got    types.SearchInput
}

func (f *fakeSearcher) Search(_ context.Context, input types.SearchInput) (*types.SearchOutput, error) {
	f.got = input
	if f.err != nil {
		return nil, f.err
	}
	return f.output, nil
}

type fakeTokenizer struct{ perCall int }

func (f *fakeTokenizer) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return f.perCall
}

type fakePipelineRepo struct {
	pipelines map[string]*types.PipelineConfig
}

func (f *fakePipelineRepo) Create(_ context.Context, p *types.PipelineConfig) (*types.PipelineConfig, error) {
	return p, nil
}
func (f *fakePipelineRepo) Get(_ context.Context, id string) (*types.PipelineConfig, error) {
	p, ok := f.pipelines[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("pipeline not found: " + id)
	}
	return p, nil
}
func (f *fakePipelineRepo) GetDefaultForCollection(_ context.Context, collectionID string) (*types.PipelineConfig, error) {
	return nil, apperrors.NewNotFoundError("no default pipeline")
}
func (f *fakePipelineRepo) List(_ context.Context) ([]*types.PipelineConfig, error) { return nil, nil }
func (f *fakePipelineRepo) Update(_ context.Context, p *types.PipelineConfig) error { return nil }
func (f *fakePipelineRepo) Delete(_ context.Context, id string) error              { return nil }

type fakeChat struct {
	resp *types.ChatResponse
	err  error
}

func (f *fakeChat) Chat(_ context.Context, _ []chat.Message, _ *chat.ChatOptions) (*types.ChatResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}
func (f *fakeChat) ChatStream(_ context.Context, _ []chat.Message, _ *chat.ChatOptions) (<-chan types.StreamResponse, error) {
	return nil, nil
}
func (f *fakeChat) GetModelName() string { return "fake-chat" }
func (f *fakeChat) GetModelID() string   { return "fake-chat-id" }

type fakeModelService struct {
	chatModel *fakeChat
}

func (f *fakeModelService) CreateModel(_ context.Context, _ *types.Model) error       { return nil }
func (f *fakeModelService) GetModelByID(_ context.Context, _ string) (*types.Model, error) {
	return nil, nil
}
func (f *fakeModelService) ListModels(_ context.Context) ([]*types.Model, error) { return nil, nil }
func (f *fakeModelService) UpdateModel(_ context.Context, _ *types.Model) error  { return nil }
func (f *fakeModelService) DeleteModel(_ context.Context, _ string) error       { return nil }
func (f *fakeModelService) GetEmbeddingModel(_ context.Context, _ string) (embedding.Embedder, error) {
	return nil, nil
}
func (f *fakeModelService) GetRerankModel(_ context.Context, _ string) (rerank.Reranker, error) {
	return nil, nil
}
func (f *fakeModelService) GetChatModel(_ context.Context, _ string) (chat.Chat, error) {
	return f.chatModel, nil
}

var _ interfaces.ConversationRepository = (*fakeSessionRepo)(nil)
var _ interfaces.ConversationMessageRepository = (*fakeMessageRepo)(nil)
var _ interfaces.PipelineConfigRepository = (*fakePipelineRepo)(nil)
var _ interfaces.ModelService = (*fakeModelService)(nil)
var _ Searcher = (*fakeSearcher)(nil)
var _ interfaces.Tokenizer = (*fakeTokenizer)(nil)

func newTestService(t *testing.T, sessions *fakeSessionRepo, messages *fakeMessageRepo, searcher *fakeSearcher, tokPerCall int) *Service {
	t.Helper()
	return New(
		sessions, messages, searcher,
		&fakeModelService{}, &fakePipelineRepo{pipelines: map[string]*types.PipelineConfig{}},
		NewContextService(messages, 20, nil),
		&fakeTokenizer{perCall: tokPerCall},
		NewTokenTrackingService(&config.TokenTrackingConfig{}),
		&config.ConversationConfig{},
	)
}

func TestSearchRejectsUnownedSession(t *testing.T) {
	sessions := newFakeSessionRepo(&types.ConversationSession{ID: "s1", UserID: "owner"})
	messages := newFakeMessageRepo()
	searcher := &fakeSearcher{output: &types.SearchOutput{Answer: "hi"}}
	svc := newTestService(t, sessions, messages, searcher, 5)

	_, _, err := svc.Search(context.Background(), "s1", types.SearchInput{Question: "q", UserID: "someone-else"})
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrNotFound, appErr.Code)
}

func TestSearchRejectsUnknownSession(t *testing.T) {
	sessions := newFakeSessionRepo()
	messages := newFakeMessageRepo()
	searcher := &fakeSearcher{output: &types.SearchOutput{Answer: "hi"}}
	svc := newTestService(t, sessions, messages, searcher, 5)

	_, _, err := svc.Search(context.Background(), "missing", types.SearchInput{Question: "q"})
	assert.Error(t, err)
}

func TestSearchHappyPathPersistsBothMessagesAndTokenTotal(t *testing.T) {
	sessions := newFakeSessionRepo(&types.ConversationSession{ID: "s1", UserID: "u1", CollectionID: "c1", PipelineID: "p1"})
	messages := newFakeMessageRepo()
	searcher := &fakeSearcher{output: &types.SearchOutput{Answer: "the answer", QueryResults: []types.ScoredChunk{
		types.NewScoredChunk(types.DocumentChunk{ID: "d1", Text: "chunk"}, 0.5),
	}}}
	svc := newTestService(t, sessions, messages, searcher, 10)

	out, stream, err := svc.Search(context.Background(), "s1", types.SearchInput{Question: "what is AI?", UserID: "u1"})
	require.NoError(t, err)
	require.NotNil(t, stream)

	stored := messages.bySession["s1"]
	require.Len(t, stored, 2)
	assert.Equal(t, types.RoleUser, stored[0].Role)
	assert.Equal(t, types.RoleAssistant, stored[1].Role)
	assert.Equal(t, "the answer", stored[1].Content)
	require.NotNil(t, stored[1].Metadata.TokenAnalysis)
	assert.Equal(t, 20, stored[1].Metadata.TokenAnalysis.ConversationTotal)
	assert.Equal(t, "the answer", out.Answer)

	frames := drain(t, stream)
	require.Len(t, frames, 2)
	assert.Equal(t, types.ResponseTypeReferences, frames[0].ResponseType)
	assert.Equal(t, types.ResponseTypeAnswer, frames[1].ResponseType)
	assert.True(t, frames[1].Done)

	assert.True(t, searcher.got.Metadata.ConversationAware)
	assert.Equal(t, "s1", searcher.got.Metadata.ConversationContext)
	assert.Equal(t, "c1", searcher.got.CollectionID)
}

func TestSearchConversationTotalAccumulatesAcrossTurns(t *testing.T) {
	sessions := newFakeSessionRepo(&types.ConversationSession{ID: "s1", UserID: "u1"})
	messages := newFakeMessageRepo()
	// Seed prior history totalling 45 tokens.
	messages.bySession["s1"] = []*types.ConversationMessage{
		{ID: "m1", SessionID: "s1", Role: types.RoleUser, TokenCount: 10},
		{ID: "m2", SessionID: "s1", Role: types.RoleAssistant, TokenCount: 20},
		{ID: "m3", SessionID: "s1", Role: types.RoleUser, TokenCount: 15},
	}
	searcher := &fakeSearcher{output: &types.SearchOutput{Answer: "reply"}}
	svc := newTestService(t, sessions, messages, searcher, 7)

	_, _, err := svc.Search(context.Background(), "s1", types.SearchInput{Question: "next question", UserID: "u1"})
	require.NoError(t, err)

	stored := messages.bySession["s1"]
	last := stored[len(stored)-1]
	assert.Equal(t, 45+7+7, last.Metadata.TokenAnalysis.ConversationTotal)

	var sum int
	for _, m := range stored {
		sum += m.TokenCount
	}
	assert.Equal(t, sum, last.Metadata.TokenAnalysis.ConversationTotal)
}

// failingHistoryRepo makes ContextService.Build fail by erroring on the
// recent-history fetch while delegating everything else.
type failingHistoryRepo struct{ *fakeMessageRepo }

func (f failingHistoryRepo) GetRecentMessagesBySession(context.Context, string, int) ([]*types.ConversationMessage, error) {
	return nil, errors.New("history unavailable")
}

func TestSearchDoesNotFailWhenContextBuildFails(t *testing.T) {
	sessions := newFakeSessionRepo(&types.ConversationSession{ID: "s1", UserID: "u1"})
	messages := newFakeMessageRepo()
	searcher := &fakeSearcher{output: &types.SearchOutput{Answer: "ok"}}
	svc := New(
		sessions, messages, searcher,
		&fakeModelService{}, &fakePipelineRepo{pipelines: map[string]*types.PipelineConfig{}},
		NewContextService(failingHistoryRepo{messages}, 20, nil),
		&fakeTokenizer{perCall: 3},
		NewTokenTrackingService(&config.TokenTrackingConfig{}),
		&config.ConversationConfig{},
	)

	_, _, err := svc.Search(context.Background(), "s1", types.SearchInput{Question: "q", UserID: "u1"})
	require.NoError(t, err)
}

func TestSearchPropagatesUnderlyingSearchError(t *testing.T) {
	sessions := newFakeSessionRepo(&types.ConversationSession{ID: "s1", UserID: "u1"})
	messages := newFakeMessageRepo()
	searcher := &fakeSearcher{err: apperrors.NewValidationError("question", "empty")}
	svc := newTestService(t, sessions, messages, searcher, 3)

	_, _, err := svc.Search(context.Background(), "s1", types.SearchInput{Question: "q", UserID: "u1"})
	assert.Error(t, err)
	// No assistant message should be stored when search fails outright.
	assert.Len(t, messages.bySession["s1"], 1)
}

func TestGenerateTitleSkipsWhenAlreadySet(t *testing.T) {
	sessions := newFakeSessionRepo(&types.ConversationSession{ID: "s1", Title: "Existing title"})
	messages := newFakeMessageRepo()
	svc := newTestService(t, sessions, messages, &fakeSearcher{}, 3)

	title, err := svc.GenerateTitle(context.Background(), "s1", nil)
	require.NoError(t, err)
	assert.Equal(t, "Existing title", title)
}

func TestGenerateTitleCallsChatModelAndPersists(t *testing.T) {
	sessions := newFakeSessionRepo(&types.ConversationSession{ID: "s1", PipelineID: "p1"})
	messages := newFakeMessageRepo()
	pipelines := &fakePipelineRepo{pipelines: map[string]*types.PipelineConfig{
		"p1": {ID: "p1", LLMProviderID: "model-1"},
	}}
	models := &fakeModelService{chatModel: &fakeChat{resp: &types.ChatResponse{Content: "<think>\n\n</think>Short Title"}}}
	svc := New(sessions, messages, &fakeSearcher{}, models, pipelines,
		NewContextService(messages, 20, nil), &fakeTokenizer{perCall: 3},
		NewTokenTrackingService(nil), &config.ConversationConfig{})

	title, err := svc.GenerateTitle(context.Background(), "s1", []types.ConversationMessage{
		{Role: types.RoleUser, Content: "what is AI?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Short Title", title)
	assert.Equal(t, 1, sessions.updates)
}

func TestGenerateTitleFailsWithoutPipeline(t *testing.T) {
	sessions := newFakeSessionRepo(&types.ConversationSession{ID: "s1"})
	messages := newFakeMessageRepo()
	svc := newTestService(t, sessions, messages, &fakeSearcher{}, 3)

	_, err := svc.GenerateTitle(context.Background(), "s1", []types.ConversationMessage{
		{Role: types.RoleUser, Content: "hello"},
	})
	assert.Error(t, err)
}

func drain(t *testing.T, ch <-chan types.StreamResponse) []types.StreamResponse {
	t.Helper()
	var out []types.StreamResponse
	for f := range ch {
		out = append(out, f)
	}
	return out
}
