package rerank

import (
	"context"
	"fmt"
	"testing"

	"github.com/fenwick-ai/ragengine/internal/models/chat"
	rerankmodel "github.com/fenwick-ai/ragengine/internal/models/rerank"
	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoredChunk(id string, score float64) types.ScoredChunk {
	return types.NewScoredChunk(types.DocumentChunk{ID: id, Text: "chunk " + id}, score)
}

func TestPassthroughRerankerSortsDescending(t *testing.T) {
	chunks := []types.ScoredChunk{scoredChunk("a", 0.2), scoredChunk("b", 0.9), scoredChunk("c", 0.5)}

	out, err := NewPassthroughReranker().Rerank(context.Background(), "ignored", chunks)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "b", out[0].Chunk.ID)
	assert.Equal(t, "c", out[1].Chunk.ID)
	assert.Equal(t, "a", out[2].Chunk.ID)
}

type fakeModelReranker struct {
	results []rerankmodel.RankResult
	err     error
}

func (f *fakeModelReranker) Rerank(_ context.Context, _ string, _ []string) ([]rerankmodel.RankResult, error) {
	return f.results, f.err
}
func (f *fakeModelReranker) GetModelName() string { return "fake" }
func (f *fakeModelReranker) GetModelID() string    { return "fake" }

func TestCrossEncoderRerankerRescoresEveryChunk(t *testing.T) {
	chunks := []types.ScoredChunk{scoredChunk("a", 0.1), scoredChunk("b", 0.1)}
	model := &fakeModelReranker{results: []rerankmodel.RankResult{
		{Index: 0, RelevanceScore: 0.2},
		{Index: 1, RelevanceScore: 0.9},
	}}

	out, err := NewCrossEncoderReranker(model).Rerank(context.Background(), "q", chunks)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].Chunk.ID)
	assert.Equal(t, 0.9, out[0].Score())
	assert.Equal(t, "a", out[1].Chunk.ID)
	assert.Equal(t, 0.2, out[1].Score())
}

func TestCrossEncoderRerankerPropagatesModelError(t *testing.T) {
	model := &fakeModelReranker{err: fmt.Errorf("boom")}
	_, err := NewCrossEncoderReranker(model).Rerank(context.Background(), "q", []types.ScoredChunk{scoredChunk("a", 0.1)})
	assert.Error(t, err)
}

func TestSelectTopKPrefersAboveThreshold(t *testing.T) {
	chunks := []types.ScoredChunk{
		scoredChunk("a", 0.9), scoredChunk("b", 0.3), scoredChunk("c", 0.7), scoredChunk("d", 0.2),
	}

	out := SelectTopK(chunks, 2, 0.5)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Chunk.ID)
	assert.Equal(t, "c", out[1].Chunk.ID)
}

func TestSelectTopKFillsFromBelowThreshold(t *testing.T) {
	// Only one chunk clears the threshold, but top_k=3 must still yield
	// min(top_k, len) = 3 results, filled from the below-threshold rest.
	chunks := []types.ScoredChunk{
		scoredChunk("a", 0.9), scoredChunk("b", 0.3), scoredChunk("c", 0.2), scoredChunk("d", 0.1),
	}

	out := SelectTopK(chunks, 3, 0.5)
	require.Len(t, out, 3)
	assert.Equal(t, "a", out[0].Chunk.ID)
	assert.Equal(t, "b", out[1].Chunk.ID)
	assert.Equal(t, "c", out[2].Chunk.ID)
	for i := 1; i < len(out); i++ {
		assert.LessOrEqual(t, out[i].Score(), out[i-1].Score())
	}
}

func TestSelectTopKWithoutTopKKeepsEveryChunk(t *testing.T) {
	chunks := []types.ScoredChunk{scoredChunk("a", 0.1), scoredChunk("b", 0.9)}

	out := SelectTopK(chunks, 0, 0.5)
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].Chunk.ID)
	assert.Equal(t, "a", out[1].Chunk.ID)
}

type fakeChat struct {
	responses []string
	calls     int
	err       error
}

func (f *fakeChat) Chat(_ context.Context, _ []chat.Message, _ *chat.ChatOptions) (*types.ChatResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	idx := f.calls
	f.calls++
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return &types.ChatResponse{Content: f.responses[idx]}, nil
}
func (f *fakeChat) ChatStream(context.Context, []chat.Message, *chat.ChatOptions) (<-chan types.StreamResponse, error) {
	return nil, fmt.Errorf("not implemented")
}
func (f *fakeChat) GetModelName() string { return "fake-chat" }
func (f *fakeChat) GetModelID() string   { return "fake-chat" }

func rerankTemplate(t *testing.T) *types.PromptTemplate {
	t.Helper()
	tpl, err := types.NewPromptTemplate(
		"reranking-default", "", types.PromptTemplateReranking,
		"Score the relevance of {document} to {query} on a scale of {scale}.",
		[]string{"query", "document", "scale"},
	)
	require.NoError(t, err)
	return tpl
}

func TestLLMJudgeRerankerExtractsAndNormalizesScores(t *testing.T) {
	pool, err := ants.NewPool(4)
	require.NoError(t, err)
	defer pool.Release()

	chatModel := &fakeChat{responses: []string{"Score: 9/10", "2/10"}}
	chunks := []types.ScoredChunk{scoredChunk("a", 0.1), scoredChunk("b", 0.1)}

	r := NewLLMJudgeReranker(chatModel, rerankTemplate(t), pool, 10, 10)
	out, err := r.Rerank(context.Background(), "q", chunks)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Chunk.ID)
	assert.InDelta(t, 0.9, out[0].Score(), 0.0001)
	assert.Equal(t, "b", out[1].Chunk.ID)
	assert.InDelta(t, 0.2, out[1].Score(), 0.0001)
}

func TestLLMJudgeRerankerFallsBackToOriginalScoreOnChatError(t *testing.T) {
	pool, err := ants.NewPool(4)
	require.NoError(t, err)
	defer pool.Release()

	chatModel := &fakeChat{err: fmt.Errorf("provider down")}
	chunks := []types.ScoredChunk{scoredChunk("a", 0.7)}

	r := NewLLMJudgeReranker(chatModel, rerankTemplate(t), pool, 10, 10)
	out, err := r.Rerank(context.Background(), "q", chunks)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 0.7, out[0].Score())
}

func TestExtractScoreDefaultsToNeutralWhenUnparsable(t *testing.T) {
	r := &LLMJudgeReranker{scale: 10}
	assert.Equal(t, 0.5, r.extractScore("I cannot evaluate this document."))
}
