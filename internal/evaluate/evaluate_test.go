package evaluate

import (
	"context"
	"errors"
	"testing"

	"github.com/fenwick-ai/ragengine/internal/models/chat"
	"github.com/fenwick-ai/ragengine/internal/models/embedding"
	"github.com/fenwick-ai/ragengine/internal/models/rerank"
	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoredChunk(id, text string) types.ScoredChunk {
	return types.NewScoredChunk(types.DocumentChunk{ID: id, Text: text}, 0.5)
}

// fakeEmbedder returns a fixed vector per text, defaulting to a shared
// vector for anything not explicitly mapped.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors[text], nil
}
func (f *fakeEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
func (f *fakeEmbedder) GetModelName() string { return "fake" }
func (f *fakeEmbedder) GetDimensions() int   { return 3 }
func (f *fakeEmbedder) GetModelID() string   { return "fake" }
func (f *fakeEmbedder) BatchEmbedWithPool(ctx context.Context, model embedding.Embedder, texts []string) ([][]float32, error) {
	return f.BatchEmbed(ctx, texts)
}

type fakeModelService struct {
	embedder embedding.Embedder
	chat     chat.Chat
}

func (f *fakeModelService) CreateModel(context.Context, *types.Model) error           { return nil }
func (f *fakeModelService) GetModelByID(context.Context, string) (*types.Model, error) { return nil, nil }
func (f *fakeModelService) ListModels(context.Context) ([]*types.Model, error)         { return nil, nil }
func (f *fakeModelService) UpdateModel(context.Context, *types.Model) error            { return nil }
func (f *fakeModelService) DeleteModel(context.Context, string) error                  { return nil }
func (f *fakeModelService) GetEmbeddingModel(context.Context, string) (embedding.Embedder, error) {
	return f.embedder, nil
}
func (f *fakeModelService) GetRerankModel(context.Context, string) (rerank.Reranker, error) {
	return nil, nil
}
func (f *fakeModelService) GetChatModel(context.Context, string) (chat.Chat, error) {
	return f.chat, nil
}

func TestCosineEvaluatorNoDocumentsReturnsError(t *testing.T) {
	e := NewCosineEvaluator(&fakeModelService{})
	sc := types.NewSearchContext(types.SearchInput{Question: "q"})
	report, err := e.Evaluate(context.Background(), sc)
	require.NoError(t, err)
	assert.Equal(t, "No documents found", report.Error)
}

func TestCosineEvaluatorComputesComponents(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"capital of france": {1, 0, 0},
		"Paris is great":    {1, 0, 0},
		"chunk a":           {1, 0, 0},
		"chunk b":           {0, 1, 0},
	}}
	e := NewCosineEvaluator(&fakeModelService{embedder: embedder})

	sc := types.NewSearchContext(types.SearchInput{Question: "capital of france"})
	sc.RewrittenQuery = "capital of france"
	sc.GeneratedAnswer = "Paris is great"
	sc.PipelineConfig = &types.PipelineConfig{EmbeddingModelID: "embed-1"}
	sc.QueryResults = []types.ScoredChunk{scoredChunk("a", "chunk a"), scoredChunk("b", "chunk b")}

	report, err := e.Evaluate(context.Background(), sc)
	require.NoError(t, err)
	assert.Equal(t, "cosine", report.Mode)
	assert.InDelta(t, 0.5, report.Relevance, 1e-9) // mean(cos(q,a)=1, cos(q,b)=0)
	assert.InDelta(t, 1.0, report.Coherence, 1e-9) // query == answer direction
	assert.InDelta(t, 0.5, report.Faithfulness, 1e-9)
	assert.InDelta(t, (0.5+1.0+0.5)/3, report.Overall, 1e-9)
}

func TestCosineEvaluatorSkipsEmptyEmbeddings(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"q": {1, 0}, "a": {1, 0}, "chunk a": {1, 0},
		// "chunk b" deliberately absent -> empty vector, must be skipped
	}}
	e := NewCosineEvaluator(&fakeModelService{embedder: embedder})
	sc := types.NewSearchContext(types.SearchInput{Question: "q"})
	sc.RewrittenQuery = "q"
	sc.GeneratedAnswer = "a"
	sc.PipelineConfig = &types.PipelineConfig{EmbeddingModelID: "embed-1"}
	sc.QueryResults = []types.ScoredChunk{scoredChunk("a", "chunk a"), scoredChunk("b", "chunk b")}

	report, err := e.Evaluate(context.Background(), sc)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, report.Relevance, 1e-9) // only "chunk a" survives, not averaged with a 0
}

type fakeChat struct {
	responses map[string]string
	err       error
}

func (f *fakeChat) Chat(_ context.Context, messages []chat.Message, _ *chat.ChatOptions) (*types.ChatResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	content := messages[len(messages)-1].Content
	return &types.ChatResponse{Content: f.responses[content]}, nil
}
func (f *fakeChat) ChatStream(context.Context, []chat.Message, *chat.ChatOptions) (<-chan types.StreamResponse, error) {
	return nil, nil
}
func (f *fakeChat) GetModelName() string { return "fake" }
func (f *fakeChat) GetModelID() string   { return "fake" }

func evalTemplate(t *testing.T) *types.PromptTemplate {
	t.Helper()
	tmpl, err := types.NewPromptTemplate("eval-1", "u1", types.PromptTemplateEvaluation,
		"score the answer '{answer}' to '{question}' given context '{context}'", []string{"question", "answer", "context"})
	require.NoError(t, err)
	return tmpl
}

func TestLLMJudgeEvaluatorParsesAndAggregates(t *testing.T) {
	fc := &fakeChat{responses: map[string]string{}}
	models := &fakeModelService{chat: fc}
	e := NewLLMJudgeEvaluator(models)

	sc := types.NewSearchContext(types.SearchInput{Question: "What is AI?"})
	sc.GeneratedAnswer = "Artificial intelligence."
	sc.PipelineConfig = &types.PipelineConfig{LLMProviderID: "chat-1"}
	sc.EvaluationTemplate = evalTemplate(t)
	sc.QueryResults = []types.ScoredChunk{scoredChunk("a", "AI is the simulation of intelligence.")}

	// Every rendered prompt gets the same score for determinism.
	for _, dim := range judgeDimensions {
		prompt, err := sc.EvaluationTemplate.Render(dim.vars(sc))
		require.NoError(t, err)
		fc.responses[prompt] = "0.8"
	}

	report, err := e.Evaluate(context.Background(), sc)
	require.NoError(t, err)
	assert.Equal(t, "llm_judge", report.Mode)
	assert.InDelta(t, 0.8, report.JudgeFaithfulness, 1e-9)
	assert.Empty(t, report.JudgeErrors)
}

func TestLLMJudgeEvaluatorIsolatesPerJudgeFailure(t *testing.T) {
	fc := &fakeChat{err: errors.New("provider down")}
	models := &fakeModelService{chat: fc}
	e := NewLLMJudgeEvaluator(models)

	sc := types.NewSearchContext(types.SearchInput{Question: "q"})
	sc.GeneratedAnswer = "a"
	sc.PipelineConfig = &types.PipelineConfig{LLMProviderID: "chat-1"}
	sc.EvaluationTemplate = evalTemplate(t)
	sc.QueryResults = []types.ScoredChunk{scoredChunk("a", "chunk")}

	report, err := e.Evaluate(context.Background(), sc)
	require.NoError(t, err)
	assert.Len(t, report.JudgeErrors, 3)
	assert.Equal(t, 0.0, report.JudgeFaithfulness)
}

func TestParseJudgeScoreHandlesTenPointScale(t *testing.T) {
	v, err := parseJudgeScore("8/10 - well grounded")
	require.NoError(t, err)
	assert.InDelta(t, 0.8, v, 1e-9)
}

func TestParseJudgeScoreRejectsUnparsable(t *testing.T) {
	_, err := parseJudgeScore("not a number")
	assert.Error(t, err)
}
