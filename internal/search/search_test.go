package search

import (
	"context"
	"errors"
	"testing"

	"github.com/fenwick-ai/ragengine/internal/config"
	apperrors "github.com/fenwick-ai/ragengine/internal/errors"
	"github.com/fenwick-ai/ragengine/internal/pipeline"
	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStage struct {
	name types.StageName
	run  func(ctx context.Context, sc *types.SearchContext, next func() *types.StageError) *types.StageError
}

func (s *fakeStage) Name() types.StageName { return s.name }
func (s *fakeStage) Run(
	ctx context.Context, sc *types.SearchContext, next func() *types.StageError,
) *types.StageError {
	return s.run(ctx, sc, next)
}

type fakeDocuments struct {
	names map[string]string
}

func (f *fakeDocuments) GetDisplayName(_ context.Context, _, documentID string) (string, error) {
	return f.names[documentID], nil
}

func (f *fakeDocuments) BatchGetDisplayNames(
	_ context.Context, _ string, documentIDs []string,
) (map[string]string, error) {
	out := make(map[string]string)
	for _, id := range documentIDs {
		if name, ok := f.names[id]; ok {
			out[id] = name
		}
	}
	return out, nil
}

type fakeEvaluator struct {
	report *types.EvaluationReport
	err     error
}

func (f *fakeEvaluator) Mode() types.EvaluationMode { return types.EvaluationModeCosine }
func (f *fakeEvaluator) Evaluate(context.Context, *types.SearchContext) (*types.EvaluationReport, error) {
	return f.report, f.err
}

func chunkWithDoc(id, docID string, page int, score float64) types.ScoredChunk {
	return types.NewScoredChunk(types.DocumentChunk{
		ID: id, Text: "text " + id,
		Metadata: types.ChunkMetadata{DocumentID: docID, PageNumber: page},
	}, score)
}

func TestSearchRejectsEmptyQuestion(t *testing.T) {
	svc := New(pipeline.New(), &fakeDocuments{}, nil, nil, nil)
	_, err := svc.Search(context.Background(), types.SearchInput{Question: "   "})
	require.Error(t, err)
	ae, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrValidationField, ae.Code)
}

func TestSearchRejectsOverlongQuestion(t *testing.T) {
	svc := New(pipeline.New(), &fakeDocuments{}, nil, nil, &config.SearchConfig{MaxQuestionLength: 5})
	_, err := svc.Search(context.Background(), types.SearchInput{Question: "this is too long"})
	require.Error(t, err)
}

func TestSearchMapsAccessDenialToNotFound(t *testing.T) {
	resolution := &fakeStage{name: types.StagePipelineResolution, run: func(
		ctx context.Context, sc *types.SearchContext, next func() *types.StageError,
	) *types.StageError {
		return &types.StageError{
			Stage: types.StagePipelineResolution, Err: errors.New("access denied"),
			Fatal: true, Message: "user is not authorized to search this collection",
		}
	}}
	svc := New(pipeline.New(resolution), &fakeDocuments{}, nil, nil, nil)
	_, err := svc.Search(context.Background(), types.SearchInput{Question: "q"})
	require.Error(t, err)
	ae, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrNotFound, ae.Code)
}

func TestSearchHappyPath(t *testing.T) {
	execute := &fakeStage{name: types.StageGeneration, run: func(
		ctx context.Context, sc *types.SearchContext, next func() *types.StageError,
	) *types.StageError {
		sc.ResolvedCollectionID = "c1"
		sc.RewrittenQuery = "rewritten"
		sc.QueryResults = []types.ScoredChunk{chunkWithDoc("ch1", "doc1", 3, 0.9)}
		sc.GeneratedAnswer = "Paris is is the capital of France."
		return next()
	}}
	svc := New(pipeline.New(execute), &fakeDocuments{names: map[string]string{"doc1": "france.txt"}}, nil, nil, nil)

	out, err := svc.Search(context.Background(), types.SearchInput{Question: "capital of France?", CollectionID: "c1"})
	require.NoError(t, err)
	require.Len(t, out.Documents, 1)
	assert.Equal(t, "france.txt", out.Documents[0].DocumentName)
	assert.Equal(t, []int{3}, out.Documents[0].PageNumbers)
	assert.Contains(t, out.Answer, "Paris is the capital of France.")
}

func TestAssembleDocumentsFailsOnUnknownDocument(t *testing.T) {
	svc := New(pipeline.New(), &fakeDocuments{names: map[string]string{}}, nil, nil, nil)
	sc := types.NewSearchContext(types.SearchInput{})
	sc.QueryResults = []types.ScoredChunk{chunkWithDoc("ch1", "ghost-doc", 1, 0.5)}

	_, err := svc.assembleDocuments(context.Background(), sc)
	require.Error(t, err)
	ae, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrConfigurationInvalid, ae.Code)
}

func TestAssembleDocumentsOrdersByBestScoreThenID(t *testing.T) {
	svc := New(pipeline.New(), &fakeDocuments{names: map[string]string{"a": "A", "b": "B"}}, nil, nil, nil)
	sc := types.NewSearchContext(types.SearchInput{})
	sc.QueryResults = []types.ScoredChunk{
		chunkWithDoc("c1", "a", 1, 0.4),
		chunkWithDoc("c2", "b", 2, 0.9),
	}
	docs, err := svc.assembleDocuments(context.Background(), sc)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "b", docs[0].DocumentID)
	assert.Equal(t, "a", docs[1].DocumentID)
}

func TestCleanAnswerCollapsesDuplicateWords(t *testing.T) {
	assert.Equal(t, "Paris is the capital.", CleanAnswer("Paris Paris is is the capital."))
}

func TestCleanAnswerIsIdempotent(t *testing.T) {
	inputs := []string{
		"Paris Paris is is the capital.",
		"Yes and",
		"No documents found",
		"",
		"   ",
	}
	for _, in := range inputs {
		once := CleanAnswer(in)
		twice := CleanAnswer(once)
		assert.Equal(t, once, twice, "not idempotent for %q", in)
	}
}

func TestCleanAnswerStripsTrailingBooleanConnector(t *testing.T) {
	assert.Equal(t, "The answer is yes", CleanAnswer("The answer is yes and"))
}
