package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenwick-ai/ragengine/internal/types"
)

type recordingStage struct {
	name  types.StageName
	calls *[]types.StageName
	run   func(ctx context.Context, sc *types.SearchContext, next func() *types.StageError) *types.StageError
}

func (s *recordingStage) Name() types.StageName { return s.name }
func (s *recordingStage) Run(
	ctx context.Context, sc *types.SearchContext, next func() *types.StageError,
) *types.StageError {
	*s.calls = append(*s.calls, s.name)
	if s.run != nil {
		return s.run(ctx, sc, next)
	}
	return next()
}

func TestExecuteRunsStagesInOrder(t *testing.T) {
	var calls []types.StageName
	p := New(
		&recordingStage{name: types.StagePipelineResolution, calls: &calls},
		&recordingStage{name: types.StageQueryEnhancement, calls: &calls},
		&recordingStage{name: types.StageRetrieval, calls: &calls},
	)

	sc := types.NewSearchContext(types.SearchInput{Question: "q"})
	require.Nil(t, p.Execute(context.Background(), sc))

	assert.Equal(t, []types.StageName{
		types.StagePipelineResolution, types.StageQueryEnhancement, types.StageRetrieval,
	}, calls)
	for _, name := range calls {
		meta, ok := sc.StageMetadata[name]
		require.True(t, ok, "missing metadata for %s", name)
		assert.Equal(t, "ok", meta.Outcome)
	}
}

func TestExecuteFatalErrorAbortsChain(t *testing.T) {
	var calls []types.StageName
	boom := errors.New("no such collection")
	p := New(
		&recordingStage{name: types.StagePipelineResolution, calls: &calls, run: func(
			ctx context.Context, sc *types.SearchContext, next func() *types.StageError,
		) *types.StageError {
			return &types.StageError{Stage: types.StagePipelineResolution, Err: boom, Fatal: true, Message: "resolution failed"}
		}},
		&recordingStage{name: types.StageRetrieval, calls: &calls},
	)

	sc := types.NewSearchContext(types.SearchInput{Question: "q"})
	stageErr := p.Execute(context.Background(), sc)

	require.NotNil(t, stageErr)
	assert.True(t, stageErr.Fatal)
	assert.Equal(t, []types.StageName{types.StagePipelineResolution}, calls)
	assert.Equal(t, "fatal", sc.StageMetadata[types.StagePipelineResolution].Outcome)
}

func TestExecuteRecoverableErrorContinues(t *testing.T) {
	var calls []types.StageName
	p := New(
		&recordingStage{name: types.StageQueryEnhancement, calls: &calls, run: func(
			ctx context.Context, sc *types.SearchContext, next func() *types.StageError,
		) *types.StageError {
			// The stage failed but the chain already ran: the executor must
			// record the error without failing the request.
			if err := next(); err != nil {
				return err
			}
			return &types.StageError{Stage: types.StageQueryEnhancement, Err: errors.New("rewrite failed"), Fatal: false, Message: "rewrite failed"}
		}},
		&recordingStage{name: types.StageRetrieval, calls: &calls},
	)

	sc := types.NewSearchContext(types.SearchInput{Question: "q"})
	require.Nil(t, p.Execute(context.Background(), sc))

	assert.Equal(t, []types.StageName{types.StageQueryEnhancement, types.StageRetrieval}, calls)
	require.Len(t, sc.Errors, 1)
	assert.Equal(t, "recoverable", sc.StageMetadata[types.StageQueryEnhancement].Outcome)
}

func TestExecuteCancelledContextStopsBeforeNextStage(t *testing.T) {
	var calls []types.StageName
	ctx, cancel := context.WithCancel(context.Background())
	p := New(
		&recordingStage{name: types.StagePipelineResolution, calls: &calls, run: func(
			ctx context.Context, sc *types.SearchContext, next func() *types.StageError,
		) *types.StageError {
			cancel()
			return next()
		}},
		&recordingStage{name: types.StageRetrieval, calls: &calls},
	)

	sc := types.NewSearchContext(types.SearchInput{Question: "q"})
	stageErr := p.Execute(ctx, sc)

	require.NotNil(t, stageErr)
	assert.ErrorIs(t, stageErr.Err, context.Canceled)
	assert.Equal(t, []types.StageName{types.StagePipelineResolution}, calls)
}

func TestGenerationApologizesWithoutDocuments(t *testing.T) {
	stage := NewGenerationStage(nil)
	sc := types.NewSearchContext(types.SearchInput{Question: "q"})
	sc.PipelineConfig = &types.PipelineConfig{}

	err := stage.Run(context.Background(), sc, func() *types.StageError { return nil })

	require.Nil(t, err)
	assert.Equal(t, NoDocumentsApology, sc.GeneratedAnswer)
}

func TestExecuteSetsStageTiming(t *testing.T) {
	var calls []types.StageName
	p := New(&recordingStage{name: types.StageRetrieval, calls: &calls, run: func(
		ctx context.Context, sc *types.SearchContext, next func() *types.StageError,
	) *types.StageError {
		time.Sleep(5 * time.Millisecond)
		return next()
	}})

	sc := types.NewSearchContext(types.SearchInput{Question: "q"})
	require.Nil(t, p.Execute(context.Background(), sc))
	assert.GreaterOrEqual(t, sc.StageMetadata[types.StageRetrieval].DurationMS, int64(5))
}
