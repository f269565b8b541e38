// Package pipeline implements the search-request processing pipeline: a
// fixed ordered sequence of stages threaded through an onion-style
// middleware chain, each stage free to short-circuit the rest.
package pipeline

import (
	"context"
	"time"

	"github.com/fenwick-ai/ragengine/internal/types"
)

// Stage processes a SearchContext and calls next to continue the chain.
// A stage that returns without calling next short-circuits everything
// after it; next's return value should usually be propagated unchanged.
type Stage interface {
	Name() types.StageName
	Run(ctx context.Context, sc *types.SearchContext, next func() *types.StageError) *types.StageError
}

// Pipeline runs a fixed sequence of Stages over a SearchContext.
type Pipeline struct {
	stages []Stage
}

// New builds a pipeline from stages, in execution order.
func New(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// Execute runs every stage in order, recording per-stage timing and
// metadata on the SearchContext. A fatal StageError aborts the chain
// immediately; a recoverable one is recorded but execution continues,
// since a later stage (e.g. generation falling back to a canned
// response) may still be able to produce useful output.
func (p *Pipeline) Execute(ctx context.Context, sc *types.SearchContext) *types.StageError {
	chain := p.build(sc)
	return chain(ctx)
}

func (p *Pipeline) build(sc *types.SearchContext) func(context.Context) *types.StageError {
	var next func(context.Context) *types.StageError = func(context.Context) *types.StageError { return nil }
	for i := len(p.stages) - 1; i >= 0; i-- {
		stage := p.stages[i]
		prevNext := next
		next = func(ctx context.Context) *types.StageError {
			if err := ctx.Err(); err != nil {
				return p.cancellationError(stage.Name(), err)
			}
			start := time.Now()
			stageErr := stage.Run(ctx, sc, func() *types.StageError { return prevNext(ctx) })
			meta := types.StageMetadata{
				Stage:      stage.Name(),
				DurationMS: time.Since(start).Milliseconds(),
				Outcome:    "ok",
			}
			if stageErr != nil {
				sc.AppendError(stageErr)
				switch stageErr.Outcome() {
				case types.StageFatal:
					meta.Outcome = "fatal"
				default:
					meta.Outcome = "recoverable"
				}
				meta.ErrorMessage = stageErr.Error()
			}
			sc.AddStageMetadata(meta)
			if stageErr != nil && !stageErr.Fatal {
				// Recorded above; a recoverable error never aborts the
				// request once its stage has run.
				return nil
			}
			return stageErr
		}
	}
	return next
}

func (p *Pipeline) cancellationError(stage types.StageName, err error) *types.StageError {
	return &types.StageError{
		Stage:   stage,
		Err:     err,
		Fatal:   true,
		Message: "request cancelled before stage could run",
	}
}

// DefaultPipeline wires the six stages in spec order.
func DefaultPipeline(
	resolution, enhancement, retrieval, reranking, reasoning, generation Stage,
) *Pipeline {
	return New(resolution, enhancement, retrieval, reranking, reasoning, generation)
}
