package interfaces

import (
	"context"

	"github.com/fenwick-ai/ragengine/internal/types"
)

// Evaluator scores a completed search turn. Implementations provide
// one of the two modes named in types.EvaluationMode.
type Evaluator interface {
	Mode() types.EvaluationMode
	Evaluate(ctx context.Context, sctx *types.SearchContext) (*types.EvaluationReport, error)
}

// EvaluationJobStore persists and polls asynchronously queued evaluation
// runs (internal/evaluate async mode, backed by asynq).
type EvaluationJobStore interface {
	Enqueue(ctx context.Context, job *types.EvaluationJob) error
	Get(ctx context.Context, id string) (*types.EvaluationJob, error)
	Update(ctx context.Context, job *types.EvaluationJob) error
}
