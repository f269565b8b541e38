package pipeline

import (
	"context"
	"errors"

	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/fenwick-ai/ragengine/internal/types/interfaces"
)

var errAccessDenied = errors.New("access denied")

// ResolutionStage resolves a SearchInput's loose identifiers (collection,
// pipeline, templates) into the concrete configuration the rest of the
// pipeline reads off SearchContext.
type ResolutionStage struct {
	collections interfaces.CollectionRepository
	pipelines   interfaces.PipelineConfigRepository
	templates   interfaces.PromptTemplateRepository
}

// NewResolutionStage builds the pipeline_resolution stage.
func NewResolutionStage(
	collections interfaces.CollectionRepository,
	pipelines interfaces.PipelineConfigRepository,
	templates interfaces.PromptTemplateRepository,
) *ResolutionStage {
	return &ResolutionStage{collections: collections, pipelines: pipelines, templates: templates}
}

func (s *ResolutionStage) Name() types.StageName { return types.StagePipelineResolution }

func (s *ResolutionStage) Run(
	ctx context.Context, sc *types.SearchContext, next func() *types.StageError,
) *types.StageError {
	collection, err := s.collections.Get(ctx, sc.Input.CollectionID)
	if err != nil {
		return &types.StageError{
			Stage: s.Name(), Err: err, Fatal: true,
			Message: "collection lookup failed",
		}
	}
	if !collection.CanAccess(sc.Input.UserID) {
		return &types.StageError{
			Stage: s.Name(), Err: errAccessDenied, Fatal: true,
			Message: "user is not authorized to search this collection",
		}
	}

	cfg, err := s.resolvePipelineConfig(ctx, sc)
	if err != nil {
		return &types.StageError{Stage: s.Name(), Err: err, Fatal: true, Message: "pipeline config resolution failed"}
	}

	ragTemplate, err := s.resolveTemplate(ctx, cfg.Config, "rag_template_id", types.PromptTemplateRAG)
	if err != nil {
		return &types.StageError{Stage: s.Name(), Err: err, Fatal: true, Message: "RAG template resolution failed"}
	}
	evalTemplate, err := s.resolveTemplate(ctx, cfg.Config, "evaluation_template_id", types.PromptTemplateEvaluation)
	if err != nil {
		// Evaluation is optional output; a missing template does not
		// abort the search, it only disables the evaluation stage later.
		evalTemplate = nil
	}

	sc.ResolvedUserID = sc.Input.UserID
	sc.ResolvedCollectionID = collection.ID
	sc.ResolvedPipelineID = cfg.ID
	sc.VectorCollectionName = collection.VectorDBName
	sc.PipelineConfig = cfg
	sc.RAGTemplate = ragTemplate
	sc.EvaluationTemplate = evalTemplate

	return next()
}

func (s *ResolutionStage) resolvePipelineConfig(ctx context.Context, sc *types.SearchContext) (*types.PipelineConfig, error) {
	if sc.Input.PipelineID != "" {
		return s.pipelines.Get(ctx, sc.Input.PipelineID)
	}
	return s.pipelines.GetDefaultForCollection(ctx, sc.Input.CollectionID)
}

func (s *ResolutionStage) resolveTemplate(
	ctx context.Context, cfg map[string]any, key string, kind types.PromptTemplateKind,
) (*types.PromptTemplate, error) {
	if cfg != nil {
		if id, ok := cfg[key].(string); ok && id != "" {
			return s.templates.Get(ctx, id)
		}
	}
	return s.templates.GetDefault(ctx, kind)
}
