// Package search implements the public search entry point: it wraps
// a pipeline.Pipeline with the request-level concerns the pipeline itself
// doesn't own — input validation, document-metadata assembly, answer
// clean-up, and the optional evaluation pass. Conventions follow the
// application/service layer: constructor-injected dependencies,
// logger.Infof narration, errors.NewXError returns at the service boundary.
package search

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fenwick-ai/ragengine/internal/config"
	"github.com/fenwick-ai/ragengine/internal/enrich"
	apperrors "github.com/fenwick-ai/ragengine/internal/errors"
	"github.com/fenwick-ai/ragengine/internal/logger"
	"github.com/fenwick-ai/ragengine/internal/pipeline"
	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/fenwick-ai/ragengine/internal/types/interfaces"
)

// Service is the public search entry point.
type Service struct {
	pipeline  *pipeline.Pipeline
	documents interfaces.DocumentMetadataLookup
	evaluator interfaces.Evaluator // nil disables step 7 regardless of cfg
	enricher  *enrich.Enricher     // nil disables the optional MCP enrichment pass
	cfg       *config.SearchConfig
}

// New builds a search Service. evaluator and enricher may be nil when not
// wired; both are always optional.
func New(
	p *pipeline.Pipeline, documents interfaces.DocumentMetadataLookup,
	evaluator interfaces.Evaluator, enricher *enrich.Enricher, cfg *config.SearchConfig,
) *Service {
	return &Service{pipeline: p, documents: documents, evaluator: evaluator, enricher: enricher, cfg: cfg}
}

func (s *Service) maxQuestionLength() int {
	if s.cfg != nil && s.cfg.MaxQuestionLength > 0 {
		return s.cfg.MaxQuestionLength
	}
	return 2000
}

func (s *Service) requestDeadline() time.Duration {
	if s.cfg != nil && s.cfg.RequestDeadline > 0 {
		return s.cfg.RequestDeadline
	}
	return 30 * time.Second
}

// Search runs one search turn end to end.
func (s *Service) Search(ctx context.Context, input types.SearchInput) (*types.SearchOutput, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, apperrors.NewValidationError("question", "must not be empty")
	}
	if len(question) > s.maxQuestionLength() {
		return nil, apperrors.NewValidationError("question", "exceeds maximum length")
	}
	input.Question = question

	logger.Infof(ctx, "search: collection=%s pipeline=%s user=%s", input.CollectionID, input.PipelineID, input.UserID)

	ctx, cancel := context.WithTimeout(ctx, s.requestDeadline())
	defer cancel()

	sc := types.NewSearchContext(input)
	sc.Deadline = time.Now().Add(s.requestDeadline())

	if stageErr := s.pipeline.Execute(ctx, sc); stageErr != nil {
		return nil, mapStageError(stageErr)
	}

	documents, err := s.assembleDocuments(ctx, sc)
	if err != nil {
		return nil, err
	}

	answer := CleanAnswer(sc.GeneratedAnswer)

	if s.enricher != nil {
		s.enricher.Enrich(ctx, sc, enrichmentTools(input))
	}

	var evaluation *types.EvaluationReport
	if s.evaluator != nil && wantsEvaluation(input) {
		evaluation, err = s.evaluator.Evaluate(ctx, sc)
		if err != nil {
			logger.Warnf(ctx, "search: evaluation failed, continuing without it: %v", err)
			evaluation = &types.EvaluationReport{Error: err.Error()}
		}
	}

	return &types.SearchOutput{
		Answer:          answer,
		Documents:       documents,
		QueryResults:    sc.QueryResults,
		RewrittenQuery:  sc.RewrittenQuery,
		Evaluation:      evaluation,
		ExecutionTimeMS: sc.ExecutionTimeMS,
		CoT:             sc.CoT,
		Metadata:        sc.Metadata,
		TokenWarning:    sc.TokenWarning,
	}, nil
}

func wantsEvaluation(input types.SearchInput) bool {
	return input.Metadata != nil && input.Metadata.Extra != nil && input.Metadata.Extra["evaluate"] == true
}

// enrichmentTools reads the caller-requested MCP tool names from the
// request's overflow metadata. An empty or absent list defers to the
// Enricher, which falls back to its configured tool set and then to
// gateway discovery.
func enrichmentTools(input types.SearchInput) []string {
	if input.Metadata == nil || input.Metadata.Extra == nil {
		return nil
	}
	raw, ok := input.Metadata.Extra["mcp_tools"].([]any)
	if !ok {
		if strs, ok := input.Metadata.Extra["mcp_tools"].([]string); ok {
			return strs
		}
		return nil
	}
	tools := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			tools = append(tools, s)
		}
	}
	return tools
}

// mapStageError translates a fatal pipeline StageError into the public
// error taxonomy; recoverable errors never reach here, only fatal
// ones abort Execute.
func mapStageError(stageErr *types.StageError) error {
	if ae, ok := stageErr.Err.(*apperrors.AppError); ok {
		return ae
	}
	if errors.Is(stageErr.Err, context.DeadlineExceeded) {
		return apperrors.NewCancellationError(true)
	}
	if errors.Is(stageErr.Err, context.Canceled) {
		return apperrors.NewCancellationError(false)
	}
	if stageErr.Stage == types.StagePipelineResolution {
		switch stageErr.Message {
		case "RAG template resolution failed":
			return apperrors.NewConfigurationError("no RAG prompt template configured for this pipeline")
		default:
			// Collection lookup, access denial, and pipeline lookup all
			// surface as NotFound: access is never distinguished from
			// absence.
			return apperrors.NewNotFoundError(stageErr.Message)
		}
	}
	return apperrors.NewInternalServerError(stageErr.Error())
}
