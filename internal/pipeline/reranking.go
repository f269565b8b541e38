package pipeline

import (
	"context"

	"github.com/fenwick-ai/ragengine/internal/config"
	"github.com/fenwick-ai/ragengine/internal/rerank"
	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/fenwick-ai/ragengine/internal/types/interfaces"
	"github.com/panjf2000/ants/v2"
)

// RerankingStage reorders QueryResults through the configured
// internal/rerank strategy, retrying with less-processed query variants
// when the first pass returns nothing.
type RerankingStage struct {
	models    interfaces.ModelService
	templates interfaces.PromptTemplateRepository
	pool      *ants.Pool
	cfg       *config.RerankConfig
}

// NewRerankingStage builds the reranking stage.
func NewRerankingStage(
	models interfaces.ModelService, templates interfaces.PromptTemplateRepository, pool *ants.Pool, cfg *config.RerankConfig,
) *RerankingStage {
	return &RerankingStage{models: models, templates: templates, pool: pool, cfg: cfg}
}

func (s *RerankingStage) Name() types.StageName { return types.StageReranking }

func (s *RerankingStage) Run(
	ctx context.Context, sc *types.SearchContext, next func() *types.StageError,
) *types.StageError {
	if len(sc.QueryResults) == 0 || s.cfg == nil {
		return next()
	}
	if s.cfg.Strategy != rerank.StrategyPassthrough && s.cfg.Strategy != rerank.StrategyLLMJudge && s.cfg.DefaultModelID == "" {
		return next()
	}

	reranker, err := rerank.Build(ctx, s.cfg, s.models, s.templates, s.pool)
	if err != nil {
		// Reranking is a quality improvement, not a correctness requirement:
		// fall through to the raw retrieval order rather than failing the
		// whole request.
		return next()
	}

	queries := []string{sc.RewrittenQuery, sc.Input.Question}
	var reordered []types.ScoredChunk
	for _, q := range queries {
		if q == "" {
			continue
		}
		reordered, err = reranker.Rerank(ctx, q, sc.QueryResults)
		if err == nil && len(reordered) > 0 {
			break
		}
	}
	if len(reordered) == 0 {
		return next()
	}

	// Above-threshold chunks win the top-k slots, but the threshold never
	// shrinks the result below min(TopK, len): low-scoring chunks fill any
	// slots left over.
	sc.QueryResults = rerank.SelectTopK(reordered, s.cfg.TopK, s.cfg.Threshold)
	return next()
}
