package rerank

import (
	"context"
	"fmt"

	"github.com/fenwick-ai/ragengine/internal/config"
	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/fenwick-ai/ragengine/internal/types/interfaces"
	"github.com/panjf2000/ants/v2"
)

const (
	StrategyPassthrough  = "passthrough"
	StrategyLLMJudge     = "llm_judge"
	StrategyCrossEncoder = "cross_encoder"
)

// Build resolves the RerankConfig's strategy into a concrete Reranker.
// cross_encoder is the default when Strategy is empty, matching the
// usual always-on cross-encoder reranking behavior.
func Build(
	ctx context.Context, cfg *config.RerankConfig, models interfaces.ModelService,
	templates interfaces.PromptTemplateRepository, pool *ants.Pool,
) (Reranker, error) {
	switch cfg.Strategy {
	case StrategyPassthrough:
		return NewPassthroughReranker(), nil

	case StrategyLLMJudge:
		chatModel, err := models.GetChatModel(ctx, cfg.LLMProviderID)
		if err != nil {
			return nil, fmt.Errorf("resolve llm judge chat model: %w", err)
		}
		template, err := resolveRerankTemplate(ctx, templates, cfg.PromptTemplate)
		if err != nil {
			return nil, fmt.Errorf("resolve reranking prompt template: %w", err)
		}
		return NewLLMJudgeReranker(chatModel, template, pool, cfg.BatchSize, cfg.ScoreScale), nil

	default:
		model, err := models.GetRerankModel(ctx, cfg.DefaultModelID)
		if err != nil {
			return nil, fmt.Errorf("resolve cross encoder rerank model: %w", err)
		}
		return NewCrossEncoderReranker(model), nil
	}
}

func resolveRerankTemplate(
	ctx context.Context, templates interfaces.PromptTemplateRepository, id string,
) (*types.PromptTemplate, error) {
	if id != "" {
		return templates.Get(ctx, id)
	}
	return templates.GetDefault(ctx, types.PromptTemplateReranking)
}
