package evaluate

import (
	"github.com/fenwick-ai/ragengine/internal/config"
	"github.com/fenwick-ai/ragengine/internal/types/interfaces"
)

// Build resolves config.EvaluationConfig.Mode to a concrete Evaluator.
// Cosine is the default when Mode is unset, since it needs no extra LLM
// round-trip and degrades gracefully when only an embedding model is
// configured.
func Build(cfg *config.EvaluationConfig, models interfaces.ModelService) interfaces.Evaluator {
	if cfg != nil && cfg.Mode == "llm_judge" {
		return NewLLMJudgeEvaluator(models)
	}
	return NewCosineEvaluator(models)
}
