package evaluate

import (
	"context"

	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/fenwick-ai/ragengine/internal/types/interfaces"
)

// CosineEvaluator scores a search turn by embedding the query, the answer,
// and every retrieved chunk, then combining cosine similarities:
// relevance, coherence, and faithfulness. Chunks with a nil/empty
// embedding are skipped rather than treated as zero-vectors, and
// reporting 0 for a component with no surviving inputs.
type CosineEvaluator struct {
	models interfaces.ModelService
}

// NewCosineEvaluator builds the cosine-mode evaluator.
func NewCosineEvaluator(models interfaces.ModelService) *CosineEvaluator {
	return &CosineEvaluator{models: models}
}

func (e *CosineEvaluator) Mode() types.EvaluationMode { return types.EvaluationModeCosine }

// Evaluate embeds query/answer/chunks against the pipeline's configured
// embedding model and reports relevance (mean cosine(query, chunk)),
// coherence (cosine(query, answer)), faithfulness (mean cosine(answer,
// chunk)), and overall (arithmetic mean of the three).
func (e *CosineEvaluator) Evaluate(ctx context.Context, sc *types.SearchContext) (*types.EvaluationReport, error) {
	if len(sc.QueryResults) == 0 {
		return &types.EvaluationReport{Mode: "cosine", Error: "No documents found"}, nil
	}

	embedder, err := e.models.GetEmbeddingModel(ctx, sc.PipelineConfig.EmbeddingModelID)
	if err != nil {
		return nil, err
	}

	query := sc.RewrittenQuery
	if query == "" {
		query = sc.Input.Question
	}
	queryVec, err := embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	answerVec, err := embedder.Embed(ctx, sc.GeneratedAnswer)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(sc.QueryResults))
	for i, c := range sc.QueryResults {
		texts[i] = c.Chunk.Text
	}
	chunkVecs, err := embedder.BatchEmbed(ctx, texts)
	if err != nil {
		return nil, err
	}

	var relevances, faithfulnesses []float64
	for _, cv := range chunkVecs {
		if len(cv) == 0 {
			continue // skip, not zero-vector
		}
		relevances = append(relevances, cosineSimilarity(queryVec, cv))
		faithfulnesses = append(faithfulnesses, cosineSimilarity(answerVec, cv))
	}

	relevance := mean(relevances)
	faithfulness := mean(faithfulnesses)
	coherence := cosineSimilarity(queryVec, answerVec)
	overall := mean([]float64{relevance, coherence, faithfulness})

	return &types.EvaluationReport{
		Mode:         "cosine",
		Relevance:    relevance,
		Coherence:    coherence,
		Faithfulness: faithfulness,
		Overall:      overall,
	}, nil
}
