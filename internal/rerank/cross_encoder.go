package rerank

import (
	"context"

	"github.com/fenwick-ai/ragengine/internal/models/rerank"
	"github.com/fenwick-ai/ragengine/internal/types"
)

// CrossEncoderReranker delegates scoring to a single rerank-model forward
// pass (internal/models/rerank). Every input chunk comes back rescored; a
// chunk the model returned no score for keeps its original one.
type CrossEncoderReranker struct {
	model rerank.Reranker
}

func NewCrossEncoderReranker(model rerank.Reranker) *CrossEncoderReranker {
	return &CrossEncoderReranker{model: model}
}

func (r *CrossEncoderReranker) Rerank(ctx context.Context, query string, chunks []types.ScoredChunk) ([]types.ScoredChunk, error) {
	passages := make([]string, len(chunks))
	for i, c := range chunks {
		passages[i] = c.Chunk.Text
	}

	results, err := r.model.Rerank(ctx, query, passages)
	if err != nil {
		return nil, err
	}

	out := make([]types.ScoredChunk, len(chunks))
	copy(out, chunks)
	for _, res := range results {
		if res.Index < 0 || res.Index >= len(chunks) {
			continue
		}
		out[res.Index] = chunks[res.Index].WithScore(res.RelevanceScore)
	}
	sortByScoreDesc(out)
	return out, nil
}
