// Package rerank implements the reordering strategies the search pipeline's
// reranking stage chooses between, distinct from internal/models/rerank
// which only wraps a single cross-encoder model call.
package rerank

import (
	"context"
	"sort"

	"github.com/fenwick-ai/ragengine/internal/types"
)

// Reranker rescores chunks by relevance to query and returns the full set
// sorted by descending score: one output per input, never fewer. Every
// implementation returns chunks through ScoredChunk.WithScore so the
// score-consistency invariant holds. Selection (top-k, threshold) happens
// in SelectTopK, not inside a strategy.
type Reranker interface {
	Rerank(ctx context.Context, query string, chunks []types.ScoredChunk) ([]types.ScoredChunk, error)
}

func sortByScoreDesc(chunks []types.ScoredChunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Score() > chunks[j].Score()
	})
}

// SelectTopK picks the final result set from a rescored chunk list. Chunks
// scoring above threshold are preferred; when they alone cannot fill every
// slot, the remaining slots are filled from the rest of the sorted set, so
// the output length is always min(topK, len(chunks)) when topK > 0 and
// len(chunks) otherwise — a low threshold never shrinks the result below
// what the caller asked for. Output stays sorted by descending score.
func SelectTopK(chunks []types.ScoredChunk, topK int, threshold float64) []types.ScoredChunk {
	sorted := make([]types.ScoredChunk, len(chunks))
	copy(sorted, chunks)
	sortByScoreDesc(sorted)

	limit := len(sorted)
	if topK > 0 && topK < limit {
		limit = topK
	}

	out := make([]types.ScoredChunk, 0, limit)
	var rest []types.ScoredChunk
	for _, c := range sorted {
		if c.Score() > threshold {
			if len(out) < limit {
				out = append(out, c)
			}
			continue
		}
		rest = append(rest, c)
	}
	for _, c := range rest {
		if len(out) >= limit {
			break
		}
		out = append(out, c)
	}
	return out
}
