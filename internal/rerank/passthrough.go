package rerank

import (
	"context"

	"github.com/fenwick-ai/ragengine/internal/types"
)

// PassthroughReranker reorders by the score chunks already carry (e.g. the
// vector/keyword retrieval score), treating an unset score as zero rather
// than rejecting the chunk.
type PassthroughReranker struct{}

func NewPassthroughReranker() *PassthroughReranker { return &PassthroughReranker{} }

func (r *PassthroughReranker) Rerank(_ context.Context, _ string, chunks []types.ScoredChunk) ([]types.ScoredChunk, error) {
	out := make([]types.ScoredChunk, len(chunks))
	copy(out, chunks)
	sortByScoreDesc(out)
	return out, nil
}
