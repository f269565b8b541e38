package enrich

import (
	"context"
	"sync"

	"github.com/fenwick-ai/ragengine/internal/logger"
	"github.com/fenwick-ai/ragengine/internal/types"
)

// ChunkEnrichment pairs one retrieved chunk with its tool-call result,
// used for per-chunk enrichment like summarization or entity extraction,
// as opposed to Enrich's whole-answer enrichment.
type ChunkEnrichment struct {
	Chunk      types.ScoredChunk
	Invocation ToolInvocation
}

// EnrichChunks runs one tool call per chunk, bounded by the Enricher's
// ants.Pool, isolating a single chunk's tool failure from the rest (the
// failing chunk gets a Success=false invocation, not an error that aborts
// the whole batch).
func (e *Enricher) EnrichChunks(
	ctx context.Context, chunks []types.ScoredChunk, tool string, extraArgs map[string]any,
) []ChunkEnrichment {
	if e.invoker == nil || len(chunks) == 0 {
		return nil
	}

	results := make([]ChunkEnrichment, len(chunks))
	run := func(i int, chunk types.ScoredChunk) {
		args := map[string]any{"text": chunk.Chunk.Text}
		for k, v := range extraArgs {
			args[k] = v
		}
		result, err := e.invoker.InvokeTool(ctx, tool, args)
		if err != nil {
			logger.Warnf(ctx, "per-chunk enrichment tool %s failed for chunk %s: %v", tool, chunk.Chunk.ID, err)
			results[i] = ChunkEnrichment{
				Chunk:      chunk,
				Invocation: ToolInvocation{ToolName: tool, Success: false, Error: err.Error()},
			}
			return
		}
		results[i] = ChunkEnrichment{
			Chunk: chunk,
			Invocation: ToolInvocation{
				ToolName: tool, Success: result.Success, Data: result.Data, Error: result.Error,
			},
		}
	}

	if !e.parallel() {
		for i, chunk := range chunks {
			run(i, chunk)
		}
		return results
	}

	var wg sync.WaitGroup
	for i, chunk := range chunks {
		i, chunk := i, chunk
		wg.Add(1)
		if err := e.pool.Submit(func() { defer wg.Done(); run(i, chunk) }); err != nil {
			wg.Done()
			run(i, chunk)
		}
	}
	wg.Wait()
	return results
}
