// Package enrich implements the Content Enricher pattern: optional,
// non-blocking tool calls that attach metadata to a search result without
// ever modifying the core retrieved chunks or generated answer.
package enrich

import (
	"context"
	"sync"
	"time"

	"github.com/fenwick-ai/ragengine/internal/config"
	"github.com/fenwick-ai/ragengine/internal/logger"
	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/panjf2000/ants/v2"
)

// ToolInvoker is the external tool-gateway capability this package calls
// out to, treated as an out-of-process collaborator behind an interface.
type ToolInvoker interface {
	InvokeTool(ctx context.Context, toolName string, args map[string]any) (ToolResult, error)
	// ListTools discovers what the gateway offers, used when neither the
	// request nor the config names a tool set.
	ListTools(ctx context.Context) ([]string, error)
}

// ToolResult is one tool invocation's outcome.
type ToolResult struct {
	Success bool
	Data    map[string]any
	Error   string
}

// ToolInvocation is a ToolResult plus bookkeeping, the unit this package
// records per tool call.
type ToolInvocation struct {
	ToolName        string         `json:"name"`
	Success         bool           `json:"success"`
	Data            map[string]any `json:"data,omitempty"`
	Error           string         `json:"error,omitempty"`
	ExecutionTimeMS int64          `json:"execution_time_ms"`
}

// Enricher runs ToolInvoker calls in parallel (bounded by an ants.Pool
// semaphore) or sequentially, merging results into SearchContext.Metadata
// without ever touching QueryResults or GeneratedAnswer.
type Enricher struct {
	invoker ToolInvoker
	pool    *ants.Pool
	cfg     *config.EnrichmentConfig
}

func NewEnricher(invoker ToolInvoker, pool *ants.Pool, cfg *config.EnrichmentConfig) *Enricher {
	return &Enricher{invoker: invoker, pool: pool, cfg: cfg}
}

// parallel reports whether tools run concurrently; on unless the config
// explicitly turns it off or no pool was wired.
func (e *Enricher) parallel() bool {
	if e.pool == nil {
		return false
	}
	return e.cfg == nil || e.cfg.Parallel == nil || *e.cfg.Parallel
}

// failSilently reports whether tool failures stay at warn level; on unless
// the config explicitly turns it off.
func (e *Enricher) failSilently() bool {
	return e.cfg == nil || e.cfg.FailSilently == nil || *e.cfg.FailSilently
}

// markUnavailable records the skip marker without touching anything else.
func (e *Enricher) markUnavailable(sc *types.SearchContext, reason string) {
	sc.Metadata["mcp_enrichment"] = map[string]any{
		"enabled": true,
		"success": false,
		"error":   reason,
	}
}

// Enrich runs tools against sc and merges a summary into
// sc.Metadata["mcp_enrichment"]. A disabled config is a no-op; a missing
// gateway or failed discovery leaves a skip marker instead. Tool
// resolution order: the caller's list, then the configured list, then
// gateway discovery. Enrichment is a quality add-on, never a
// search-correctness requirement — it only ever writes the metadata key.
func (e *Enricher) Enrich(ctx context.Context, sc *types.SearchContext, tools []string) {
	if e.cfg == nil || !e.cfg.Enabled {
		return
	}
	if e.invoker == nil {
		e.markUnavailable(sc, "tool gateway not configured")
		return
	}

	if len(tools) == 0 {
		tools = e.cfg.Tools
	}
	if len(tools) == 0 {
		discovered, err := e.invoker.ListTools(ctx)
		if err != nil {
			logger.Warnf(ctx, "enrichment tool discovery failed: %v", err)
			e.markUnavailable(sc, "tool discovery failed: "+err.Error())
			return
		}
		tools = discovered
	}
	if len(tools) == 0 {
		e.markUnavailable(sc, "no enrichment tools available")
		return
	}

	start := time.Now()
	var results []ToolInvocation
	if e.parallel() {
		results = e.enrichParallel(ctx, sc, tools)
	} else {
		results = e.enrichSequential(ctx, sc, tools)
	}

	success := false
	firstErr := ""
	for _, r := range results {
		if r.Success {
			success = true
		} else if firstErr == "" && r.Error != "" {
			firstErr = r.Error
		}
	}

	summary := map[string]any{
		"enabled":           true,
		"success":           success,
		"execution_time_ms": time.Since(start).Milliseconds(),
		"tools":             results,
	}
	if firstErr != "" && !e.failSilently() {
		summary["error"] = firstErr
	}
	sc.Metadata["mcp_enrichment"] = summary
}

func (e *Enricher) enrichParallel(ctx context.Context, sc *types.SearchContext, tools []string) []ToolInvocation {
	results := make([]ToolInvocation, len(tools))
	var wg sync.WaitGroup
	for i, tool := range tools {
		i, tool := i, tool
		wg.Add(1)
		err := e.pool.Submit(func() {
			defer wg.Done()
			results[i] = e.invoke(ctx, sc, tool)
		})
		if err != nil {
			wg.Done()
			results[i] = ToolInvocation{ToolName: tool, Error: err.Error()}
		}
	}
	wg.Wait()
	return results
}

func (e *Enricher) enrichSequential(ctx context.Context, sc *types.SearchContext, tools []string) []ToolInvocation {
	results := make([]ToolInvocation, 0, len(tools))
	for _, tool := range tools {
		results = append(results, e.invoke(ctx, sc, tool))
	}
	return results
}

func (e *Enricher) invoke(ctx context.Context, sc *types.SearchContext, tool string) ToolInvocation {
	start := time.Now()
	args := toolArguments(sc)
	result, err := e.invoker.InvokeTool(ctx, tool, args)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		if e.failSilently() {
			logger.Warnf(ctx, "enrichment tool %s failed: %v", tool, err)
		} else {
			logger.Errorf(ctx, "enrichment tool %s failed: %v", tool, err)
		}
		return ToolInvocation{ToolName: tool, Success: false, Error: err.Error(), ExecutionTimeMS: elapsed}
	}
	return ToolInvocation{
		ToolName: tool, Success: result.Success, Data: result.Data, Error: result.Error,
		ExecutionTimeMS: elapsed,
	}
}

func toolArguments(sc *types.SearchContext) map[string]any {
	chunks := sc.QueryResults
	if len(chunks) > 5 {
		chunks = chunks[:5]
	}
	texts := make([]map[string]any, len(chunks))
	for i, c := range chunks {
		text := c.Chunk.Text
		if len(text) > 500 {
			text = text[:500]
		}
		texts[i] = map[string]any{"text": text, "score": c.Score()}
	}
	return map[string]any{
		"query":  sc.RewrittenQuery,
		"answer": sc.GeneratedAnswer,
		"chunks": texts,
	}
}
