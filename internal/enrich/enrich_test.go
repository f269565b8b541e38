package enrich

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/fenwick-ai/ragengine/internal/config"
	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInvoker struct {
	mu      sync.Mutex
	calls   []string
	results map[string]ToolResult
	err     map[string]error
	tools   []string
	listErr error
}

func (f *fakeInvoker) InvokeTool(_ context.Context, tool string, _ map[string]any) (ToolResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, tool)
	f.mu.Unlock()
	if err, ok := f.err[tool]; ok {
		return ToolResult{}, err
	}
	return f.results[tool], nil
}

func (f *fakeInvoker) ListTools(context.Context) ([]string, error) {
	return f.tools, f.listErr
}

func newSearchContext() *types.SearchContext {
	return &types.SearchContext{
		Metadata: make(map[string]any),
		QueryResults: []types.ScoredChunk{
			types.NewScoredChunk(types.DocumentChunk{ID: "a", Text: "alpha"}, 0.9),
		},
	}
}

func TestEnrichDisabledIsNoop(t *testing.T) {
	sc := newSearchContext()
	e := NewEnricher(&fakeInvoker{}, nil, &config.EnrichmentConfig{Enabled: false})
	e.Enrich(context.Background(), sc, []string{"summarizer"})
	assert.NotContains(t, sc.Metadata, "mcp_enrichment")
}

func TestEnrichSequentialMergesResults(t *testing.T) {
	sc := newSearchContext()
	invoker := &fakeInvoker{results: map[string]ToolResult{
		"summarizer": {Success: true, Data: map[string]any{"summary": "ok"}},
	}}
	e := NewEnricher(invoker, nil, &config.EnrichmentConfig{Enabled: true})
	e.Enrich(context.Background(), sc, []string{"summarizer"})

	summary, ok := sc.Metadata["mcp_enrichment"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, summary["success"])
	tools, ok := summary["tools"].([]ToolInvocation)
	require.True(t, ok)
	require.Len(t, tools, 1)
	assert.Equal(t, "summarizer", tools[0].ToolName)
	assert.True(t, tools[0].Success)
}

func TestEnrichParallelIsolatesToolFailure(t *testing.T) {
	sc := newSearchContext()
	invoker := &fakeInvoker{
		results: map[string]ToolResult{"good": {Success: true}},
		err:     map[string]error{"bad": fmt.Errorf("tool unavailable")},
	}
	pool, err := ants.NewPool(4)
	require.NoError(t, err)
	defer pool.Release()

	e := NewEnricher(invoker, pool, &config.EnrichmentConfig{Enabled: true, MaxConcurrency: 4})
	e.Enrich(context.Background(), sc, []string{"good", "bad"})

	summary := sc.Metadata["mcp_enrichment"].(map[string]any)
	assert.Equal(t, true, summary["success"])
	tools := summary["tools"].([]ToolInvocation)
	require.Len(t, tools, 2)

	var sawFailure bool
	for _, inv := range tools {
		if inv.ToolName == "bad" {
			sawFailure = true
			assert.False(t, inv.Success)
			assert.NotEmpty(t, inv.Error)
		}
	}
	assert.True(t, sawFailure)
}

func TestEnrichChunksBoundsConcurrency(t *testing.T) {
	var inFlight int32
	var maxInFlight int32

	slowInvoker := toolInvokerFunc(func(_ context.Context, _ string, _ map[string]any) (ToolResult, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			cur := atomic.LoadInt32(&maxInFlight)
			if n <= cur || atomic.CompareAndSwapInt32(&maxInFlight, cur, n) {
				break
			}
		}
		atomic.AddInt32(&inFlight, -1)
		return ToolResult{Success: true}, nil
	})

	pool, err := ants.NewPool(2)
	require.NoError(t, err)
	defer pool.Release()

	e := NewEnricher(slowInvoker, pool, &config.EnrichmentConfig{Enabled: true, MaxConcurrency: 2})
	chunks := make([]types.ScoredChunk, 10)
	for i := range chunks {
		chunks[i] = types.NewScoredChunk(types.DocumentChunk{ID: fmt.Sprintf("c%d", i), Text: "x"}, 0.5)
	}

	results := e.EnrichChunks(context.Background(), chunks, "summarizer", nil)
	require.Len(t, results, 10)
	for _, r := range results {
		assert.True(t, r.Invocation.Success)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&maxInFlight), int32(2))
}

type toolInvokerFunc func(ctx context.Context, tool string, args map[string]any) (ToolResult, error)

func (f toolInvokerFunc) InvokeTool(ctx context.Context, tool string, args map[string]any) (ToolResult, error) {
	return f(ctx, tool, args)
}

func (f toolInvokerFunc) ListTools(context.Context) ([]string, error) {
	return nil, nil
}

func boolPtr(b bool) *bool { return &b }

func TestEnrichMissingGatewayLeavesSkipMarker(t *testing.T) {
	sc := newSearchContext()
	e := NewEnricher(nil, nil, &config.EnrichmentConfig{Enabled: true})
	e.Enrich(context.Background(), sc, []string{"summarizer"})

	summary := sc.Metadata["mcp_enrichment"].(map[string]any)
	assert.Equal(t, true, summary["enabled"])
	assert.Equal(t, false, summary["success"])
	assert.NotEmpty(t, summary["error"])
}

func TestEnrichFallsBackToConfiguredTools(t *testing.T) {
	sc := newSearchContext()
	invoker := &fakeInvoker{results: map[string]ToolResult{
		"summarizer": {Success: true},
	}}
	e := NewEnricher(invoker, nil, &config.EnrichmentConfig{Enabled: true, Tools: []string{"summarizer"}})
	e.Enrich(context.Background(), sc, nil)

	assert.Equal(t, []string{"summarizer"}, invoker.calls)
	summary := sc.Metadata["mcp_enrichment"].(map[string]any)
	assert.Equal(t, true, summary["success"])
}

func TestEnrichDiscoversToolsFromGateway(t *testing.T) {
	sc := newSearchContext()
	invoker := &fakeInvoker{
		tools:   []string{"summarizer", "entities"},
		results: map[string]ToolResult{"summarizer": {Success: true}, "entities": {Success: true}},
	}
	e := NewEnricher(invoker, nil, &config.EnrichmentConfig{Enabled: true})
	e.Enrich(context.Background(), sc, nil)

	assert.ElementsMatch(t, []string{"summarizer", "entities"}, invoker.calls)
	summary := sc.Metadata["mcp_enrichment"].(map[string]any)
	assert.Equal(t, true, summary["success"])
}

func TestEnrichDiscoveryFailureLeavesSkipMarker(t *testing.T) {
	sc := newSearchContext()
	invoker := &fakeInvoker{listErr: fmt.Errorf("gateway down")}
	e := NewEnricher(invoker, nil, &config.EnrichmentConfig{Enabled: true})
	e.Enrich(context.Background(), sc, nil)

	summary := sc.Metadata["mcp_enrichment"].(map[string]any)
	assert.Equal(t, false, summary["success"])
	assert.Contains(t, summary["error"], "discovery failed")
	assert.Empty(t, invoker.calls)
}

func TestEnrichSequentialModeRunsToolsInOrder(t *testing.T) {
	sc := newSearchContext()
	invoker := &fakeInvoker{results: map[string]ToolResult{
		"first": {Success: true}, "second": {Success: true}, "third": {Success: true},
	}}
	pool, err := ants.NewPool(4)
	require.NoError(t, err)
	defer pool.Release()

	// A pool is wired, but parallel=false must force sequential execution
	// in the given order.
	e := NewEnricher(invoker, pool, &config.EnrichmentConfig{Enabled: true, Parallel: boolPtr(false)})
	e.Enrich(context.Background(), sc, []string{"first", "second", "third"})

	assert.Equal(t, []string{"first", "second", "third"}, invoker.calls)
}

func TestEnrichLoudFailureSurfacesErrorInSummary(t *testing.T) {
	sc := newSearchContext()
	invoker := &fakeInvoker{err: map[string]error{"bad": fmt.Errorf("tool exploded")}}
	e := NewEnricher(invoker, nil, &config.EnrichmentConfig{Enabled: true, FailSilently: boolPtr(false)})
	e.Enrich(context.Background(), sc, []string{"bad"})

	summary := sc.Metadata["mcp_enrichment"].(map[string]any)
	assert.Equal(t, false, summary["success"])
	assert.Contains(t, summary["error"], "tool exploded")
}
