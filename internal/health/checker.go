// Package health runs parallel, retrying health probes against the
// services a pipeline depends on (vector store, database, LLM provider),
// gating readiness the way a CI pipeline gates test runs on service
// startup instead of a fixed sleep.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/fenwick-ai/ragengine/internal/logger"
	"github.com/fenwick-ai/ragengine/internal/types"
	"golang.org/x/sync/errgroup"
)

// Checker runs ServiceSpec probes in parallel with retry and deep-check
// support.
type Checker struct {
	client  *http.Client
	deep    *DeepChecker
	profile RunnerProfile
}

// NewChecker builds a Checker. profile scales every spec's timeout via
// AdaptiveTimeout before probing it.
func NewChecker(profile RunnerProfile) *Checker {
	client := &http.Client{}
	return &Checker{client: client, deep: NewDeepChecker(client), profile: profile}
}

// CheckAll probes every spec in parallel, bounded to at most 10
// concurrent checks, and returns once all probes finish or deadline
// elapses. Checks still running at the deadline are reported
// healthy=false, TimeoutExceeded=true rather than synthesized as passing.
func (c *Checker) CheckAll(ctx context.Context, specs []types.ServiceSpec, deadline time.Duration) map[string]types.HealthResult {
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	results := make(map[string]types.HealthResult, len(specs))
	var mu sync.Mutex

	limit := len(specs)
	if limit > 10 {
		limit = 10
	}

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for _, spec := range specs {
		spec := spec
		g.Go(func() error {
			result := c.runCheck(ctx, spec)
			mu.Lock()
			results[spec.Name] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for _, spec := range specs {
		if _, ok := results[spec.Name]; !ok {
			results[spec.Name] = types.HealthResult{
				Name: spec.Name, Healthy: false,
				Error: "overall timeout", TimeoutExceeded: true,
			}
		}
	}
	return results
}

// runCheck retries a single spec per its RetryPolicy until it succeeds,
// hits a terminal status, exhausts its attempts, or the overall deadline
// fires.
func (c *Checker) runCheck(ctx context.Context, spec types.ServiceSpec) types.HealthResult {
	spec = AdaptiveTimeout(spec, c.profile)
	policy := spec.Retry
	if policy.MaxAttempts == 0 {
		policy = types.DefaultRetryPolicy
	}

	var last probeResult
	attempt := 0
	for ; attempt < policy.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return types.HealthResult{
				Name: spec.Name, Healthy: false,
				Error: "overall timeout", TimeoutExceeded: true, RetryAttempts: attempt,
			}
		}

		checkCtx, cancel := context.WithTimeout(ctx, spec.Timeout)
		start := time.Now()
		last = probe(checkCtx, c.client, spec)
		elapsed := time.Since(start)
		cancel()

		if last.healthy || isTerminal(last.statusCode) {
			result := types.HealthResult{
				Name: spec.Name, Healthy: last.healthy,
				ResponseTime: elapsed, StatusCode: last.statusCode, RetryAttempts: attempt,
			}
			if last.err != nil {
				result.Error = last.err.Error()
			}
			return c.deep.Verify(ctx, spec, result)
		}

		logger.Warnf(ctx, "health check %s attempt %d failed: %v", spec.Name, attempt, last.err)
		if attempt < policy.MaxAttempts-1 {
			if err := sleep(ctx, backoff(policy, attempt)); err != nil {
				break
			}
		}
	}

	if ctx.Err() != nil {
		return types.HealthResult{
			Name: spec.Name, Healthy: false, StatusCode: last.statusCode,
			Error: "overall timeout", TimeoutExceeded: true, RetryAttempts: attempt,
		}
	}

	result := types.HealthResult{Name: spec.Name, Healthy: false, RetryAttempts: attempt, StatusCode: last.statusCode}
	if last.err != nil {
		result.Error = last.err.Error()
	}
	return result
}
