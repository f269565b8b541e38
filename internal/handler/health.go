package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fenwick-ai/ragengine/internal/config"
	"github.com/fenwick-ai/ragengine/internal/health"
	"github.com/fenwick-ai/ragengine/internal/types"
)

// HealthHandler exposes the dependency health framework over HTTP.
type HealthHandler struct {
	checker *health.Checker
	cfg     *config.Config
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(checker *health.Checker, cfg *config.Config) *HealthHandler {
	return &HealthHandler{checker: checker, cfg: cfg}
}

// SpecsFromConfig maps the health.services YAML entries onto ServiceSpecs.
func SpecsFromConfig(cfg *config.HealthConfig) []types.ServiceSpec {
	if cfg == nil {
		return nil
	}
	specs := make([]types.ServiceSpec, 0, len(cfg.Services))
	for _, s := range cfg.Services {
		retry := types.DefaultRetryPolicy
		if s.RetryCount > 0 {
			retry.MaxAttempts = s.RetryCount
		}
		if s.RetryDelay > 0 {
			retry.InitialDelay = s.RetryDelay
		}
		if s.RetryStrategy != "" {
			retry.Strategy = types.RetryStrategy(s.RetryStrategy)
		}
		if s.RetryMaxDelay > 0 {
			retry.MaxDelay = s.RetryMaxDelay
		}
		if s.RetryJitter != nil {
			retry.Jitter = *s.RetryJitter
		}
		specs = append(specs, types.ServiceSpec{
			Name:      s.Name,
			CheckKind: types.ServiceCheckKind(s.CheckType),
			URL:       s.URL,
			Timeout:   s.Timeout,
			Retry:     retry,
			DeepCheck: s.DeepCheck,
		})
	}
	return specs
}

// CheckDependencies handles GET /system/health: probe every configured
// dependency and report the aggregate.
func (h *HealthHandler) CheckDependencies(c *gin.Context) {
	ctx := c.Request.Context()

	specs := SpecsFromConfig(h.cfg.Health)
	if len(specs) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    gin.H{"healthy": true, "services": gin.H{}},
		})
		return
	}

	deadline := 30 * time.Second
	if h.cfg.Health.OverallTimeout > 0 {
		deadline = h.cfg.Health.OverallTimeout
	}

	results := h.checker.CheckAll(ctx, specs, deadline)
	healthy := true
	for _, r := range results {
		if !r.Healthy {
			healthy = false
			break
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"success": healthy,
		"data": gin.H{
			"healthy":  healthy,
			"services": results,
		},
	})
}
