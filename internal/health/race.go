package health

import (
	"context"
	"net/http"

	"github.com/fenwick-ai/ragengine/internal/types"
)

// DeepChecker performs a second probe after an initial healthy result,
// catching the case where a service reports ready (HTTP 200) but hasn't
// finished initializing its own dependencies yet.
type DeepChecker struct {
	client *http.Client
}

func NewDeepChecker(client *http.Client) *DeepChecker {
	return &DeepChecker{client: client}
}

// Verify re-probes spec after an initial healthy result and flags a race
// condition if the follow-up probe disagrees.
func (d *DeepChecker) Verify(ctx context.Context, spec types.ServiceSpec, result types.HealthResult) types.HealthResult {
	if !result.Healthy || !spec.DeepCheck {
		return result
	}
	follow := probe(ctx, d.client, spec)
	if !follow.healthy {
		result.Healthy = false
		result.RaceDetected = true
		result.Error = "false positive detected: follow-up probe failed after initial success"
	}
	return result
}
