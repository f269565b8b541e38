package health

import (
	"time"

	"github.com/fenwick-ai/ragengine/internal/types"
)

// RunnerProfile names a performance tier used to scale a ServiceSpec's
// base timeout via a fixed multiplier/cap table.
type RunnerProfile string

const (
	ProfileFast     RunnerProfile = "fast"
	ProfileStandard RunnerProfile = "standard"
	ProfileSlow     RunnerProfile = "slow"
)

type profileScale struct {
	multiplier float64
	maxTimeout time.Duration
}

var profileScales = map[RunnerProfile]profileScale{
	ProfileFast:     {multiplier: 0.5, maxTimeout: 60 * time.Second},
	ProfileStandard: {multiplier: 1.0, maxTimeout: 120 * time.Second},
	ProfileSlow:     {multiplier: 2.0, maxTimeout: 300 * time.Second},
}

// AdaptiveTimeout scales a spec's base timeout by the runner profile and
// caps it at the profile's ceiling.
func AdaptiveTimeout(spec types.ServiceSpec, profile RunnerProfile) types.ServiceSpec {
	scale, ok := profileScales[profile]
	if !ok {
		scale = profileScales[ProfileStandard]
	}
	adapted := time.Duration(float64(spec.Timeout) * scale.multiplier)
	if adapted > scale.maxTimeout {
		adapted = scale.maxTimeout
	}
	spec.Timeout = adapted
	return spec
}
