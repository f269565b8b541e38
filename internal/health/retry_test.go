package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fenwick-ai/ragengine/internal/types"
)

func TestRetryPolicyExponentialDelaySequence(t *testing.T) {
	policy := types.RetryPolicy{
		Strategy:     types.RetryExponential,
		InitialDelay: time.Second,
		Multiplier:   2,
	}

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}
	for attempt, expected := range want {
		assert.Equal(t, expected, policy.Delay(attempt), "attempt %d", attempt)
	}
}

func TestRetryPolicyLinearDelaySequence(t *testing.T) {
	policy := types.RetryPolicy{
		Strategy:     types.RetryLinear,
		InitialDelay: time.Second,
		Multiplier:   0.5,
	}

	want := []time.Duration{time.Second, 1500 * time.Millisecond, 2 * time.Second, 2500 * time.Millisecond}
	for attempt, expected := range want {
		assert.Equal(t, expected, policy.Delay(attempt), "attempt %d", attempt)
	}
}

func TestRetryPolicyFixedDelaySequence(t *testing.T) {
	policy := types.RetryPolicy{
		Strategy:     types.RetryFixed,
		InitialDelay: 750 * time.Millisecond,
		Multiplier:   3,
	}

	for attempt := 0; attempt < 4; attempt++ {
		assert.Equal(t, 750*time.Millisecond, policy.Delay(attempt), "attempt %d", attempt)
	}
}

func TestRetryPolicyClampsToMaxDelay(t *testing.T) {
	policy := types.RetryPolicy{
		Strategy:     types.RetryExponential,
		InitialDelay: time.Second,
		Multiplier:   10,
		MaxDelay:     5 * time.Second,
	}

	assert.Equal(t, time.Second, policy.Delay(0))
	assert.Equal(t, 5*time.Second, policy.Delay(1))
	assert.Equal(t, 5*time.Second, policy.Delay(3))
}

func TestRetryPolicyEmptyStrategyDefaultsToExponential(t *testing.T) {
	policy := types.RetryPolicy{InitialDelay: time.Second, Multiplier: 2}
	assert.Equal(t, 4*time.Second, policy.Delay(2))
}

func TestBackoffWithoutJitterIsDeterministic(t *testing.T) {
	policy := types.RetryPolicy{
		Strategy:     types.RetryFixed,
		InitialDelay: time.Second,
	}

	for i := 0; i < 5; i++ {
		assert.Equal(t, time.Second, backoff(policy, i))
	}
}

func TestBackoffJitterStaysInBand(t *testing.T) {
	policy := types.RetryPolicy{
		Strategy:     types.RetryFixed,
		InitialDelay: time.Second,
		Jitter:       true,
	}

	for i := 0; i < 50; i++ {
		d := backoff(policy, i)
		assert.GreaterOrEqual(t, d, 800*time.Millisecond)
		assert.LessOrEqual(t, d, 1200*time.Millisecond)
	}
}
