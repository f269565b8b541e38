package health

import (
	"context"
	"math/rand"
	"net/http"
	"time"

	"github.com/fenwick-ai/ragengine/internal/types"
)

// isTerminal reports whether a non-2xx/3xx statusCode should stop the
// retry loop rather than be retried. Connection and timeout errors (no
// status code) are always transient. 4xx other than 408/429 is treated as
// terminal, matching a caller misconfiguration rather than a transient
// service hiccup; 5xx and 408/429 are retried.
func isTerminal(statusCode int) bool {
	if statusCode == 0 {
		return false
	}
	if statusCode == http.StatusRequestTimeout || statusCode == http.StatusTooManyRequests {
		return false
	}
	return statusCode >= 400 && statusCode < 500
}

// backoff computes the delay before the given zero-based retry attempt,
// applying jitter in the 0.8-1.2x band when the policy enables it.
func backoff(policy types.RetryPolicy, attempt int) time.Duration {
	d := policy.Delay(attempt)
	if !policy.Jitter {
		return d
	}
	jitter := 0.8 + rand.Float64()*0.4
	return time.Duration(float64(d) * jitter)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
