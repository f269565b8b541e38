package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckAllHealthyHTTPService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	checker := NewChecker(ProfileStandard)
	specs := []types.ServiceSpec{
		{Name: "api", CheckKind: types.CheckHTTP, URL: srv.URL, Timeout: time.Second, Retry: types.DefaultRetryPolicy},
	}

	results := checker.CheckAll(context.Background(), specs, 5*time.Second)
	require.Contains(t, results, "api")
	assert.True(t, results["api"].Healthy)
	assert.False(t, results["api"].TimeoutExceeded)
}

func TestCheckAllRetriesBeforeSucceeding(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	checker := NewChecker(ProfileFast)
	specs := []types.ServiceSpec{
		{
			Name: "flaky", CheckKind: types.CheckHTTP, URL: srv.URL, Timeout: time.Second,
			Retry: types.RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 1},
		},
	}

	results := checker.CheckAll(context.Background(), specs, 5*time.Second)
	assert.True(t, results["flaky"].Healthy)
	assert.Equal(t, 1, results["flaky"].RetryAttempts)
}

func TestCheckAllTerminalStatusStopsRetrying(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	checker := NewChecker(ProfileFast)
	specs := []types.ServiceSpec{
		{
			Name: "misconfigured", CheckKind: types.CheckHTTP, URL: srv.URL, Timeout: time.Second,
			Retry: types.RetryPolicy{MaxAttempts: 5, InitialDelay: time.Millisecond, Multiplier: 1},
		},
	}

	results := checker.CheckAll(context.Background(), specs, 5*time.Second)
	assert.False(t, results["misconfigured"].Healthy)
	assert.Equal(t, 1, attempts)
}

func TestCheckAllUnreachableServiceExhaustsRetries(t *testing.T) {
	checker := NewChecker(ProfileFast)
	specs := []types.ServiceSpec{
		{
			Name: "unreachable", CheckKind: types.CheckTCP, URL: "127.0.0.1:1",
			Timeout: 50 * time.Millisecond,
			Retry:   types.RetryPolicy{MaxAttempts: 2, InitialDelay: time.Millisecond, Multiplier: 1},
		},
	}

	results := checker.CheckAll(context.Background(), specs, 5*time.Second)
	assert.False(t, results["unreachable"].Healthy)
	assert.NotEmpty(t, results["unreachable"].Error)
}

func TestCheckAllDeadlineExceededMarksTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	checker := NewChecker(ProfileStandard)
	specs := []types.ServiceSpec{
		{Name: "slow", CheckKind: types.CheckHTTP, URL: srv.URL, Timeout: time.Second, Retry: types.DefaultRetryPolicy},
	}

	results := checker.CheckAll(context.Background(), specs, 10*time.Millisecond)
	assert.False(t, results["slow"].Healthy)
	assert.True(t, results["slow"].TimeoutExceeded)
}

func TestCheckAllParallelAcrossManyServices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var specs []types.ServiceSpec
	for i := 0; i < 12; i++ {
		specs = append(specs, types.ServiceSpec{
			Name: srv.URL + string(rune('a'+i)), CheckKind: types.CheckHTTP, URL: srv.URL,
			Timeout: time.Second, Retry: types.DefaultRetryPolicy,
		})
	}

	checker := NewChecker(ProfileStandard)
	results := checker.CheckAll(context.Background(), specs, 5*time.Second)
	assert.Len(t, results, len(specs))
	for _, r := range results {
		assert.True(t, r.Healthy)
	}
}

func TestDeepCheckFlagsRaceCondition(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	checker := NewChecker(ProfileStandard)
	specs := []types.ServiceSpec{
		{
			Name: "postgres", CheckKind: types.CheckDatabase, URL: srv.URL, Timeout: time.Second,
			Retry: types.DefaultRetryPolicy, DeepCheck: true,
		},
	}

	results := checker.CheckAll(context.Background(), specs, 5*time.Second)
	assert.False(t, results["postgres"].Healthy)
	assert.True(t, results["postgres"].RaceDetected)
}

func TestAdaptiveTimeoutScalesAndCaps(t *testing.T) {
	spec := types.ServiceSpec{Timeout: 100 * time.Second}

	fast := AdaptiveTimeout(spec, ProfileFast)
	assert.Equal(t, 50*time.Second, fast.Timeout)

	slow := AdaptiveTimeout(spec, ProfileSlow)
	assert.Equal(t, 200*time.Second, slow.Timeout)

	huge := AdaptiveTimeout(types.ServiceSpec{Timeout: 1000 * time.Second}, ProfileSlow)
	assert.Equal(t, 300*time.Second, huge.Timeout)
}
