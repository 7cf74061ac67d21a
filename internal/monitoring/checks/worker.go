package checks

import (
	"context"
	"net/http"
	"time"

	"github.com/charlesng35/dgnotes/internal/monitoring"
	"github.com/charlesng35/dgnotes/internal/worker"
)

const defaultOriginTimeout = 3 * time.Second

// ActiveVersion reports the worker label currently serving requests.
type ActiveVersion interface {
	Active() *worker.Version
}

// Worker returns a probe that is degraded until a worker version is active.
// Without one, requests still go to the network but nothing is served offline.
func Worker(registration ActiveVersion) monitoring.Check {
	return monitoring.NewCheck("worker", func(ctx context.Context) monitoring.ProbeResult {
		if registration == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "worker not registered"}
		}
		active := registration.Active()
		if active == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: "no active version"}
		}
		return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: active.Label()}
	})
}

// Origin returns a probe that issues HEAD / against the origin. An unreachable
// origin only degrades the edge; cached responses keep it useful.
func Origin(network worker.Network, timeout time.Duration) monitoring.Check {
	name := "origin"
	return monitoring.NewCheck(name, func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if network == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: "origin not configured"}
		}

		probeCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout, defaultOriginTimeout))
		defer cancel()

		req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, "/", nil)
		if err != nil {
			return monitoring.ResultFromError(name, err, time.Since(start))
		}
		resp, err := network.Do(req)
		if err != nil {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDegraded,
				Details:  err.Error(),
				Duration: time.Since(start),
			}
		}
		_ = resp.Body.Close()

		status := monitoring.StatusUp
		if resp.StatusCode >= http.StatusInternalServerError {
			status = monitoring.StatusDegraded
		}
		return monitoring.ProbeResult{
			Status:   status,
			Details:  resp.Status,
			Duration: time.Since(start),
		}
	})
}
