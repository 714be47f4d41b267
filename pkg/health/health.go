// Package health provides liveness and readiness probes. Registered checks
// run periodically in the background; probe endpoints report the last
// observed state. Checks flip to unhealthy only after three consecutive
// failures and recover on the first success, so a single slow ping does not
// flap readiness.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc probes one component: nil means healthy.
type CheckFunc func(ctx context.Context) error

const failureThreshold = 3

// check holds the configuration and last observed state of one probe.
// The fail counter is touched only by the single loop goroutine; healthy and
// lastErr are shared with the HTTP endpoints and use atomics.
type check struct {
	name    string
	timeout time.Duration
	probe   CheckFunc

	healthy atomic.Bool
	lastErr atomic.Pointer[error]
	fails   int
}

func (c *check) run(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.probe(probeCtx)
	c.lastErr.Store(&err)

	if err != nil {
		c.fails++
		if c.fails >= failureThreshold {
			c.healthy.Store(false)
		}
		return
	}
	c.fails = 0
	c.healthy.Store(true)
}

func (c *check) failure() (string, bool) {
	if c.healthy.Load() {
		return "", false
	}
	if p := c.lastErr.Load(); p != nil && *p != nil {
		return (*p).Error(), true
	}
	return "unhealthy", true
}

// Health manages liveness and readiness checks for a service.
type Health struct {
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []*check
	readiness []*check
	cancel    context.CancelFunc
}

// New creates a Health service in a not-ready state; call SetReady(true)
// once initialization completes.
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a liveness probe (is the process functioning).
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, probe CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, newCheck(name, timeout, probe))
}

// AddReadinessCheck registers a readiness probe (can the service take
// traffic, e.g. database connectivity).
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, probe CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, newCheck(name, timeout, probe))
}

func newCheck(name string, timeout time.Duration, probe CheckFunc) *check {
	c := &check{name: name, timeout: timeout, probe: probe}
	c.healthy.Store(true) // assume healthy until proven otherwise
	return c
}

// Start launches one goroutine per registered check, each running at the
// given interval. Register all checks before calling Start.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	checks := append(append([]*check{}, h.liveness...), h.readiness...)
	h.mu.Unlock()

	for _, c := range checks {
		go func(c *check) {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			c.run(ctx)
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					c.run(ctx)
				}
			}
		}(c)
	}
}

// Stop cancels the background check goroutines. Safe to call repeatedly.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady sets the manual readiness gate: true after initialization, false
// during graceful shutdown to drain traffic.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the service is marked ready and every readiness
// check passes.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}

	h.mu.RLock()
	checks := h.readiness
	h.mu.RUnlock()

	for _, c := range checks {
		if !c.healthy.Load() {
			return false
		}
	}
	return true
}

type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves /livez: 200 when all liveness checks pass, else 503
// with per-check failure details.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	checks := append([]*check{}, h.liveness...)
	h.mu.RUnlock()

	writeStatus(w, failures(checks))
}

// ReadyEndpoint serves /readyz: 200 when the service is marked ready and all
// readiness checks pass, else 503 with details.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	checks := append([]*check{}, h.readiness...)
	h.mu.RUnlock()

	fs := failures(checks)
	if !h.ready.Load() {
		fs["_readiness"] = "service is not ready"
	}
	writeStatus(w, fs)
}

func failures(checks []*check) map[string]string {
	fs := make(map[string]string)
	for _, c := range checks {
		if msg, failed := c.failure(); failed {
			fs[c.name] = msg
		}
	}
	return fs
}

func writeStatus(w http.ResponseWriter, fs map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	if len(fs) > 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(statusResponse{Status: "unhealthy", Checks: fs})
		return
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(statusResponse{Status: "ok"})
}
