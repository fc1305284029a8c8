// Package health tracks the bot's readiness and serves the liveness and
// readiness probe endpoints. Readiness combines a lifecycle state (starting,
// ready, draining) with registered dependency probes such as the database
// ping.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// probeTimeout bounds a single dependency probe during a readiness check.
const probeTimeout = 2 * time.Second

// Lifecycle states.
const (
	stateStarting int32 = iota
	stateReady
	stateDraining
)

// CheckFunc probes one dependency; a nil error means healthy.
type CheckFunc func(ctx context.Context) error

// Checker tracks readiness. Safe for concurrent use.
type Checker struct {
	state  atomic.Int32
	mu     sync.RWMutex
	probes map[string]CheckFunc
}

// NewChecker creates a Checker in the starting state with no probes.
func NewChecker() *Checker {
	return &Checker{probes: make(map[string]CheckFunc)}
}

// AddProbe registers a named dependency probe consulted on readiness checks.
func (c *Checker) AddProbe(name string, fn CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes[name] = fn
}

// SetReady transitions to the ready state.
func (c *Checker) SetReady() {
	c.state.Store(stateReady)
}

// SetDraining transitions to the draining state; readiness checks fail from
// here on so load balancers stop routing new events.
func (c *Checker) SetDraining() {
	c.state.Store(stateDraining)
}

// IsReady reports whether the lifecycle state is ready.
func (c *Checker) IsReady() bool {
	return c.state.Load() == stateReady
}

// State returns the lifecycle state as a string.
func (c *Checker) State() string {
	switch c.state.Load() {
	case stateReady:
		return "ready"
	case stateDraining:
		return "draining"
	default:
		return "starting"
	}
}

// failedProbes runs every registered probe and returns the names of those
// that failed.
func (c *Checker) failedProbes(ctx context.Context) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var failed []string
	for name, fn := range c.probes {
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		err := fn(probeCtx)
		cancel()
		if err != nil {
			failed = append(failed, name)
		}
	}
	return failed
}

type healthResponse struct {
	Status string   `json:"status"`
	Failed []string `json:"failed,omitempty"`
}

// LivenessHandler always responds 200; the process is up.
func (*Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}

// ReadinessHandler responds 200 only when the lifecycle state is ready and
// every registered probe passes.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !c.IsReady() {
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: c.State()})
			return
		}
		if failed := c.failedProbes(r.Context()); len(failed) > 0 {
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Failed: failed})
			return
		}
		writeJSON(w, http.StatusOK, healthResponse{Status: "ready"})
	}
}

func writeJSON(w http.ResponseWriter, code int, v healthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
