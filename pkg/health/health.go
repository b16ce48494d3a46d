// Package health serves liveness and readiness endpoints for the HTTP
// transport. Readiness combines a lifecycle state with dependency checks.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	stateStarting int32 = iota
	stateReady
	stateDraining
)

// defaultCheckTimeout bounds a readiness check.
const defaultCheckTimeout = 5 * time.Second

// Dependency reports whether a dependency is usable.
type Dependency func(ctx context.Context) error

// Checker tracks readiness. It is safe for concurrent use.
type Checker struct {
	state   atomic.Int32
	timeout time.Duration

	mu           sync.RWMutex
	dependencies map[string]Dependency
}

// NewChecker creates a Checker in the starting state.
func NewChecker() *Checker {
	return &Checker{timeout: defaultCheckTimeout, dependencies: make(map[string]Dependency)}
}

// AddDependency registers a named dependency check run on every readiness check.
func (c *Checker) AddDependency(name string, d Dependency) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dependencies[name] = d
}

// SetReady marks the server as accepting traffic.
func (c *Checker) SetReady() {
	c.state.Store(stateReady)
}

// SetDraining marks the server as shutting down.
func (c *Checker) SetDraining() {
	c.state.Store(stateDraining)
}

// IsReady reports whether the server is in the ready state. Dependencies are
// not consulted.
func (c *Checker) IsReady() bool {
	return c.state.Load() == stateReady
}

// State returns the lifecycle state name.
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

// Check runs every dependency concurrently and returns the failures by name.
func (c *Checker) Check(ctx context.Context) map[string]string {
	c.mu.RLock()
	names := make([]string, 0, len(c.dependencies))
	for name := range c.dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	deps := make([]Dependency, len(names))
	for i, name := range names {
		deps[i] = c.dependencies[name]
	}
	c.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	errs := make([]error, len(deps))
	var g errgroup.Group
	for i, dep := range deps {
		g.Go(func() error {
			errs[i] = dep(ctx)
			return nil
		})
	}
	_ = g.Wait()

	failed := make(map[string]string)
	for i, err := range errs {
		if err != nil {
			failed[names[i]] = err.Error()
		}
	}
	return failed
}

type healthResponse struct {
	Status string            `json:"status"`
	Failed map[string]string `json:"failed,omitempty"`
}

// LivenessHandler always answers 200 while the process serves HTTP.
func (*Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}

// ReadinessHandler answers 200 when the server is ready and every dependency
// passes, and 503 otherwise.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !c.IsReady() {
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: c.State()})
			return
		}
		if failed := c.Check(r.Context()); len(failed) > 0 {
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Failed: failed})
			return
		}
		writeJSON(w, http.StatusOK, healthResponse{Status: c.State()})
	}
}

func writeJSON(w http.ResponseWriter, code int, v healthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
