package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const readinessTimeout = 1500 * time.Millisecond

// ReadinessCheck probes one backend dependency during /readyz.
type ReadinessCheck func(ctx context.Context) error

// HealthHandlers serves the liveness and readiness endpoints.
type HealthHandlers struct {
	startedAt time.Time
	clock     func() time.Time
	checks    map[string]ReadinessCheck
}

// HealthOption customises the health handlers.
type HealthOption func(*HealthHandlers)

// WithHealthClock injects a custom clock primarily for tests.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// WithReadinessCheck registers a named dependency probe for /readyz.
func WithReadinessCheck(name string, check ReadinessCheck) HealthOption {
	return func(h *HealthHandlers) {
		if name != "" && check != nil {
			h.checks[name] = check
		}
	}
}

// NewHealthHandlers constructs the health endpoints.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{
		clock:  time.Now,
		checks: make(map[string]ReadinessCheck),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	h.startedAt = h.clock()
	return h
}

// Healthz reports process liveness.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	now := h.clock()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    now.Sub(h.startedAt).String(),
		"timestamp": now.UTC().Format(time.RFC3339),
	})
}

// Readyz runs every registered dependency probe and reports per-check state.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		err := check(ctx)
		cancel()
		if err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	overall := "ready"
	if status != http.StatusOK {
		overall = "unavailable"
	}
	writeJSON(w, status, map[string]any{
		"status": overall,
		"checks": results,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
