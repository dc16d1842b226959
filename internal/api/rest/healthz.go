package rest

import (
	"context"
	"net/http"
	"time"
)

// Check tests one dependency.
type Check func(ctx context.Context) error

// HealthzHandler handles health check endpoints
type HealthzHandler struct {
	// required checks fail readiness; optional ones only mark it degraded.
	required map[string]Check
	optional map[string]Check
	// status reports extra fields such as the prewarm state.
	status func() map[string]string
}

// NewHealthzHandler creates a new healthz handler
func NewHealthzHandler(required, optional map[string]Check, status func() map[string]string) *HealthzHandler {
	return &HealthzHandler{required: required, optional: optional, status: status}
}

// Live handles GET /health and /healthz/live
func (h *HealthzHandler) Live(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "healthy"}
	if h.status != nil {
		for k, v := range h.status() {
			body[k] = v
		}
	}
	respondJSON(w, http.StatusOK, body)
}

// Ready handles GET /healthz/ready. The caches are optional: the service keeps
// serving from the stores without them.
func (h *HealthzHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	status, code := "ready", http.StatusOK
	for name, check := range h.optional {
		checks[name] = "ok"
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = "degraded"
		}
	}
	for name, check := range h.required {
		checks[name] = "ok"
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
	}
	respondJSON(w, code, map[string]interface{}{"status": status, "checks": checks})
}
