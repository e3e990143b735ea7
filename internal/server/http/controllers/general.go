package controllers

import (
	"net/http"

	"github.com/rzbill/tally/internal/runtime"
)

// GeneralController serves health and metrics endpoints.
type GeneralController struct {
	rt *runtime.Runtime
}

// NewGeneralController creates a new general controller.
func NewGeneralController(rt *runtime.Runtime) *GeneralController {
	return &GeneralController{rt: rt}
}

// RegisterRoutes registers /v1/healthz and /metrics.
func (c *GeneralController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/healthz", c.handleHealth)
	mux.Handle("/metrics", c.rt.Metrics().Handler())
}

// handleHealth returns {"status":"ok"}, or 503 when storage is unavailable.
func (c *GeneralController) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := c.rt.CheckHealth(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, codeNotServing, "not_serving")
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}
