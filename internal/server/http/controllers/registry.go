package controllers

import (
	"net/http"

	"github.com/rzbill/tally/internal/auth"
	"github.com/rzbill/tally/internal/ratelimit"
	"github.com/rzbill/tally/internal/runtime"
	totalsvc "github.com/rzbill/tally/internal/services/totals"
	logpkg "github.com/rzbill/tally/pkg/log"
)

// ControllerRegistry manages all HTTP controllers.
type ControllerRegistry struct {
	general *GeneralController
	totals  *TotalsController
}

// NewControllerRegistry initializes all controllers with the provided
// runtime and services.
func NewControllerRegistry(rt *runtime.Runtime, svc *totalsvc.Service, verifier auth.Verifier, limiter *ratelimit.Limiter, logger logpkg.Logger) *ControllerRegistry {
	return &ControllerRegistry{
		general: NewGeneralController(rt),
		totals:  NewTotalsController(svc, verifier, limiter, logger),
	}
}

// RegisterAllRoutes registers all controller routes with the given mux.
func (r *ControllerRegistry) RegisterAllRoutes(mux *http.ServeMux) {
	r.general.RegisterRoutes(mux)
	r.totals.RegisterRoutes(mux)
}
