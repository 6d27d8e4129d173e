// Package httptransport assembles the HTTP surface: the domain handlers,
// the operational endpoints, and nothing else. Business logic stays in the
// services.
package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registrar is implemented by the per-domain handlers.
type Registrar interface {
	Register(r chi.Router)
}

// NewRouter mounts every handler plus the operational endpoints.
func NewRouter(ops *OpsHandler, handlers ...Registrar) http.Handler {
	r := chi.NewRouter()
	for _, h := range handlers {
		h.Register(r)
	}
	r.Get("/healthz", ops.handleHealthz)
	r.Get("/internal/cache/stats", ops.handleCacheStats)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}
