// Package httptransport wires the boundary router. Application routes sit
// behind the admission gate; health and metrics bypass it so probes and
// scrapes are never throttled.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	admissionmw "gatekeeper/internal/admission/middleware"
	"gatekeeper/pkg/platform/middleware/auth"
	"gatekeeper/pkg/platform/middleware/metadata"
	"gatekeeper/pkg/platform/middleware/request"
)

// NewRouter assembles the middleware chain and mounts all endpoints.
func NewRouter(gate *admissionmw.Middleware, signingKey []byte, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(metadata.ClientMetadata)
	r.Use(request.RequestID)
	r.Use(auth.ResolveRole(signingKey, logger))

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(gate.Admit)
		r.Get("/api/ping", handlePing)
		r.Get("/api/whoami", handleWhoAmI)
	})

	return r
}
