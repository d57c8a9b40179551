// Package http assembles the HTTP surface: middleware chain, feature
// routes, and the operational endpoints.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	benefithandler "idverse/internal/benefit/handler"
	credhandler "idverse/internal/credential/handler"
	"idverse/internal/platform/middleware"
	"idverse/internal/transport/http/json"
)

// Dependencies carries everything the router mounts.
type Dependencies struct {
	Credentials *credhandler.Handler
	Benefits    *benefithandler.Handler
	JWT         middleware.JWTValidator
	Logger      *slog.Logger
	// Healthy reports readiness of the chain node and backing stores.
	Healthy func() error
}

// NewRouter builds the service router with the standard middleware chain.
func NewRouter(deps Dependencies) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.ContentTypeJSON)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if deps.Healthy != nil {
			if err := deps.Healthy(); err != nil {
				json.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
				return
			}
		}
		json.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	auth := middleware.RequireAuth(deps.JWT, deps.Logger)
	admin := middleware.RequireAdmin(deps.Logger)

	deps.Credentials.Register(r, auth, admin)
	deps.Benefits.Register(r, auth, admin)

	return r
}
