package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// healthCheckTimeout bounds all dependency checks of one health request.
const healthCheckTimeout = 3 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(withRequestID, s.accessLog, s.cors, middleware.RequestSize(maxRequestBodySize))

	if s.metrics != nil {
		r.Handle(s.metricsPath, s.metrics)
	}

	// Authenticated by ticket inside the handler.
	r.Get(s.wsCfg.Path, s.handleWebSocket)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.requireToken)

			r.Post("/auth/ws-ticket", s.handleWSTicket)

			r.Get("/resources", s.handleListResources)
			r.Get("/resources/*", s.handleGetResource)
			r.Put("/resources/*", s.handlePutResource)
			r.Post("/resources/*", s.handlePostResource)

			r.Get("/updates", s.handleListUpdates)
			r.Post("/updates/*", s.handleStartUpdate)
			r.Delete("/updates/*", s.handleStopUpdate)

			r.Get("/remotes", s.handleListRemotes)
			r.Post("/remotes/discover", s.handleDiscover)
			r.Get("/remotes/*", s.handleGetRemote)

			r.Get("/requests", s.handleListRequests)
			r.Post("/requests/*", s.handleStartRequest)
			r.Delete("/requests/*", s.handleStopRequest)

			r.Post("/observations/*", s.handleObserve)
			r.Delete("/observations/*", s.handleCancelObserve)

			r.Get("/history", s.handleListHistory)
			r.Get("/history/{id}", s.handleGetHistory)
			r.Get("/observers", s.handleListObservers)
		})
	})

	return r
}

// handleHealth runs the dependency checks. Any failure yields 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	checks := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"version":   s.version,
		"resources": len(s.engine.Resources().List()),
		"clients":   s.hub.ClientCount(),
		"dropped":   s.hub.Dropped(),
		"checks":    checks,
	})
}

// resourceURI returns the resource URI addressed by the wildcard tail.
func resourceURI(r *http.Request) string {
	return "/" + chi.URLParam(r, "*")
}
