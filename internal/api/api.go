package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/arturmelo/flagbearer/internal/flageval"
	"github.com/arturmelo/flagbearer/internal/override"
	"github.com/arturmelo/flagbearer/internal/store"
	"github.com/arturmelo/flagbearer/internal/validation"
)

// API holds the router and the collaborators every handler needs.
// It follows the dependency injection pattern to facilitate testing.
type API struct {
	// Router is the Chi multiplexer that handles HTTP requests.
	Router *chi.Mux

	// flags is the data access layer for feature flag definitions.
	flags store.FlagRepository

	// evaluator resolves the precedence chain for evaluate requests.
	evaluator *flageval.Evaluator

	// manager applies override mutations and keeps the cache consistent.
	manager *override.Manager

	logger *slog.Logger
}

// NewAPI creates an API instance and wires its routes.
// Panics if any dependency is nil (misconfiguration, not a runtime error).
func NewAPI(flags store.FlagRepository, evaluator *flageval.Evaluator, manager *override.Manager, logger *slog.Logger) *API {
	// An interface is only nil if it has no underlying type and no value.
	if flags == nil {
		panic("api: flag repository cannot be nil")
	}
	validation.AssertNotNil(evaluator, "evaluator")
	validation.AssertNotNil(manager, "override manager")
	if logger == nil {
		logger = slog.Default()
	}

	a := &API{
		Router:    chi.NewRouter(),
		flags:     flags,
		evaluator: evaluator,
		manager:   manager,
		logger:    logger,
	}

	a.configureRoutes()
	return a
}

// configureRoutes registers the global middleware stack and API endpoints.
func (a *API) configureRoutes() {
	// RequestID: unique ID per request context (essential for tracing).
	a.Router.Use(middleware.RequestID)
	// RealIP: correct client IP when behind a proxy/LB.
	a.Router.Use(middleware.RealIP)
	// Request-scoped logger + structured request log line.
	a.Router.Use(a.injectLogger)
	a.Router.Use(RequestLogger)
	// Recoverer: turns panics into 500s instead of killing the server.
	a.Router.Use(middleware.Recoverer)
	a.Router.Use(render.SetContentType(render.ContentTypeJSON))

	a.Router.Get("/health", a.handleHealthCheck)

	a.Router.Route("/api/v1/feature_flags", func(r chi.Router) {
		r.Get("/", a.handleListFlags)
		r.Post("/", a.handleCreateFlag)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", a.handleGetFlag)
			r.Patch("/", a.handleUpdateFlag)
			r.Delete("/", a.handleDeleteFlag)

			r.Post("/evaluate", a.handleEvaluate)

			r.Get("/overrides", a.handleListOverrides)
			r.Post("/overrides", a.handleCreateOverride)
			r.Delete("/overrides", a.handleDeleteOverride)
		})
	})
}

// handleHealthCheck reports basic HTTP serving capability. Deep dependency
// probes live on the dedicated health server.
func (a *API) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "ok"})
}
