package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/arturmelo/flagbearer/internal/config"
)

// Service manages the dedicated HTTP server for health checks.
type Service struct {
	server *http.Server
	checks []Checker
	cfg    config.HealthConfig
	logger *slog.Logger
}

// NewService creates a configured health service instance with the given
// dependency checkers.
func NewService(logger *slog.Logger, cfg config.HealthConfig, checks ...Checker) *Service {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)

	svc := &Service{
		checks: checks,
		cfg:    cfg,
		logger: logger,
		server: &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      r,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			// mitigation against Slowloris attacks
			ReadHeaderTimeout: 2 * time.Second,
		},
	}

	r.Get(cfg.LivenessPath, svc.liveness)
	r.Get(cfg.ReadinessPath, svc.readiness)

	return svc
}

// Start runs the health server in a background goroutine.
// This method is non-blocking.
func (s *Service) Start() {
	go func() {
		s.logger.Info("starting health check server",
			slog.String("port", s.cfg.Port),
			slog.String("liveness_path", s.cfg.LivenessPath),
			slog.String("readiness_path", s.cfg.ReadinessPath),
		)

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("failed to start health server", slog.String("error", err.Error()))
		}
	}()
}

// Stop performs a graceful shutdown of the health server.
func (s *Service) Stop(ctx context.Context) error {
	s.logger.Info("stopping health server")
	return s.server.Shutdown(ctx)
}

// liveness returns 200 OK if the HTTP server is running.
func (s *Service) liveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readiness checks all registered dependencies concurrently and returns 200
// only if every checker passes.
func (s *Service) readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Timeout)
	defer cancel()

	statusMap := make(map[string]string)
	hasError := false

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, checker := range s.checks {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()

			err := c.Check(ctx)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				// Warn, not Error: the orchestrator will retry on its own.
				s.logger.Warn("health probe failed",
					slog.String("component", c.Name()),
					slog.String("error", err.Error()),
				)
				statusMap[c.Name()] = "unhealthy: " + err.Error()
				hasError = true
				return
			}

			statusMap[c.Name()] = "healthy"
		}(checker)
	}
	wg.Wait()

	w.Header().Set("Content-Type", "application/json")
	if hasError {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(statusMap)
}
