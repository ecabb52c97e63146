package endpoints

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/CodeDeck/codedeck_backend/endpoints/health"
	"github.com/CodeDeck/codedeck_backend/log"
)

const shutdownTimeout = 3 * time.Second

// HTTPServer serves the problem API together with metrics and health.
type HTTPServer struct {
	addr           string
	services       Services
	metrics        Manager
	healthRegister *health.HealthServiceRegister
	corsOrigins    []string
	server         *http.Server
}

func NewHTTPServer(addr string, services Services, metrics Manager, healthRegister *health.HealthServiceRegister, corsOrigins []string) *HTTPServer {
	return &HTTPServer{
		addr:           addr,
		services:       services,
		metrics:        metrics,
		healthRegister: healthRegister,
		corsOrigins:    corsOrigins,
	}
}

func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerAPI(mux)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("GET /health", s.handleHealth)
	return withCORS(s.corsOrigins, mux)
}

func (s *HTTPServer) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(s.metrics.AggregateJSON())
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	healthy, statuses := s.healthRegister.Report()
	if healthy {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
		return
	}
	respond(w, http.StatusServiceUnavailable, statuses)
}

// Run serves until ctx is canceled, then shuts down gracefully.
// It returns an error only if the listener fails.
func (s *HTTPServer) Run(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Logger.Infof("Serving API at http://%s", s.addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Logger.WithError(err).Error("HTTP server error")
		}
		return err
	case <-ctx.Done():
	}
	log.Logger.Infof("Shutting down HTTP server at %s...", s.addr)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		log.Logger.WithError(err).Error("HTTP server shutdown error")
	} else {
		log.Logger.Info("HTTP server shut down cleanly")
	}
	return nil
}
