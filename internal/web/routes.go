package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/facial-recognition/internal/web/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) setupRoutes() {
	facialHandler := handlers.NewFacialHandler(s.deps.Service, s.deps.Publisher, s.deps.Metrics)
	healthHandler := handlers.NewHealthHandler(s.deps.Store, s.deps.Service.Strategy().Name(), s.deps.Metrics)

	gatherer := s.deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.Check)

		r.Route("/facial", func(r chi.Router) {
			r.Post("/enroll", facialHandler.Enroll)
			r.Post("/recognize", facialHandler.Recognize)
			r.Post("/verify", facialHandler.Verify)
		})
	})
}
