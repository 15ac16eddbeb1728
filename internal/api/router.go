package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds each dependency check in /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		// Session state fed by the console
		r.Get("/context", s.handleGetContext)
		r.Route("/decks/{deck}", func(r chi.Router) {
			r.Put("/", s.handleUpdateDeck)
			r.Post("/load", s.handleLoadTrack)
		})
		r.Put("/mixer", s.handleUpdateMixer)
		r.Get("/crowd-energy", s.handleGetCrowdEnergy)
		r.Put("/crowd-energy", s.handleSetCrowdEnergy)
		r.Put("/target-energy", s.handleSetTargetEnergy)

		// Decisions and operator feedback
		r.Route("/decision", func(r chi.Router) {
			r.Get("/", s.handleGetDecision)
			r.Post("/", s.handleDecide)
			r.Post("/approve", s.handleApprove)
			r.Post("/reject", s.handleReject)
			r.Post("/correct", s.handleCorrect)
			r.Post("/execute", s.handleExecute)
		})
		r.Post("/actions", s.handleRecordAction)

		// Training control
		r.Get("/mode", s.handleGetMode)
		r.Put("/mode", s.handleSetMode)
		r.Put("/active", s.handleSetActive)
		r.Put("/style", s.handleSetStyle)
		r.Get("/stats", s.handleStats)
		r.Route("/weights", func(r chi.Router) {
			r.Get("/", s.handleGetWeights)
			r.Put("/", s.handleSetWeights)
			r.Post("/recommended", s.handleApplyRecommendedWeights)
		})
		r.Route("/training", func(r chi.Router) {
			r.Get("/export", s.handleExportTraining)
			r.Post("/import", s.handleImportTraining)
		})

		// Track library
		r.Get("/compatibility", s.handleCompatibility)
		r.Get("/suggest-next", s.handleSuggestNext)

		// Direct console control
		r.Post("/emergency-stop", s.handleEmergencyStop)
		r.Route("/control", func(r chi.Router) {
			r.Post("/fade", s.handleFade)
			r.Post("/energy-transition", s.handleEnergyTransition)
		})

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status. Each configured
// dependency is checked; any failure makes the response 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := "ok"
	checks := make(map[string]string, len(names))
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := s.checks[name].HealthCheck(ctx)
		cancel()
		if err != nil {
			checks[name] = err.Error()
			status = "degraded"
			continue
		}
		checks[name] = "ok"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":  status,
		"version": s.version,
		"checks":  checks,
	})
}
