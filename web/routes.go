package web

import (
	"github.com/rohanthewiz/rweb"
	"vedit/backend"
	"vedit/catalog"
	"vedit/db"
	"vedit/planner"
	"vedit/session"
)

// Deps holds the shared services the handlers use
type Deps struct {
	Sessions    *session.Manager
	Catalog     *catalog.Catalog
	Analyzer    *planner.PromptAnalyzer
	Synthesizer *planner.PlanSynthesizer
	History     *db.DB
	Backend     *backend.Client // nil when running against the mock
}

var deps Deps

// SetupRoutes configures all HTTP routes for the server
func SetupRoutes(s *rweb.Server, d Deps) {
	deps = d

	// Root endpoint - serves the status UI
	s.Get("/", statusPageHandler)

	// Catalog and backend health
	s.Get("/api/models", listModelsHandler)
	s.Get("/api/health", healthHandler)

	// Session endpoints
	s.Get("/api/session", listSessionsHandler)
	s.Post("/api/session", createSessionHandler)
	s.Get("/api/session/:id", getSessionHandler)
	s.Delete("/api/session/:id", deleteSessionHandler)
	s.Get("/api/session/:id/history", listHistoryHandler)

	// Planning endpoints
	s.Post("/api/session/:id/plan", createPlanHandler)
	s.Get("/api/plan/:id", getPlanHandler)
	s.Post("/api/plan/:id/approve", approvePlanHandler)
	s.Post("/api/plan/:id/execute", executePlanHandler)
	s.Post("/api/plan/:id/reorder", reorderStepsHandler)
	s.Post("/api/plan/:id/steps", addStepHandler)
	s.Get("/api/plan/:id/metrics", planMetricsHandler)
	s.Get("/api/plan/:id/analyze", analyzePlanHandler)

	// Step endpoints
	s.Post("/api/plan/:id/step/:stepId/execute", executeStepHandler)
	s.Post("/api/plan/:id/step/:stepId/rollback", rollbackStepHandler)
	s.Post("/api/plan/:id/step/:stepId/skip", skipStepHandler)
	s.Post("/api/plan/:id/step/:stepId/cancel", cancelStepHandler)
	s.Put("/api/plan/:id/step/:stepId/parameters", updateStepParamsHandler)
	s.Delete("/api/plan/:id/step/:stepId", removeStepHandler)

	// Manual pipeline endpoints
	s.Get("/api/session/:id/manual", listManualStepsHandler)
	s.Post("/api/session/:id/manual", addManualStepHandler)
	s.Post("/api/session/:id/manual/reorder", reorderManualStepsHandler)
	s.Post("/api/session/:id/manual/run", runManualStepsHandler)
	s.Post("/api/session/:id/manual/:stepId/execute", executeManualStepHandler)
	s.Put("/api/session/:id/manual/:stepId/parameters", updateManualParamsHandler)
	s.Delete("/api/session/:id/manual/:stepId", removeManualStepHandler)

	// SSE endpoint for streaming progress events
	s.Get("/events",
		func(c rweb.Context) error {
			clientChan := make(chan any, 10)
			sseHub.Register(clientChan)

			// no unregister here, the conn is long-lived
			s.SetupSSE(c, clientChan, "")

			return nil
		},
	)
}
