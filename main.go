package main

import (
	"log"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/rweb"
	"vedit/backend"
	"vedit/catalog"
	"vedit/config"
	"vedit/db"
	"vedit/planner"
	"vedit/session"
	"vedit/web"
)

func main() {
	config.Initialize()
	cfg := config.Get()

	cat := catalog.DefaultCatalog()

	// Select the collaborator: real backend when configured, mock otherwise
	var collab planner.Collaborator
	var client *backend.Client
	if cfg.BackendURL != "" {
		client = backend.NewClient(cfg.BackendURL, cfg.PollInterval, cfg.MaxPollAttempts)
		collab = client
		logger.Info("Using model backend", "url", cfg.BackendURL)
	} else {
		collab = backend.NewMock()
		logger.Info("No backend configured, using mock collaborator")
	}

	options := planner.EngineOptions{
		MaxConcurrentSteps: cfg.MaxConcurrentSteps,
		PollInterval:       cfg.PollInterval,
	}
	sessions := session.NewManager(collab, cat, options)

	database, err := db.GetDB()
	if err != nil {
		logger.LogErr(err, "History store unavailable, continuing without it")
		database = nil
	}

	// Create a new rweb server with options
	s := rweb.NewServer(rweb.ServerOptions{
		Address: cfg.Address,
		Verbose: true,
	})

	// Add middleware for request logging
	s.Use(rweb.RequestInfo)

	web.SetupRoutes(s, web.Deps{
		Sessions:    sessions,
		Catalog:     cat,
		Analyzer:    planner.NewPromptAnalyzer(),
		Synthesizer: planner.NewPlanSynthesizer(cat),
		History:     database,
		Backend:     client,
	})

	log.Printf("Starting vedit server on %s", cfg.Address)
	log.Fatal(s.Run())
}
