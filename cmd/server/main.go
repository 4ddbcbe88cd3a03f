package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/salesboard/backend/internal/api"
	"github.com/salesboard/backend/internal/cache"
	"github.com/salesboard/backend/internal/config"
	"github.com/salesboard/backend/internal/crm"
	"github.com/salesboard/backend/internal/metrics"
	"github.com/salesboard/backend/internal/pipeline"
	"github.com/salesboard/backend/internal/refresh"
	"github.com/salesboard/backend/internal/roster"
	"github.com/salesboard/backend/internal/timewindow"
	"github.com/salesboard/backend/pkg/middleware"
)

func main() {
	// Configure logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("timezone", cfg.Timezone).
		Str("log_level", cfg.LogLevel).
		Msg("starting salesboard backend server")

	// Load the agent roster
	agentRoster, err := roster.Load(cfg.RosterPath, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.RosterPath).Msg("failed to load roster")
	}

	// Create the time-window resolver
	windows, err := timewindow.NewResolver(cfg.Timezone)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create window resolver")
	}

	// Create the CRM client
	client := crm.NewClient(crm.Options{
		Endpoint:          cfg.CRMEndpoint,
		RecordingsFeedKey: cfg.RecordingsFeedKey,
		SalesFeedKey:      cfg.SalesFeedKey,
		Workers:           cfg.FetchWorkers,
		Timeout:           cfg.FetchTimeout,
		Rate:              cfg.FetchRate,
	}, log.Logger)

	// Create the result cache and pipeline
	resultCache := cache.NewResultCache(cfg.CacheTTL)
	svc := pipeline.NewService(client, agentRoster, windows, resultCache, log.Logger)

	// Create context for services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start the background cache warmer
	refresher := refresh.NewRefresher(svc, resultCache, cfg.RefreshInterval, log.Logger)
	go refresher.Start(ctx)

	// Create handlers
	dashboardHandler := api.NewDashboardHandler(svc, cfg.LastDaysDefault, log.Logger)
	rosterHandler := api.NewRosterHandler(agentRoster, log.Logger)

	// Create router
	r := chi.NewRouter()

	// Add middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Register public routes
	r.Get("/health", healthHandler)
	r.Get("/metrics", metrics.Get().Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/dashboard", dashboardHandler.GetDashboard)
		r.Get("/dashboard/highlights", dashboardHandler.GetHighlights)
		r.Get("/roster", rosterHandler.GetRoster)
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Msgf("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Stop the refresher
	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// healthHandler handles health check requests
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","service":"salesboard-backend"}`)
}
