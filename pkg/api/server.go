// Package api provides the HTTP admin and webhook surface.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/ruchirkulkarni22/LensOra/pkg/config"
	"github.com/ruchirkulkarni22/LensOra/pkg/database"
	"github.com/ruchirkulkarni22/LensOra/pkg/jira"
	"github.com/ruchirkulkarni22/LensOra/pkg/notify"
	"github.com/ruchirkulkarni22/LensOra/pkg/orchestrator"
	"github.com/ruchirkulkarni22/LensOra/pkg/rag"
	"github.com/ruchirkulkarni22/LensOra/pkg/store"
)

// Server is the HTTP API server.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server
	cfg        *config.Config
	dbClient   *database.Client
	store      *store.Store
	ragService *rag.Service
	orch       *orchestrator.Orchestrator
	tickets    jira.Client
	notifier   *notify.Service // nil when Slack is not configured
	guard      *generationGuard
}

// NewServer creates the API server and registers all routes.
func NewServer(
	cfg *config.Config,
	dbClient *database.Client,
	st *store.Store,
	ragService *rag.Service,
	orch *orchestrator.Orchestrator,
	tickets jira.Client,
	notifier *notify.Service,
) *Server {
	e := echo.New()

	s := &Server{
		echo:       e,
		cfg:        cfg,
		dbClient:   dbClient,
		store:      st,
		ragService: ragService,
		orch:       orch,
		tickets:    tickets,
		notifier:   notifier,
		guard:      newGenerationGuard(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes registers all API routes.
func (s *Server) setupRoutes() {
	// Uploads are the largest expected payloads; cap everything else too.
	s.echo.Use(middleware.BodyLimit(10 * 1024 * 1024))
	s.echo.Use(securityHeaders())
	s.echo.Use(requestLogger())

	api := s.echo.Group("/api")

	// Ingress.
	api.POST("/jira-webhook", s.jiraWebhookHandler)
	api.POST("/trigger-validation/:key", s.triggerValidationHandler)

	// Admin uploads.
	api.POST("/upload-knowledge", s.uploadKnowledgeHandler)
	api.POST("/upload-solved-tickets", s.uploadSolvedTicketsHandler)

	// Queue views.
	api.GET("/complete-tickets", s.completeTicketsHandler)
	api.GET("/incomplete-tickets", s.incompleteTicketsHandler)

	// Resolution pipeline.
	api.POST("/generate-solutions/:key", s.generateSolutionsHandler)
	api.GET("/solutions-cache/:key", s.solutionsCacheHandler)
	api.POST("/post-solution/:key", s.postSolutionHandler)

	// Drafts and history.
	api.POST("/save-draft/:key", s.saveDraftHandler)
	api.GET("/drafts/:key", s.draftsHandler)
	api.GET("/timeline/:key", s.timelineHandler)

	// Dashboards.
	api.GET("/impact-counters", s.impactCountersHandler)
	api.GET("/validation-stats", s.validationStatsHandler)
	api.GET("/health", s.healthHandler)
}

// Start begins serving on the configured port. Blocks until shutdown.
func (s *Server) Start() error {
	addr := ":" + s.cfg.HTTPPort
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP server listening", "addr", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Echo exposes the router for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
