package api

import (
	"context"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
)

// completeTicketsHandler handles GET /api/complete-tickets.
func (s *Server) completeTicketsHandler(c *echo.Context) error {
	tickets, err := s.store.GetCompleteTickets(c.Request().Context())
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"tickets": tickets})
}

// incompleteTicketsHandler handles GET /api/incomplete-tickets.
func (s *Server) incompleteTicketsHandler(c *echo.Context) error {
	tickets, err := s.store.GetIncompleteTickets(c.Request().Context())
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"tickets": tickets})
}

// timelineHandler handles GET /api/timeline/:key.
func (s *Server) timelineHandler(c *echo.Context) error {
	events, err := s.store.GetTimeline(c.Request().Context(), c.Param("key"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"events": events})
}

// impactCountersHandler handles GET /api/impact-counters.
func (s *Server) impactCountersHandler(c *echo.Context) error {
	counters, err := s.store.GetImpactCounters(c.Request().Context())
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, counters)
}

// validationStatsHandler handles GET /api/validation-stats.
func (s *Server) validationStatsHandler(c *echo.Context) error {
	stats, err := s.store.ValidationStats(c.Request().Context())
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"counts": stats})
}

// healthHandler handles GET /api/health?warm=<bool>. With warm=true the
// embedding model is initialized before reporting, turning the check into a
// warm-up probe.
func (s *Server) healthHandler(c *echo.Context) error {
	reqCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	embedder := s.ragService.Embedder()
	if c.QueryParam("warm") == "true" && !embedder.Loaded() {
		if err := embedder.Warm(); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "embedding model warm-up failed: "+err.Error())
		}
	}

	dbHealth := s.dbClient.Health(reqCtx)

	resp := healthResponse{
		DBOk:                 dbHealth.OK,
		EngineOk:             s.orch.Healthy(reqCtx),
		EmbeddingModelLoaded: embedder.Loaded(),
		RetrievalOnlyMode:    s.cfg.LLM.GeminiAPIKey == "" && s.cfg.LLM.OpenAIAPIKey == "",
	}

	status := http.StatusOK
	if !dbHealth.OK {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, resp)
}
