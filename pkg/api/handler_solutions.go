package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v5"

	"github.com/ruchirkulkarni22/LensOra/pkg/models"
	"github.com/ruchirkulkarni22/LensOra/pkg/workflows"
)

// generateSolutionsHandler handles POST /api/generate-solutions/:key. It is
// guarded per ticket: 429 inside the rate window, 409 while a generation is
// in flight. The result (success, duplicate short-circuit, or a
// needs-more-info prompt) is cached for the solutions-cache endpoint.
func (s *Server) generateSolutionsHandler(c *echo.Context) error {
	ticketKey := c.Param("key")
	if ticketKey == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "ticket key is required")
	}

	if err := s.guard.begin(ticketKey); err != nil {
		return mapServiceError(err)
	}

	var cacheable *workflows.ResolutionResult
	defer func() { s.guard.end(ticketKey, cacheable) }()

	ctx := c.Request().Context()

	details, err := s.tickets.GetTicketDetails(ctx, ticketKey)
	if err != nil {
		return mapServiceError(fmt.Errorf("fetch ticket for resolution: %w", err))
	}
	bundled := strings.Join([]string{
		"Ticket Key: " + ticketKey,
		"Summary: " + details.Summary,
		"Description: " + details.Description,
	}, "\n")

	result, err := s.orch.GenerateResolution(ctx, workflows.ResolutionInput{
		TicketKey:         ticketKey,
		TicketBundledText: bundled,
	})
	if err != nil {
		return mapServiceError(err)
	}
	cacheable = &result

	if result.Escalate {
		lowest := 1.0
		for _, sol := range result.Solutions {
			if sol.Confidence < lowest {
				lowest = sol.Confidence
			}
		}
		s.notifier.NotifyEscalation(ctx, ticketKey, lowest)
		slog.Info("Escalation flagged", "ticket_key", ticketKey, "lowest_confidence", lowest)
	}

	return c.JSON(http.StatusOK, result)
}

// solutionsCacheHandler handles GET /api/solutions-cache/:key.
func (s *Server) solutionsCacheHandler(c *echo.Context) error {
	ticketKey := c.Param("key")
	result, ok := s.guard.cached(ticketKey)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no cached generation for this ticket")
	}
	return c.JSON(http.StatusOK, result)
}

// postSolutionHandler handles POST /api/post-solution/:key: starts the
// durable post workflow (or its in-process fallback) for a human-approved
// solution.
func (s *Server) postSolutionHandler(c *echo.Context) error {
	ticketKey := c.Param("key")
	var req postSolutionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.SolutionText) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "solution_text is required")
	}

	// Resolution history only exists for tickets that were validated
	// complete at posting time.
	validation, err := s.store.GetValidation(c.Request().Context(), ticketKey)
	if err != nil {
		return mapServiceError(err)
	}
	if validation == nil || validation.Status != models.StatusComplete {
		return echo.NewHTTPError(http.StatusConflict,
			"solutions can only be posted for tickets validated as complete")
	}

	model := req.LLMProviderModel
	if model == "" {
		model = "human-approved"
	}

	workflowID, err := s.orch.PostResolution(c.Request().Context(), ticketKey, workflows.SynthesizedSolution{
		SolutionText:     req.SolutionText,
		LLMProviderModel: model,
		Sources:          req.Sources,
		Reasoning:        req.Reasoning,
	})
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusAccepted, workflowStartedResponse{
		Status:     "success",
		Message:    fmt.Sprintf("Solution posted to ticket %s.", ticketKey),
		WorkflowID: workflowID,
	})
}

// saveDraftHandler handles POST /api/save-draft/:key.
func (s *Server) saveDraftHandler(c *echo.Context) error {
	ticketKey := c.Param("key")
	var req saveDraftRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.DraftText) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "draft_text is required")
	}

	draft, err := s.store.SaveDraft(c.Request().Context(), ticketKey, req.DraftText, req.Author)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusCreated, draft)
}

// draftsHandler handles GET /api/drafts/:key.
func (s *Server) draftsHandler(c *echo.Context) error {
	drafts, err := s.store.ListDrafts(c.Request().Context(), c.Param("key"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"drafts": drafts})
}
