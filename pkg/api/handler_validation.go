package api

import (
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// jiraWebhookHandler handles POST /api/jira-webhook. Issue create/update
// events start the validation workflow; everything else is acknowledged and
// ignored. Always responds 200 — the ticket platform retries aggressively on
// anything else and the polling loop backstops missed events anyway.
func (s *Server) jiraWebhookHandler(c *echo.Context) error {
	var payload jiraWebhookPayload
	if err := c.Bind(&payload); err != nil {
		slog.Warn("Unparseable webhook payload", "error", err)
		return c.JSON(http.StatusOK, map[string]string{"status": "ignored"})
	}

	switch payload.WebhookEvent {
	case "jira:issue_created", "jira:issue_updated", "issue_created", "issue_updated":
		key := payload.Issue.Key
		if key == "" {
			return c.JSON(http.StatusOK, map[string]string{"status": "ignored"})
		}
		slog.Info("Webhook triggered validation", "ticket_key", key, "event", payload.WebhookEvent)
		if err := s.orch.StartValidateTicket(c.Request().Context(), key); err != nil {
			slog.Error("Webhook failed to trigger workflow", "ticket_key", key, "error", err)
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "received"})
}

// triggerValidationHandler handles POST /api/trigger-validation/:key.
func (s *Server) triggerValidationHandler(c *echo.Context) error {
	ticketKey := c.Param("key")
	if ticketKey == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "ticket key is required")
	}

	if err := s.orch.StartValidateTicket(c.Request().Context(), ticketKey); err != nil {
		slog.Error("Failed to start validation workflow", "ticket_key", ticketKey, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to start workflow: "+err.Error())
	}

	workflowID := "validate-ticket-" + ticketKey
	return c.JSON(http.StatusAccepted, workflowStartedResponse{
		Status:     "success",
		Message:    "Workflow '" + workflowID + "' started successfully.",
		WorkflowID: workflowID,
	})
}
