package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// defaultActivityOptions apply to every activity unless overridden: retries
// are server-side, bounded, and each attempt has a hard outer timeout.
func defaultActivityOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
}

// ValidateTicket is the durable validation workflow: fetch context, get a
// verdict, persist it, then run the status-specific side effect.
//
// Activity results are read into generic values and re-inflated to their
// typed shapes — the engine may deserialize payloads as plain object maps
// depending on the converter, and the workflow must tolerate both.
func ValidateTicket(ctx workflow.Context, input TicketValidationInput) (string, error) {
	ctx = workflow.WithActivityOptions(ctx, defaultActivityOptions())
	logger := workflow.GetLogger(ctx)
	logger.Info("Gathering multimodal context", "ticket_key", input.TicketKey)

	var rawContext any
	if err := workflow.ExecuteActivity(ctx, ActivityFetchTicketContext, input.TicketKey).Get(ctx, &rawContext); err != nil {
		return "", fmt.Errorf("fetch context: %w", err)
	}
	ticketContext, err := InflateTicketContext(rawContext)
	if err != nil {
		return "", err
	}

	var rawVerdict any
	if err := workflow.ExecuteActivity(ctx, ActivityGetLLMVerdict, ticketContext).Get(ctx, &rawVerdict); err != nil {
		return "", fmt.Errorf("get verdict: %w", err)
	}
	verdict, err := InflateVerdict(rawVerdict)
	if err != nil {
		return "", err
	}
	logger.Info("Verdict received",
		"status", verdict.ValidationStatus, "confidence", verdict.Confidence)

	var logMessage string
	if err := workflow.ExecuteActivity(ctx, ActivityLogValidationResult, input.TicketKey, verdict).Get(ctx, &logMessage); err != nil {
		return "", fmt.Errorf("log validation: %w", err)
	}

	switch verdict.ValidationStatus {
	case "incomplete":
		logger.Info("Ticket incomplete", "missing_fields", verdict.MissingFields)
		var result string
		if err := workflow.ExecuteActivity(ctx, ActivityCommentAndReassign,
			input.TicketKey, verdict, ticketContext.ReporterID).Get(ctx, &result); err != nil {
			return "", fmt.Errorf("comment and reassign: %w", err)
		}
		return "Workflow complete. Status: Incomplete. " + result, nil

	case "complete":
		logger.Info("Ticket complete, entering resolution queue")
		var result string
		if err := workflow.ExecuteActivity(ctx, ActivityNotifyTicketInQueue, input.TicketKey).Get(ctx, &result); err != nil {
			return "", fmt.Errorf("notify queue entry: %w", err)
		}
		return "Workflow complete. Status: Complete. " + result, nil

	default:
		logger.Error("Model returned an error status", "ticket_key", input.TicketKey)
		return "Workflow failed. Reason: LLM processing error.", nil
	}
}
