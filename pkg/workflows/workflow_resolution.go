package workflows

import (
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

// FindResolution generates solution alternatives for a ticket but does not
// post them — results land in the admin UI for human review.
func FindResolution(ctx workflow.Context, input ResolutionInput) (ResolutionResult, error) {
	ctx = workflow.WithActivityOptions(ctx, defaultActivityOptions())
	logger := workflow.GetLogger(ctx)
	logger.Info("Resolution workflow started", "ticket_key", input.TicketKey)

	var raw any
	if err := workflow.ExecuteActivity(ctx, ActivityFindAndSynthesize, input).Get(ctx, &raw); err != nil {
		return ResolutionResult{}, fmt.Errorf("find and synthesize: %w", err)
	}
	result, err := InflateResolutionResult(raw)
	if err != nil {
		return ResolutionResult{}, err
	}

	logger.Info("Resolution workflow complete",
		"ticket_key", input.TicketKey, "status", result.Status, "alternatives", len(result.Solutions))
	return result, nil
}

// PostResolution posts a human-approved solution to the ticket platform and
// records the audit row. The record write is the final step, so a cancelled
// run leaves no partial resolution history.
func PostResolution(ctx workflow.Context, input PostResolutionInput) (string, error) {
	ctx = workflow.WithActivityOptions(ctx, defaultActivityOptions())
	logger := workflow.GetLogger(ctx)
	logger.Info("Posting approved solution", "ticket_key", input.TicketKey)

	var postMessage string
	if err := workflow.ExecuteActivity(ctx, ActivityPostSolution,
		input.TicketKey, input.Solution).Get(ctx, &postMessage); err != nil {
		return "", fmt.Errorf("post solution: %w", err)
	}

	var logMessage string
	if err := workflow.ExecuteActivity(ctx, ActivityLogResolution,
		input.TicketKey, input.Solution).Get(ctx, &logMessage); err != nil {
		return "", fmt.Errorf("log resolution: %w", err)
	}

	return fmt.Sprintf("Human-approved solution posted to ticket %s.", input.TicketKey), nil
}

// Register wires every workflow and activity onto an engine worker under
// their stable registered names.
func Register(w worker.Worker, activities *Activities) {
	w.RegisterWorkflowWithOptions(ValidateTicket, workflow.RegisterOptions{Name: WorkflowValidateTicket})
	w.RegisterWorkflowWithOptions(FindResolution, workflow.RegisterOptions{Name: WorkflowFindResolution})
	w.RegisterWorkflowWithOptions(PostResolution, workflow.RegisterOptions{Name: WorkflowPostResolution})

	register := func(fn any, name string) {
		w.RegisterActivityWithOptions(fn, activity.RegisterOptions{Name: name})
	}
	register(activities.FetchTicketContext, ActivityFetchTicketContext)
	register(activities.GetLLMVerdict, ActivityGetLLMVerdict)
	register(activities.LogValidationResult, ActivityLogValidationResult)
	register(activities.CommentAndReassign, ActivityCommentAndReassign)
	register(activities.NotifyTicketInQueue, ActivityNotifyTicketInQueue)
	register(activities.FindAndSynthesizeSolutions, ActivityFindAndSynthesize)
	register(activities.PostSolutionToTicket, ActivityPostSolution)
	register(activities.LogResolution, ActivityLogResolution)
}
