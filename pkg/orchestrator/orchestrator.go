// Package orchestrator adapts the durable workflow engine: lazy client
// dialing with reset-on-connection-error, idempotent workflow starts with
// latest-wins semantics, and an in-process fallback that keeps resolution
// requests alive when the engine is unreachable.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"

	"github.com/ruchirkulkarni22/LensOra/pkg/config"
	"github.com/ruchirkulkarni22/LensOra/pkg/workflows"
)

// Dialer builds an engine client. Replaceable in tests.
type Dialer func(options client.Options) (client.Client, error)

// Orchestrator wraps the engine client and the activity set used for
// in-process fallback execution.
type Orchestrator struct {
	cfg        config.TemporalConfig
	dial       Dialer
	activities *workflows.Activities

	mu     sync.Mutex
	client client.Client
}

// New creates an orchestrator. The engine client is dialed lazily on first
// use so startup doesn't depend on engine availability.
func New(cfg config.TemporalConfig, activities *workflows.Activities) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		dial:       client.Dial,
		activities: activities,
	}
}

// NewWithDialer is the test seam.
func NewWithDialer(cfg config.TemporalConfig, activities *workflows.Activities, dial Dialer) *Orchestrator {
	o := New(cfg, activities)
	o.dial = dial
	return o
}

// engineClient returns the cached client, dialing on first use.
func (o *Orchestrator) engineClient() (client.Client, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.client != nil {
		return o.client, nil
	}

	c, err := o.dial(client.Options{
		HostPort:  o.cfg.Address,
		Namespace: o.cfg.Namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("dial workflow engine at %s: %w", o.cfg.Address, err)
	}
	o.client = c
	slog.Info("Workflow engine client connected", "address", o.cfg.Address, "namespace", o.cfg.Namespace)
	return c, nil
}

// Reset drops the cached client so the next call re-dials. Called after
// connection-class failures.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.client != nil {
		o.client.Close()
		o.client = nil
	}
}

// Close releases the engine client.
func (o *Orchestrator) Close() {
	o.Reset()
}

// Healthy reports whether an engine client is currently established.
func (o *Orchestrator) Healthy(ctx context.Context) bool {
	o.mu.Lock()
	c := o.client
	o.mu.Unlock()
	if c == nil {
		return false
	}
	_, err := c.CheckHealth(ctx, &client.CheckHealthRequest{})
	return err == nil
}

// IsConnectionError classifies engine failures that warrant a client reset
// and backoff rather than an immediate retry.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"connection", "unavailable", "deadline exceeded", "dial", "transport", "timeout"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// latestWinsOptions builds start options giving exactly-one-latest semantics
// per logical operation: reissuing the same workflow ID terminates any prior
// in-flight instance and starts fresh.
func (o *Orchestrator) latestWinsOptions(workflowID string) client.StartWorkflowOptions {
	return client.StartWorkflowOptions{
		ID:                    workflowID,
		TaskQueue:             o.cfg.TaskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_TERMINATE_IF_RUNNING,
	}
}

// StartValidateTicket launches (or supersedes) the validation workflow for a
// ticket. Fire-and-forget: the workflow outcome lands in the store.
func (o *Orchestrator) StartValidateTicket(ctx context.Context, ticketKey string) error {
	c, err := o.engineClient()
	if err != nil {
		return err
	}

	_, err = c.ExecuteWorkflow(ctx, o.latestWinsOptions("validate-ticket-"+ticketKey),
		workflows.WorkflowValidateTicket, workflows.TicketValidationInput{TicketKey: ticketKey})
	if err != nil {
		if IsConnectionError(err) {
			o.Reset()
		}
		return fmt.Errorf("start validation workflow for %s: %w", ticketKey, err)
	}
	slog.Info("Validation workflow started", "ticket_key", ticketKey)
	return nil
}

// GenerateResolution runs the resolution workflow synchronously and returns
// its result. When the engine cannot dispatch, the same activity code runs
// in-process: liveness is preserved at the cost of durability, and the
// result is tagged with the original engine error.
func (o *Orchestrator) GenerateResolution(ctx context.Context, input workflows.ResolutionInput) (workflows.ResolutionResult, error) {
	engineErr := o.runResolutionOnEngine(ctx, input)
	if engineErr.result != nil {
		return *engineErr.result, nil
	}

	slog.Warn("Engine dispatch failed, executing resolution in-process",
		"ticket_key", input.TicketKey, "error", engineErr.err)
	result, err := o.activities.FindAndSynthesizeSolutions(ctx, input)
	if err != nil {
		return workflows.ResolutionResult{}, fmt.Errorf(
			"in-process fallback failed: %w (original engine error: %v)", err, engineErr.err)
	}
	if result.Status == workflows.ResolutionStatusSuccess {
		result.Status = workflows.ResolutionStatusSuccessFallback
	}
	result.EngineError = engineErr.err.Error()
	return result, nil
}

type engineOutcome struct {
	result *workflows.ResolutionResult
	err    error
}

func (o *Orchestrator) runResolutionOnEngine(ctx context.Context, input workflows.ResolutionInput) engineOutcome {
	c, err := o.engineClient()
	if err != nil {
		return engineOutcome{err: err}
	}

	run, err := c.ExecuteWorkflow(ctx, o.latestWinsOptions("find-resolution-"+input.TicketKey),
		workflows.WorkflowFindResolution, input)
	if err != nil {
		if IsConnectionError(err) {
			o.Reset()
		}
		return engineOutcome{err: err}
	}

	var result workflows.ResolutionResult
	if err := run.Get(ctx, &result); err != nil {
		return engineOutcome{err: err}
	}
	return engineOutcome{result: &result}
}

// PostResolution posts a human-approved solution through the engine, falling
// back to in-process execution on dispatch failure.
func (o *Orchestrator) PostResolution(ctx context.Context, ticketKey string, solution workflows.SynthesizedSolution) (string, error) {
	c, err := o.engineClient()
	if err == nil {
		input := workflows.PostResolutionInput{TicketKey: ticketKey, Solution: solution}
		_, startErr := c.ExecuteWorkflow(ctx, o.latestWinsOptions("post-resolution-"+ticketKey),
			workflows.WorkflowPostResolution, input)
		if startErr == nil {
			return fmt.Sprintf("post-resolution-%s", ticketKey), nil
		}
		if IsConnectionError(startErr) {
			o.Reset()
		}
		err = startErr
	}

	slog.Warn("Engine dispatch failed, posting solution in-process",
		"ticket_key", ticketKey, "error", err)
	if _, postErr := o.activities.PostSolutionToTicket(ctx, ticketKey, solution); postErr != nil {
		return "", fmt.Errorf("in-process post failed: %w (original engine error: %v)", postErr, err)
	}
	if _, logErr := o.activities.LogResolution(ctx, ticketKey, solution); logErr != nil {
		return "", fmt.Errorf("in-process resolution log failed: %w (original engine error: %v)", logErr, err)
	}
	return "in-process-fallback", nil
}
