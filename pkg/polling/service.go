// Package polling runs the adaptive ticket change-detection loop: it pulls
// the project's tickets on an interval, categorizes them against the last
// known validation state, and dispatches validation workflows for new and
// stale tickets.
package polling

import (
	"context"
	"log/slog"
	"time"

	"github.com/ruchirkulkarni22/LensOra/pkg/jira"
	"github.com/ruchirkulkarni22/LensOra/pkg/models"
	"github.com/ruchirkulkarni22/LensOra/pkg/orchestrator"
)

// Interval policy bounds.
const (
	minInterval = time.Minute
	maxInterval = 10 * time.Minute
	// errorBackoff is slept after connection-class failures before the next
	// cycle.
	errorBackoff = time.Minute
)

// StatusStore is the persistence surface the loop reads.
type StatusStore interface {
	GetLastKnownStatuses(ctx context.Context, keys []string) (map[string]models.ValidationStatus, error)
	GetLastValidationTimestamp(ctx context.Context, ticketKey string) (*time.Time, error)
	CountIncomplete(ctx context.Context) (int, error)
}

// Dispatcher starts validation workflows. The orchestrator's latest-wins
// start semantics make repeated dispatch for the same key safe.
type Dispatcher interface {
	StartValidateTicket(ctx context.Context, ticketKey string) error
	Reset()
}

// Service is the long-lived polling task.
type Service struct {
	tickets    jira.Client
	store      StatusStore
	dispatcher Dispatcher
	projectKey string
	baseline   time.Duration
	maxKeys    int
}

// NewService creates the polling service.
func NewService(tickets jira.Client, st StatusStore, dispatcher Dispatcher, projectKey string, baseline time.Duration, maxKeys int) *Service {
	return &Service{
		tickets:    tickets,
		store:      st,
		dispatcher: dispatcher,
		projectKey: projectKey,
		baseline:   baseline,
		maxKeys:    maxKeys,
	}
}

// Run executes the loop until the context is cancelled. The in-flight
// iteration completes before return.
func (s *Service) Run(ctx context.Context) {
	log := slog.With("project", s.projectKey)
	log.Info("Starting ticket polling loop", "interval", s.baseline)

	for {
		sleep := s.pollOnce(ctx, log)

		select {
		case <-ctx.Done():
			log.Info("Polling loop shutting down")
			return
		case <-time.After(sleep):
		}
	}
}

// pollOnce runs one cycle and returns how long to sleep before the next.
func (s *Service) pollOnce(ctx context.Context, log *slog.Logger) time.Duration {
	refs, err := s.tickets.SearchTickets(ctx, s.projectKey, s.maxKeys)
	if err != nil {
		log.Error("Ticket platform pull failed, skipping cycle", "error", err)
		if orchestrator.IsConnectionError(err) {
			s.dispatcher.Reset()
		}
		return errorBackoff
	}
	if len(refs) == 0 {
		log.Info("No tickets found in project")
		return s.nextInterval(ctx)
	}

	keys := make([]string, len(refs))
	for i, r := range refs {
		keys[i] = r.Key
	}
	statuses, err := s.store.GetLastKnownStatuses(ctx, keys)
	if err != nil {
		log.Error("Failed to load known statuses, skipping cycle", "error", err)
		return errorBackoff
	}

	toProcess := s.categorize(ctx, refs, statuses, log)
	if len(toProcess) == 0 {
		log.Info("No tickets require validation")
		return s.nextInterval(ctx)
	}

	log.Info("Dispatching validation workflows", "count", len(toProcess))
	for _, key := range toProcess {
		if err := s.dispatcher.StartValidateTicket(ctx, key); err != nil {
			log.Error("Failed to trigger validation workflow", "ticket_key", key, "error", err)
			if orchestrator.IsConnectionError(err) {
				s.dispatcher.Reset()
				return errorBackoff
			}
		}
	}
	return s.nextInterval(ctx)
}

// categorize splits the snapshot into new and stale tickets. Complete
// tickets are terminal for this loop and skipped.
func (s *Service) categorize(ctx context.Context, refs []jira.TicketRef, statuses map[string]models.ValidationStatus, log *slog.Logger) []string {
	var newTickets, staleTickets []string

	for _, ref := range refs {
		status, known := statuses[ref.Key]
		switch {
		case !known:
			newTickets = append(newTickets, ref.Key)
		case status == models.StatusIncomplete:
			lastValidated, err := s.store.GetLastValidationTimestamp(ctx, ref.Key)
			if err != nil {
				log.Warn("Could not read last validation timestamp", "ticket_key", ref.Key, "error", err)
				continue
			}
			if lastValidated == nil || ref.UpdatedAt.After(*lastValidated) {
				log.Info("Ticket updated since last validation, re-validating", "ticket_key", ref.Key)
				staleTickets = append(staleTickets, ref.Key)
			}
		}
	}

	log.Info("Categorization complete", "new", len(newTickets), "stale", len(staleTickets))
	return append(newTickets, staleTickets...)
}

// nextInterval adapts the sleep to queue pressure: the more incomplete
// tickets are waiting on reporters, the more often the loop re-checks.
func (s *Service) nextInterval(ctx context.Context) time.Duration {
	count, err := s.store.CountIncomplete(ctx)
	if err != nil {
		slog.Warn("Could not count incomplete tickets, using base interval", "error", err)
		return clampInterval(s.baseline)
	}
	return IntervalFor(s.baseline, count)
}

// IntervalFor computes the adaptive poll interval from the incomplete-ticket
// count.
func IntervalFor(base time.Duration, incompleteCount int) time.Duration {
	var interval time.Duration
	switch {
	case incompleteCount == 0:
		interval = base
	case incompleteCount < 5:
		interval = maxDuration(time.Duration(float64(base)*0.6), minInterval)
	case incompleteCount < 15:
		interval = maxDuration(time.Duration(float64(base)*0.4), minInterval)
	default:
		interval = minInterval
	}
	return clampInterval(interval)
}

func clampInterval(d time.Duration) time.Duration {
	if d < minInterval {
		return minInterval
	}
	if d > maxInterval {
		return maxInterval
	}
	return d
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
