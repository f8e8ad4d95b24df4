package store

import (
	"context"
	"fmt"

	"github.com/ruchirkulkarni22/LensOra/pkg/models"
)

// AddEvent appends one timeline event for a ticket.
func (s *Store) AddEvent(ctx context.Context, ticketKey string, eventType models.EventType, message string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ticket_events (ticket_key, event_type, message) VALUES ($1, $2, $3)`,
		ticketKey, string(eventType), message)
	if err != nil {
		return fmt.Errorf("add event %s for %s: %w", eventType, ticketKey, err)
	}
	return nil
}

// GetTimeline returns the full event timeline for a ticket, oldest first.
func (s *Store) GetTimeline(ctx context.Context, ticketKey string) ([]models.TicketEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ticket_key, event_type, message, created_at
		 FROM ticket_events
		 WHERE ticket_key = $1
		 ORDER BY created_at ASC, id ASC`, ticketKey)
	if err != nil {
		return nil, fmt.Errorf("query timeline for %s: %w", ticketKey, err)
	}
	defer rows.Close()

	events := []models.TicketEvent{}
	for rows.Next() {
		var e models.TicketEvent
		var eventType string
		if err := rows.Scan(&e.ID, &e.TicketKey, &eventType, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		e.EventType = models.EventType(eventType)
		events = append(events, e)
	}
	return events, rows.Err()
}
