package store

import (
	"context"
	"fmt"

	"github.com/ruchirkulkarni22/LensOra/pkg/models"
)

// SaveDraft stores a human-authored draft and returns it with timestamps.
func (s *Store) SaveDraft(ctx context.Context, ticketKey, draftText, author string) (models.Draft, error) {
	draft := models.Draft{TicketKey: ticketKey, DraftText: draftText, Author: author}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO drafts (ticket_key, draft_text, author)
		 VALUES ($1, $2, NULLIF($3, ''))
		 RETURNING id, created_at, updated_at`,
		ticketKey, draftText, author,
	).Scan(&draft.ID, &draft.CreatedAt, &draft.UpdatedAt)
	if err != nil {
		return draft, fmt.Errorf("save draft for %s: %w", ticketKey, err)
	}
	return draft, nil
}

// ListDrafts returns all drafts for a ticket, newest first.
func (s *Store) ListDrafts(ctx context.Context, ticketKey string) ([]models.Draft, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ticket_key, draft_text, COALESCE(author, ''), created_at, updated_at
		 FROM drafts
		 WHERE ticket_key = $1
		 ORDER BY created_at DESC`, ticketKey)
	if err != nil {
		return nil, fmt.Errorf("list drafts for %s: %w", ticketKey, err)
	}
	defer rows.Close()

	drafts := []models.Draft{}
	for rows.Next() {
		var d models.Draft
		if err := rows.Scan(&d.ID, &d.TicketKey, &d.DraftText, &d.Author, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan draft row: %w", err)
		}
		drafts = append(drafts, d)
	}
	return drafts, rows.Err()
}
