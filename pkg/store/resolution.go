package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ruchirkulkarni22/LensOra/pkg/models"
)

// LogResolution appends one resolution audit row. Insert only — resolution
// history is never rewritten.
func (s *Store) LogResolution(ctx context.Context, rec models.ResolutionRecord) error {
	sources, err := json.Marshal(emptyIfNil(rec.Sources))
	if err != nil {
		return fmt.Errorf("marshal resolution sources: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO resolutions_log
		     (ticket_key, solution_posted, llm_provider_model, sources_json, reasoning, draft_id)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.TicketKey, rec.SolutionPosted, rec.LLMProviderModel, sources, rec.Reasoning, rec.DraftID,
	)
	if err != nil {
		return fmt.Errorf("log resolution for %s: %w", rec.TicketKey, err)
	}
	return nil
}

// GetImpactCounters aggregates the dashboard counters. Hours saved derive
// from duplicates avoided at half an engineer hour each.
func (s *Store) GetImpactCounters(ctx context.Context) (models.ImpactCounters, error) {
	var c models.ImpactCounters
	err := s.db.QueryRowContext(ctx,
		`SELECT
		     (SELECT COUNT(*) FROM validations_log),
		     (SELECT COUNT(*) FROM validations_log WHERE duplicate_of IS NOT NULL),
		     (SELECT COUNT(*) FROM resolutions_log),
		     (SELECT COUNT(*) FROM drafts)`,
	).Scan(&c.TicketsTriaged, &c.DuplicatesAvoided, &c.SolutionsPosted, &c.DraftsCreated)
	if err != nil {
		return c, fmt.Errorf("query impact counters: %w", err)
	}
	c.EngineerHoursSaved = float64(c.DuplicatesAvoided) * hoursSavedPerDuplicate
	return c, nil
}
