package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ruchirkulkarni22/LensOra/pkg/models"
)

// UpsertValidation stores the verdict for a ticket, replacing any previous
// verdict for the same key, and appends the matching timeline event in the
// same transaction. validated_at is always refreshed.
func (s *Store) UpsertValidation(ctx context.Context, ticketKey string, verdict models.LLMVerdict) error {
	missing, err := json.Marshal(emptyIfNil(verdict.MissingFields))
	if err != nil {
		return fmt.Errorf("marshal missing fields: %w", err)
	}

	priority := verdict.Priority
	if priority == "" {
		priority = models.PriorityP3
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin validation upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO validations_log
		     (ticket_key, module, status, missing_fields, confidence, llm_provider_model, priority, duplicate_of, validated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), now())
		 ON CONFLICT (ticket_key) DO UPDATE SET
		     module = EXCLUDED.module,
		     status = EXCLUDED.status,
		     missing_fields = EXCLUDED.missing_fields,
		     confidence = EXCLUDED.confidence,
		     llm_provider_model = EXCLUDED.llm_provider_model,
		     priority = EXCLUDED.priority,
		     duplicate_of = EXCLUDED.duplicate_of,
		     validated_at = now()`,
		ticketKey, verdict.Module, string(verdict.ValidationStatus), missing,
		verdict.Confidence, verdict.LLMProviderModel, string(priority), verdict.DuplicateOf,
	); err != nil {
		return fmt.Errorf("upsert validation for %s: %w", ticketKey, err)
	}

	eventType, message := validationEvent(verdict)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO ticket_events (ticket_key, event_type, message) VALUES ($1, $2, $3)`,
		ticketKey, string(eventType), message,
	); err != nil {
		return fmt.Errorf("append validation event for %s: %w", ticketKey, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit validation upsert: %w", err)
	}
	return nil
}

func validationEvent(verdict models.LLMVerdict) (models.EventType, string) {
	switch verdict.ValidationStatus {
	case models.StatusComplete:
		return models.EventValidatedComplete,
			fmt.Sprintf("Validated complete for module %s (model %s)", verdict.Module, verdict.LLMProviderModel)
	case models.StatusIncomplete:
		return models.EventValidatedIncomplete,
			fmt.Sprintf("Validated incomplete, missing: %s", strings.Join(verdict.MissingFields, ", "))
	default:
		return models.EventValidationError, "Validation ended in error: " + verdict.ErrorMessage
	}
}

// GetLastKnownStatuses returns the last validation status per ticket key.
// Keys with no record are absent from the map.
func (s *Store) GetLastKnownStatuses(ctx context.Context, keys []string) (map[string]models.ValidationStatus, error) {
	statuses := make(map[string]models.ValidationStatus, len(keys))
	if len(keys) == 0 {
		return statuses, nil
	}

	placeholders := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = k
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT ticket_key, status FROM validations_log WHERE ticket_key IN (`+strings.Join(placeholders, ", ")+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("query last known statuses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, status string
		if err := rows.Scan(&key, &status); err != nil {
			return nil, fmt.Errorf("scan status row: %w", err)
		}
		statuses[key] = models.ValidationStatus(status)
	}
	return statuses, rows.Err()
}

// GetLastValidationTimestamp returns when the ticket was last validated, or
// nil when it never was.
func (s *Store) GetLastValidationTimestamp(ctx context.Context, ticketKey string) (*time.Time, error) {
	var ts time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT validated_at FROM validations_log WHERE ticket_key = $1`, ticketKey,
	).Scan(&ts)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last validation timestamp: %w", err)
	}
	return &ts, nil
}

// GetCompleteTickets returns the resolution queue, newest first.
func (s *Store) GetCompleteTickets(ctx context.Context) ([]models.ValidationRecord, error) {
	return s.ticketsByStatus(ctx, models.StatusComplete)
}

// GetIncompleteTickets returns tickets awaiting reporter input, newest first.
func (s *Store) GetIncompleteTickets(ctx context.Context) ([]models.ValidationRecord, error) {
	return s.ticketsByStatus(ctx, models.StatusIncomplete)
}

func (s *Store) ticketsByStatus(ctx context.Context, status models.ValidationStatus) ([]models.ValidationRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ticket_key, module, status, missing_fields, confidence, llm_provider_model,
		        priority, COALESCE(duplicate_of, ''), validated_at
		 FROM validations_log
		 WHERE status = $1
		 ORDER BY validated_at DESC`,
		string(status))
	if err != nil {
		return nil, fmt.Errorf("query %s tickets: %w", status, err)
	}
	defer rows.Close()

	records := []models.ValidationRecord{}
	for rows.Next() {
		rec, err := scanValidationRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetValidation returns the verdict record for one ticket key.
func (s *Store) GetValidation(ctx context.Context, ticketKey string) (*models.ValidationRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT ticket_key, module, status, missing_fields, confidence, llm_provider_model,
		        priority, COALESCE(duplicate_of, ''), validated_at
		 FROM validations_log
		 WHERE ticket_key = $1`, ticketKey)

	rec, err := scanValidationRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanValidationRecord(row rowScanner) (models.ValidationRecord, error) {
	var rec models.ValidationRecord
	var status, priority string
	var missingRaw []byte
	if err := row.Scan(&rec.TicketKey, &rec.Module, &status, &missingRaw, &rec.Confidence,
		&rec.LLMProviderModel, &priority, &rec.DuplicateOf, &rec.ValidatedAt); err != nil {
		return rec, err
	}
	rec.Status = models.ValidationStatus(status)
	rec.Priority = models.Priority(priority)
	if len(missingRaw) > 0 {
		if err := json.Unmarshal(missingRaw, &rec.MissingFields); err != nil {
			return rec, fmt.Errorf("unmarshal missing fields for %s: %w", rec.TicketKey, err)
		}
	}
	rec.Escalate = rec.Confidence < EscalationFloor
	return rec, nil
}

// CountIncomplete returns how many tickets currently sit in incomplete state.
func (s *Store) CountIncomplete(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM validations_log WHERE status = $1`,
		string(models.StatusIncomplete)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count incomplete: %w", err)
	}
	return n, nil
}

// ValidationStats returns verdict counts keyed by status.
func (s *Store) ValidationStats(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM validations_log GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("query validation stats: %w", err)
	}
	defer rows.Close()

	stats := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan stats row: %w", err)
		}
		stats[status] = n
	}
	return stats, rows.Err()
}

func emptyIfNil(fields []string) []string {
	if fields == nil {
		return []string{}
	}
	return fields
}
