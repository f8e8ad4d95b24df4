package store

import (
	"context"
	"fmt"

	"github.com/ruchirkulkarni22/LensOra/pkg/models"
)

// KnowledgeRow is one (module, field) pair from an admin upload.
type KnowledgeRow struct {
	ModuleName string
	FieldName  string
}

// UpsertResult reports the outcome of a bulk knowledge upsert.
type UpsertResult struct {
	RowsProcessed int      `json:"rows_processed"`
	RowsUpserted  int      `json:"rows_upserted"`
	Errors        []string `json:"errors"`
}

// UpsertModuleKnowledge creates missing modules and mandatory fields.
// Rows lacking either value are rejected into the error list; duplicate
// (module, field) pairs are a no-op. The whole batch is one transaction.
func (s *Store) UpsertModuleKnowledge(ctx context.Context, rows []KnowledgeRow) (UpsertResult, error) {
	result := UpsertResult{Errors: []string{}}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin knowledge upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, row := range rows {
		if row.ModuleName == "" || row.FieldName == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: module_name and field_name are required", i+1))
			continue
		}
		result.RowsProcessed++

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO modules_taxonomy (module_name, description)
			 VALUES ($1, $2)
			 ON CONFLICT (module_name) DO NOTHING`,
			row.ModuleName, row.ModuleName+" process",
		); err != nil {
			return result, fmt.Errorf("upsert module %q: %w", row.ModuleName, err)
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO mandatory_field_templates (module_id, field_name)
			 SELECT id, $2 FROM modules_taxonomy WHERE module_name = $1
			 ON CONFLICT (module_id, field_name) DO NOTHING`,
			row.ModuleName, row.FieldName,
		)
		if err != nil {
			return result, fmt.Errorf("upsert field %q for module %q: %w", row.FieldName, row.ModuleName, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			result.RowsUpserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("commit knowledge upsert: %w", err)
	}
	return result, nil
}

// GetKnowledgeBase returns every module with its mandatory fields, keyed by
// module name. Field order follows insertion order.
func (s *Store) GetKnowledgeBase(ctx context.Context) (models.KnowledgeBase, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.module_name, m.description, f.field_name
		 FROM modules_taxonomy m
		 LEFT JOIN mandatory_field_templates f ON f.module_id = m.id
		 ORDER BY m.module_name, f.id`)
	if err != nil {
		return nil, fmt.Errorf("query knowledge base: %w", err)
	}
	defer rows.Close()

	kb := models.KnowledgeBase{}
	for rows.Next() {
		var moduleName string
		var description, fieldName *string
		if err := rows.Scan(&moduleName, &description, &fieldName); err != nil {
			return nil, fmt.Errorf("scan knowledge row: %w", err)
		}
		entry := kb[moduleName]
		if description != nil {
			entry.Description = *description
		}
		if fieldName != nil {
			entry.MandatoryFields = append(entry.MandatoryFields, *fieldName)
		}
		kb[moduleName] = entry
	}
	return kb, rows.Err()
}
