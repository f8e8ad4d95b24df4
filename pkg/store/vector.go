package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net/url"

	"github.com/pgvector/pgvector-go"

	"github.com/ruchirkulkarni22/LensOra/pkg/models"
)

// externalDocTTLDays bounds how long an ingested external document stays
// fresh.
const externalDocTTLDays = 7

// EmbeddedTicket pairs a solved ticket with its embedding for upsert.
type EmbeddedTicket struct {
	Ticket    models.SolvedTicket
	Embedding []float32
}

// UpsertSolvedTickets inserts or refreshes corpus entries keyed by
// ticket_key. Embeddings were regenerated by the caller whenever content
// changed, so they are always written.
func (s *Store) UpsertSolvedTickets(ctx context.Context, tickets []EmbeddedTicket) (int, error) {
	if len(tickets) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin solved-ticket upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, t := range tickets {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO solved_tickets (ticket_key, summary, description, resolution, embedding)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (ticket_key) DO UPDATE SET
			     summary = EXCLUDED.summary,
			     description = EXCLUDED.description,
			     resolution = EXCLUDED.resolution,
			     embedding = EXCLUDED.embedding`,
			t.Ticket.TicketKey, t.Ticket.Summary, t.Ticket.Description, t.Ticket.Resolution,
			pgvector.NewVector(t.Embedding),
		); err != nil {
			return 0, fmt.Errorf("upsert solved ticket %s: %w", t.Ticket.TicketKey, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit solved-ticket upsert: %w", err)
	}
	return len(tickets), nil
}

// VectorNearest returns up to k solved tickets ordered by ascending L2
// distance to the query embedding. When maxDistance is non-nil, farther
// results are filtered out.
func (s *Store) VectorNearest(ctx context.Context, queryEmbedding []float32, k int, maxDistance *float64) ([]models.SimilarTicket, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ticket_key, COALESCE(summary, ''), COALESCE(resolution, ''), embedding <-> $1 AS distance
		 FROM solved_tickets
		 ORDER BY distance
		 LIMIT $2`,
		pgvector.NewVector(queryEmbedding), k)
	if err != nil {
		return nil, fmt.Errorf("vector nearest query: %w", err)
	}
	defer rows.Close()

	results := []models.SimilarTicket{}
	for rows.Next() {
		var t models.SimilarTicket
		if err := rows.Scan(&t.TicketKey, &t.Summary, &t.Resolution, &t.Distance); err != nil {
			return nil, fmt.Errorf("scan similar ticket: %w", err)
		}
		if maxDistance != nil && t.Distance > *maxDistance {
			continue
		}
		results = append(results, t)
	}
	return results, rows.Err()
}

// GetSolvedTicket returns one corpus entry, or nil when absent.
func (s *Store) GetSolvedTicket(ctx context.Context, ticketKey string) (*models.SolvedTicket, error) {
	var t models.SolvedTicket
	err := s.db.QueryRowContext(ctx,
		`SELECT ticket_key, COALESCE(summary, ''), COALESCE(description, ''), COALESCE(resolution, '')
		 FROM solved_tickets WHERE ticket_key = $1`, ticketKey,
	).Scan(&t.TicketKey, &t.Summary, &t.Description, &t.Resolution)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get solved ticket %s: %w", ticketKey, err)
	}
	return &t, nil
}

// UpsertExternalDoc caches one external document keyed by URL. Content,
// title and embedding are refreshed only when the content hash changed;
// expires_at advances on every refresh.
func (s *Store) UpsertExternalDoc(ctx context.Context, result models.SearchResult, contentText string, embedding []float32) (models.ExternalDoc, error) {
	hash := sha256.Sum256([]byte(contentText))
	contentHash := hex.EncodeToString(hash[:])

	doc := models.ExternalDoc{
		URL:         result.URL,
		Domain:      domainOf(result.URL),
		Title:       result.Title,
		ContentText: contentText,
		ContentHash: contentHash,
	}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO external_docs (url, domain, title, content_text, content_hash, embedding, fetched_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now(), now() + make_interval(days => $7))
		 ON CONFLICT (url) DO UPDATE SET
		     title = CASE WHEN external_docs.content_hash <> EXCLUDED.content_hash THEN EXCLUDED.title ELSE external_docs.title END,
		     content_text = CASE WHEN external_docs.content_hash <> EXCLUDED.content_hash THEN EXCLUDED.content_text ELSE external_docs.content_text END,
		     embedding = CASE WHEN external_docs.content_hash <> EXCLUDED.content_hash THEN EXCLUDED.embedding ELSE external_docs.embedding END,
		     content_hash = EXCLUDED.content_hash,
		     fetched_at = now(),
		     expires_at = now() + make_interval(days => $7)
		 RETURNING fetched_at, expires_at`,
		doc.URL, doc.Domain, doc.Title, doc.ContentText, doc.ContentHash,
		pgvector.NewVector(embedding), externalDocTTLDays,
	).Scan(&doc.FetchedAt, &doc.ExpiresAt)
	if err != nil {
		return doc, fmt.Errorf("upsert external doc %s: %w", doc.URL, err)
	}
	return doc, nil
}

// InsertSearchAudit records one external-search invocation.
func (s *Store) InsertSearchAudit(ctx context.Context, audit models.SearchAudit) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO external_search_audit (query_text, normalized_query_hash, provider_used, result_count)
		 VALUES ($1, $2, $3, $4)`,
		audit.QueryText, audit.NormalizedQueryHash, audit.ProviderUsed, audit.ResultCount)
	if err != nil {
		return fmt.Errorf("insert search audit: %w", err)
	}
	return nil
}

func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
