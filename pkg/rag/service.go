package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ruchirkulkarni22/LensOra/pkg/models"
	"github.com/ruchirkulkarni22/LensOra/pkg/store"
)

// Retrieval defaults.
const (
	// DefaultTopK fetches a few more hits than needed; the distance filter
	// prunes the tail.
	DefaultTopK = 8
	// DefaultMaxDistance bounds resolution queries; lower = stricter.
	DefaultMaxDistance = 1.0
	// DuplicateThreshold: a nearest solved ticket strictly closer than this
	// counts as a potential duplicate.
	DuplicateThreshold = 0.35
)

// VectorStore is the persistence surface the retrieval service needs.
type VectorStore interface {
	VectorNearest(ctx context.Context, queryEmbedding []float32, k int, maxDistance *float64) ([]models.SimilarTicket, error)
	UpsertSolvedTickets(ctx context.Context, tickets []store.EmbeddedTicket) (int, error)
}

// Service performs embedding, nearest-neighbor retrieval, duplicate
// detection and corpus ingestion.
type Service struct {
	store    VectorStore
	embedder *LazyEmbedder
}

// NewService creates a retrieval service over the given store and lazy
// embedder.
func NewService(vs VectorStore, embedder *LazyEmbedder) *Service {
	return &Service{store: vs, embedder: embedder}
}

// Embedder exposes the lazy embedder for health checks and warm-up.
func (s *Service) Embedder() *LazyEmbedder {
	return s.embedder
}

// FindSimilar embeds the query and returns up to k solved tickets ordered by
// ascending L2 distance, dropping hits beyond maxDistance when provided.
func (s *Service) FindSimilar(ctx context.Context, queryText string, k int, maxDistance *float64) ([]models.SimilarTicket, error) {
	emb, err := s.embedder.EmbedQuery(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := s.store.VectorNearest(ctx, emb, k, maxDistance)
	if err != nil {
		return nil, err
	}
	slog.Debug("Similarity search complete", "hits", len(hits), "k", k)
	return hits, nil
}

// FindPotentialDuplicate returns the nearest solved ticket only when its
// distance is strictly below the threshold, else nil.
func (s *Service) FindPotentialDuplicate(ctx context.Context, queryText string, threshold float64) (*models.SimilarTicket, error) {
	emb, err := s.embedder.EmbedQuery(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := s.store.VectorNearest(ctx, emb, 1, nil)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 || hits[0].Distance >= threshold {
		return nil, nil
	}
	dup := hits[0]
	return &dup, nil
}

// UpsertSolvedTickets embeds and stores corpus entries. Embeddings are
// regenerated from the current content on every upsert, so edits to an
// existing ticket refresh its vector.
func (s *Service) UpsertSolvedTickets(ctx context.Context, tickets []models.SolvedTicket) (int, error) {
	if len(tickets) == 0 {
		return 0, nil
	}

	texts := make([]string, len(tickets))
	for i, t := range tickets {
		texts[i] = EmbeddingText(t)
	}
	embeddings, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed solved tickets: %w", err)
	}
	if len(embeddings) != len(tickets) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d tickets", len(embeddings), len(tickets))
	}

	rows := make([]store.EmbeddedTicket, len(tickets))
	for i, t := range tickets {
		rows[i] = store.EmbeddedTicket{Ticket: t, Embedding: embeddings[i]}
	}
	return s.store.UpsertSolvedTickets(ctx, rows)
}

// EmbedTexts embeds arbitrary texts with the corpus embedder (used to
// cluster retrieved items and to embed external documents).
func (s *Service) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	return s.embedder.EmbedDocuments(ctx, texts)
}

// EmbeddingText is the canonical text a solved ticket is embedded from.
func EmbeddingText(t models.SolvedTicket) string {
	return fmt.Sprintf("Ticket: %s\nSummary: %s\nDescription: %s\nResolution: %s",
		t.TicketKey, t.Summary, t.Description, t.Resolution)
}
