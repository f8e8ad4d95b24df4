package websearch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ruchirkulkarni22/LensOra/pkg/models"
)

// resolutionTrim bounds how much external content feeds a synthesis prompt.
const resolutionTrim = 1500

// DocStore persists ingested external documents.
type DocStore interface {
	UpsertExternalDoc(ctx context.Context, result models.SearchResult, contentText string, embedding []float32) (models.ExternalDoc, error)
}

// DocEmbedder embeds document contents for vector storage.
type DocEmbedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Ingestor caches and embeds raw search results as external documents and
// normalizes them into evidence sources for synthesis.
type Ingestor struct {
	docs     DocStore
	embedder DocEmbedder
}

// NewIngestor creates an ingestor.
func NewIngestor(docs DocStore, embedder DocEmbedder) *Ingestor {
	return &Ingestor{docs: docs, embedder: embedder}
}

// IngestResults upserts each raw result keyed by URL (content hash decides
// whether title/content/embedding refresh) and returns normalized external
// sources. Display refs are assigned by the caller once internal
// representatives are known.
func (in *Ingestor) IngestResults(ctx context.Context, raw []models.SearchResult) ([]models.Source, error) {
	if len(raw) == 0 {
		return []models.Source{}, nil
	}

	contents := make([]string, len(raw))
	for i, r := range raw {
		contents[i] = contentFor(r)
	}
	embeddings, err := in.embedder.EmbedDocuments(ctx, contents)
	if err != nil {
		return nil, fmt.Errorf("embed external documents: %w", err)
	}
	if len(embeddings) != len(raw) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d documents", len(embeddings), len(raw))
	}

	sources := make([]models.Source, 0, len(raw))
	for i, r := range raw {
		doc, err := in.docs.UpsertExternalDoc(ctx, r, contents[i], embeddings[i])
		if err != nil {
			// One bad document must not sink the augmentation pass.
			slog.Warn("External doc upsert failed, skipping", "url", r.URL, "error", err)
			continue
		}
		resolution := doc.ContentText
		if len(resolution) > resolutionTrim {
			resolution = resolution[:resolutionTrim]
		}
		title := doc.Title
		if title == "" {
			title = doc.URL
		}
		sources = append(sources, models.Source{
			SourceType: models.SourceExternal,
			URL:        doc.URL,
			Title:      doc.Title,
			Summary:    title,
			Resolution: resolution,
		})
	}
	return sources, nil
}

// contentFor picks the best available text for a result. Heuristic results
// carry only a snippet, which stands in for page content.
func contentFor(r models.SearchResult) string {
	switch {
	case r.FullContent != "":
		return r.FullContent
	case r.Snippet != "":
		return r.Snippet
	case r.Title != "":
		return r.Title
	default:
		return "No content."
	}
}
