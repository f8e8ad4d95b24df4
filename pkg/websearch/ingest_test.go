package websearch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruchirkulkarni22/LensOra/pkg/models"
)

type fakeDocStore struct {
	upserts []string
	failURL string
}

func (f *fakeDocStore) UpsertExternalDoc(_ context.Context, result models.SearchResult, contentText string, _ []float32) (models.ExternalDoc, error) {
	if result.URL == f.failURL {
		return models.ExternalDoc{}, errors.New("boom")
	}
	f.upserts = append(f.upserts, result.URL)
	hash := sha256.Sum256([]byte(contentText))
	return models.ExternalDoc{
		URL:         result.URL,
		Title:       result.Title,
		ContentText: contentText,
		ContentHash: hex.EncodeToString(hash[:]),
		FetchedAt:   time.Now(),
		ExpiresAt:   time.Now().Add(7 * 24 * time.Hour),
	}, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, 4)
	}
	return out, nil
}

func TestIngestResults_Normalizes(t *testing.T) {
	docs := &fakeDocStore{}
	ing := NewIngestor(docs, fakeEmbedder{})

	sources, err := ing.IngestResults(context.Background(), []models.SearchResult{
		{URL: "https://example.com/a", Title: "Fix A", Snippet: "snippet a"},
		{URL: "https://example.com/b", Title: "", Snippet: "snippet b"},
	})
	require.NoError(t, err)
	require.Len(t, sources, 2)

	assert.Equal(t, models.SourceExternal, sources[0].SourceType)
	assert.Equal(t, "snippet a", sources[0].Resolution)
	assert.Equal(t, "Fix A", sources[0].Summary)
	assert.Equal(t, "https://example.com/b", sources[1].Summary, "URL stands in for a missing title")
	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, docs.upserts)
}

func TestIngestResults_TrimsLongContent(t *testing.T) {
	docs := &fakeDocStore{}
	ing := NewIngestor(docs, fakeEmbedder{})

	sources, err := ing.IngestResults(context.Background(), []models.SearchResult{
		{URL: "u", Title: "t", FullContent: strings.Repeat("long ", 400)},
	})
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.LessOrEqual(t, len(sources[0].Resolution), 1500)
}

func TestIngestResults_SkipsFailedDocs(t *testing.T) {
	docs := &fakeDocStore{failURL: "https://bad.example"}
	ing := NewIngestor(docs, fakeEmbedder{})

	sources, err := ing.IngestResults(context.Background(), []models.SearchResult{
		{URL: "https://bad.example", Snippet: "x"},
		{URL: "https://good.example", Snippet: "y"},
	})
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "https://good.example", sources[0].URL)
}

func TestIngestResults_Empty(t *testing.T) {
	ing := NewIngestor(&fakeDocStore{}, fakeEmbedder{})
	sources, err := ing.IngestResults(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, sources)
}
