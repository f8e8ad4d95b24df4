package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruchirkulkarni22/LensOra/pkg/models"
	"github.com/ruchirkulkarni22/LensOra/pkg/store"
)

type fakeVectorStore struct {
	hits     []models.SimilarTicket
	err      error
	upserted []store.EmbeddedTicket
	lastK    int
	lastMax  *float64
}

func (f *fakeVectorStore) VectorNearest(_ context.Context, _ []float32, k int, maxDistance *float64) ([]models.SimilarTicket, error) {
	f.lastK = k
	f.lastMax = maxDistance
	return f.hits, f.err
}

func (f *fakeVectorStore) UpsertSolvedTickets(_ context.Context, tickets []store.EmbeddedTicket) (int, error) {
	f.upserted = append(f.upserted, tickets...)
	return len(tickets), nil
}

func newTestService(vs VectorStore) *Service {
	return NewService(vs, NewLazyEmbedder(func() (Embedder, error) { return NewHashEmbedder(), nil }))
}

func TestFindPotentialDuplicate_BelowThreshold(t *testing.T) {
	vs := &fakeVectorStore{hits: []models.SimilarTicket{{TicketKey: "K2", Distance: 0.25}}}
	svc := newTestService(vs)

	dup, err := svc.FindPotentialDuplicate(context.Background(), "cannot unlock account", DuplicateThreshold)
	require.NoError(t, err)
	require.NotNil(t, dup)
	assert.Equal(t, "K2", dup.TicketKey)
}

func TestFindPotentialDuplicate_AtThresholdIsNotDuplicate(t *testing.T) {
	vs := &fakeVectorStore{hits: []models.SimilarTicket{{TicketKey: "K2", Distance: 0.35}}}
	svc := newTestService(vs)

	dup, err := svc.FindPotentialDuplicate(context.Background(), "text", DuplicateThreshold)
	require.NoError(t, err)
	assert.Nil(t, dup, "threshold comparison is strict")
}

func TestFindPotentialDuplicate_EmptyCorpus(t *testing.T) {
	svc := newTestService(&fakeVectorStore{})
	dup, err := svc.FindPotentialDuplicate(context.Background(), "text", DuplicateThreshold)
	require.NoError(t, err)
	assert.Nil(t, dup)
}

func TestFindSimilar_PassesBounds(t *testing.T) {
	vs := &fakeVectorStore{}
	svc := newTestService(vs)
	maxDist := DefaultMaxDistance

	_, err := svc.FindSimilar(context.Background(), "query", DefaultTopK, &maxDist)
	require.NoError(t, err)
	assert.Equal(t, 8, vs.lastK)
	require.NotNil(t, vs.lastMax)
	assert.InDelta(t, 1.0, *vs.lastMax, 1e-9)
}

func TestUpsertSolvedTickets_EmbedsCanonicalText(t *testing.T) {
	vs := &fakeVectorStore{}
	svc := newTestService(vs)

	n, err := svc.UpsertSolvedTickets(context.Background(), []models.SolvedTicket{
		{TicketKey: "K1", Summary: "locked account", Resolution: "unlock via console"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, vs.upserted, 1)
	assert.Len(t, vs.upserted[0].Embedding, Dim)
}

func TestLazyEmbedder_InitOnce(t *testing.T) {
	calls := 0
	lazy := NewLazyEmbedder(func() (Embedder, error) {
		calls++
		return NewHashEmbedder(), nil
	})

	assert.False(t, lazy.Loaded())
	_, err := lazy.EmbedQuery(context.Background(), "a")
	require.NoError(t, err)
	_, err = lazy.EmbedQuery(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, lazy.Loaded())
}

func TestLazyEmbedder_FactoryErrorSticks(t *testing.T) {
	lazy := NewLazyEmbedder(func() (Embedder, error) {
		return nil, errors.New("no credentials")
	})
	err := lazy.Warm()
	assert.Error(t, err)
	assert.False(t, lazy.Loaded())
}

func TestHashEmbedder_Deterministic(t *testing.T) {
	a, _ := HashEmbedder{}.EmbedQuery(context.Background(), "invoice payment stuck")
	b, _ := HashEmbedder{}.EmbedQuery(context.Background(), "invoice payment stuck")
	assert.Equal(t, a, b)
	assert.Len(t, a, Dim)
}

func TestHashEmbedder_SimilarTextsCloserThanUnrelated(t *testing.T) {
	ctx := context.Background()
	base, _ := HashEmbedder{}.EmbedQuery(ctx, "invoice payment failed for vendor")
	near, _ := HashEmbedder{}.EmbedQuery(ctx, "vendor invoice payment failed")
	far, _ := HashEmbedder{}.EmbedQuery(ctx, "kubernetes node disk pressure alert")

	assert.Greater(t, Cosine(base, near), Cosine(base, far))
}
