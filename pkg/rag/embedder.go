// Package rag provides semantic retrieval over the solved-ticket corpus:
// embedding generation, nearest-neighbor search, duplicate detection and
// clustering of near-duplicate evidence.
package rag

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Dim is the embedding dimension of the corpus. Every stored vector —
// solved tickets and external documents alike — uses this width.
const Dim = 384

// Embedder produces fixed-dimension embeddings for queries and documents.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// LazyEmbedder defers construction of the underlying embedder until first
// use, keeping the HTTP surface responsive at startup. It is safe for
// concurrent use.
type LazyEmbedder struct {
	factory func() (Embedder, error)

	once    sync.Once
	inner   Embedder
	initErr error
	loaded  bool
	mu      sync.RWMutex
}

// NewLazyEmbedder wraps a factory. The factory runs at most once, on the
// first embedding request (or an explicit Warm call).
func NewLazyEmbedder(factory func() (Embedder, error)) *LazyEmbedder {
	return &LazyEmbedder{factory: factory}
}

func (l *LazyEmbedder) ensure() (Embedder, error) {
	l.once.Do(func() {
		l.inner, l.initErr = l.factory()
		if l.initErr == nil {
			l.mu.Lock()
			l.loaded = true
			l.mu.Unlock()
		}
	})
	return l.inner, l.initErr
}

// Warm forces initialization. Used by the health endpoint's warm-up path.
func (l *LazyEmbedder) Warm() error {
	_, err := l.ensure()
	return err
}

// Loaded reports whether the underlying embedder has been initialized.
func (l *LazyEmbedder) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded
}

// EmbedQuery implements Embedder.
func (l *LazyEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	inner, err := l.ensure()
	if err != nil {
		return nil, err
	}
	return inner.EmbedQuery(ctx, text)
}

// EmbedDocuments implements Embedder.
func (l *LazyEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	inner, err := l.ensure()
	if err != nil {
		return nil, err
	}
	return inner.EmbedDocuments(ctx, texts)
}

// NewOpenAIEmbedder builds an API-backed embedder. Provider vectors are
// reduced to Dim (truncate + renormalize) so the stored column width stays
// uniform regardless of the provider's native dimension.
func NewOpenAIEmbedder(apiKey string) (Embedder, error) {
	llm, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel("text-embedding-3-small"),
	)
	if err != nil {
		return nil, fmt.Errorf("init openai embedding client: %w", err)
	}
	emb, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	return &apiEmbedder{inner: emb}, nil
}

type apiEmbedder struct {
	inner embeddings.Embedder
}

func (a *apiEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vec, err := a.inner.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	return reduceToDim(vec), nil
}

func (a *apiEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := a.inner.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, err
	}
	out := make([][]float32, len(vecs))
	for i, v := range vecs {
		out[i] = reduceToDim(v)
	}
	return out, nil
}

func reduceToDim(vec []float32) []float32 {
	if len(vec) > Dim {
		vec = vec[:Dim]
	}
	out := make([]float32, Dim)
	copy(out, vec)
	normalize(out)
	return out
}

// HashEmbedder is the deterministic, dependency-free fallback used when no
// embedding credential is configured. Feature-hashed bag of words, L2
// normalized. Deterministic for any input, which also makes retrieval
// behavior testable without network access.
type HashEmbedder struct{}

// NewHashEmbedder returns the fallback embedder.
func NewHashEmbedder() Embedder {
	return HashEmbedder{}
}

// EmbedQuery implements Embedder.
func (HashEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return hashEmbed(text), nil
}

// EmbedDocuments implements Embedder.
func (HashEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = hashEmbed(t)
	}
	return out, nil
}

func hashEmbed(text string) []float32 {
	vec := make([]float32, Dim)
	for _, token := range tokenize(text) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(token))
		sum := h.Sum64()
		bucket := int(sum % Dim)
		sign := float32(1)
		if (sum>>63)&1 == 1 {
			sign = -1
		}
		vec[bucket] += sign
	}
	normalize(vec)
	return vec
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
