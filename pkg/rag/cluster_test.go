package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClusterRepresentatives_NearDuplicatesCollapse(t *testing.T) {
	embeddings := [][]float32{
		{1, 0, 0},
		{0.999, 0.01, 0}, // near-duplicate of 0
		{0, 1, 0},        // distinct
	}
	reps := ClusterRepresentatives(embeddings, ClusterSimilarityThreshold)
	assert.Equal(t, []int{0, 2}, reps)
}

func TestClusterRepresentatives_AllDistinct(t *testing.T) {
	embeddings := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
	reps := ClusterRepresentatives(embeddings, 0.90)
	assert.Equal(t, []int{0, 1, 2}, reps)
}

func TestClusterRepresentatives_OrderPreserved(t *testing.T) {
	// First item of each cluster (lowest distance upstream) is the
	// representative, in input order.
	embeddings := [][]float32{
		{0, 1, 0},
		{1, 0, 0},
		{0, 0.999, 0.01},
	}
	reps := ClusterRepresentatives(embeddings, 0.90)
	assert.Equal(t, []int{0, 1}, reps)
}

func TestClusterRepresentatives_Empty(t *testing.T) {
	assert.Empty(t, ClusterRepresentatives(nil, 0.9))
}

func TestCosine_ZeroNormGuard(t *testing.T) {
	sim := Cosine([]float32{0, 0, 0}, []float32{1, 0, 0})
	assert.InDelta(t, 0, sim, 1e-9, "zero vector must not divide by zero")
}

func TestCosine_Identical(t *testing.T) {
	sim := Cosine([]float32{0.5, 0.5}, []float32{0.5, 0.5})
	assert.InDelta(t, 1.0, sim, 1e-6)
}
