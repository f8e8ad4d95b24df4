package workflows

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeBaseConfidence_NoEvidence(t *testing.T) {
	assert.InDelta(t, 0.15, ComputeBaseConfidence(nil, 1.0, false), 1e-9)
}

func TestComputeBaseConfidence_Formula(t *testing.T) {
	// One distance 0.0 → sim 1.0: 0.55 + 0.30 + 0.10 = 0.95.
	got := ComputeBaseConfidence([]float64{0.0}, 1.0, false)
	assert.InDelta(t, 0.95, got, 1e-9)
}

func TestComputeBaseConfidence_Ceiling(t *testing.T) {
	got := ComputeBaseConfidence([]float64{0.0}, 1.0, true)
	assert.LessOrEqual(t, got, 0.98)
}

func TestComputeBaseConfidence_ExternalBoostOnlyWhenWeak(t *testing.T) {
	weak := []float64{1.5, 1.6} // top sim = 0.4 < 0.45
	boosted := ComputeBaseConfidence(weak, 1.0, true)
	unboosted := ComputeBaseConfidence(weak, 1.0, false)
	assert.InDelta(t, 0.05, boosted-unboosted, 1e-9)

	strong := []float64{0.1} // top sim ≈ 0.91 ≥ 0.45
	assert.InDelta(t,
		ComputeBaseConfidence(strong, 1.0, false),
		ComputeBaseConfidence(strong, 1.0, true), 1e-9,
		"no boost when internal evidence is already strong")
}

func TestComputeBaseConfidence_AlwaysInBounds(t *testing.T) {
	cases := [][]float64{
		{0}, {0.5}, {10, 20, 30}, {0.001, 0.002},
	}
	for _, distances := range cases {
		got := ComputeBaseConfidence(distances, 1.0, true)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 0.98)
	}
}

func TestRankDecayFor(t *testing.T) {
	assert.Equal(t, 1.0, rankDecayFor(0))
	assert.Equal(t, 0.93, rankDecayFor(1))
	assert.Equal(t, 0.87, rankDecayFor(2))
	assert.Equal(t, 0.87, rankDecayFor(5), "ranks past the table reuse the last decay")
}
