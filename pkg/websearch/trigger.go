package websearch

import "sort"

// gapEpsilon guards the gap-ratio denominator.
const gapEpsilon = 1e-6

// Augmentation trigger thresholds.
const (
	// WeakTopDistance: internal evidence farther than this is too weak to
	// stand alone.
	WeakTopDistance = 0.55
	// GapRatioThreshold: a large relative gap between the best and
	// second-best hit means the corpus has one outlier match, not a theme.
	GapRatioThreshold = 1.2
)

// NeedExternal decides whether external augmentation should run, given the
// internal retrieval distances. Triggered when there are no internal
// results, when the best hit is weak, or when the gap ratio between the two
// best hits is large.
func NeedExternal(distances []float64) bool {
	if len(distances) == 0 {
		return true
	}
	sorted := append([]float64(nil), distances...)
	sort.Float64s(sorted)

	if sorted[0] > WeakTopDistance {
		return true
	}
	if len(sorted) > 1 && (sorted[1]-sorted[0])/(sorted[0]+gapEpsilon) > GapRatioThreshold {
		return true
	}
	return false
}
