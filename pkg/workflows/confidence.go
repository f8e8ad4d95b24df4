package workflows

// Confidence scoring constants.
const (
	// noEvidenceConfidence is assigned when no distances are available at
	// all.
	noEvidenceConfidence = 0.15
	// confidenceCeiling leaves headroom below 1.0 — the agent never claims
	// certainty.
	confidenceCeiling = 0.98
	// invalidCap bounds alternatives the guardrail rejected.
	invalidCap = 0.55
	// externalBoost rewards augmentation only when internal evidence was
	// weak (top similarity under externalBoostSimCutoff).
	externalBoost          = 0.05
	externalBoostSimCutoff = 0.45
	// fallbackDiscount halves the base confidence for locally synthesized
	// heuristic solutions.
	fallbackDiscount = 0.5
)

// rankDecay discounts lower-ranked alternatives.
var rankDecay = []float64{1.0, 0.93, 0.87}

// ComputeBaseConfidence derives the shared evidence-based confidence from
// the internal retrieval distances. Similarity is 1/(1+distance).
func ComputeBaseConfidence(distances []float64, coverageRatio float64, externalUsed bool) float64 {
	if len(distances) == 0 {
		return noEvidenceConfidence
	}

	var topSim, sumSim float64
	for _, d := range distances {
		sim := 1.0 / (1.0 + d)
		if sim > topSim {
			topSim = sim
		}
		sumSim += sim
	}
	avgSim := sumSim / float64(len(distances))

	boost := 0.0
	if externalUsed && topSim < externalBoostSimCutoff {
		boost = externalBoost
	}

	raw := 0.55*topSim + 0.30*avgSim + 0.10*coverageRatio + boost
	if raw < 0 {
		return 0
	}
	if raw > confidenceCeiling {
		return confidenceCeiling
	}
	return raw
}

// rankDecayFor returns the decay multiplier for alternative rank i.
func rankDecayFor(i int) float64 {
	if i < len(rankDecay) {
		return rankDecay[i]
	}
	return rankDecay[len(rankDecay)-1]
}
