package services

// ConfidenceScorer computes a calibrated confidence in [0,1] for each
// candidate and for the overall answer.
//
// Formula, per candidate over the candidate set:
//
//	confidence = 0.45*simNorm + 0.35*rerankNorm + 0.20*rankNorm
//
// where simNorm is the min-max normalised dense similarity, rerankNorm
// the min-max normalised reranker signal, and rankNorm the min-max
// normalised fusion score. When a component is constant across the set
// (including a single candidate), its normalised value is 1.0: every
// candidate sits at that component's observed maximum. The score is a
// genuine function of the underlying signals, never a constant across a
// diverse set, and min-max normalisation preserves order, so higher
// similarity with identical other signals never yields lower confidence.
type ConfidenceScorer struct{}

// NewConfidenceScorer creates a confidence scorer.
func NewConfidenceScorer() *ConfidenceScorer {
	return &ConfidenceScorer{}
}

// Component weights. They sum to 1 so the result stays in [0,1].
const (
	weightSimilarity = 0.45
	weightRerank     = 0.35
	weightFusion     = 0.20
)

// Score fills the Confidence field of every candidate in place.
func (s *ConfidenceScorer) Score(candidates []Candidate) {
	if len(candidates) == 0 {
		return
	}

	sims := make([]float64, len(candidates))
	reranks := make([]float64, len(candidates))
	fused := make([]float64, len(candidates))
	for i := range candidates {
		sims[i] = candidates[i].DenseSim
		reranks[i] = candidates[i].Rerank
		fused[i] = candidates[i].Fused
	}

	simNorm := minMaxNorm(sims)
	rerankNorm := minMaxNorm(reranks)
	fusedNorm := minMaxNorm(fused)

	for i := range candidates {
		c := weightSimilarity*simNorm[i] + weightRerank*rerankNorm[i] + weightFusion*fusedNorm[i]
		candidates[i].Confidence = clamp01(c)
	}
}

// Overall aggregates per-passage confidences into one answer-level
// value, weighting by reciprocal rank so the top passages dominate.
func (s *ConfidenceScorer) Overall(candidates []Candidate) float64 {
	if len(candidates) == 0 {
		return 0
	}
	var sum, weights float64
	for i := range candidates {
		w := 1.0 / float64(i+1)
		sum += w * candidates[i].Confidence
		weights += w
	}
	return clamp01(sum / weights)
}

// minMaxNorm maps values to [0,1] preserving order. A constant input
// maps every value to 1.0, the observed maximum.
func minMaxNorm(values []float64) []float64 {
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	out := make([]float64, len(values))
	if max == min {
		for i := range out {
			out[i] = 1.0
		}
		return out
	}
	for i, v := range values {
		out[i] = (v - min) / (max - min)
	}
	return out
}

// clamp01 bounds v to [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
