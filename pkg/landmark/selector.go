package landmark

import "math"

// DefaultConfidenceThreshold rejects noisy detections.
const DefaultConfidenceThreshold = 0.5

// Selection is the outcome of picking a face for one frame.
type Selection struct {
	Candidate Candidate
	Index     int  // position in the input batch, -1 if nothing was picked
	Accepted  bool // best confidence reached the threshold
}

// Select returns the candidate with the highest confidence. Ties keep the
// first maximal candidate. The result is accepted only when that confidence
// is at least threshold.
//
// NaN confidences never compare greater than the running maximum, so a batch
// made only of malformed entries selects nothing. This is intentional.
func Select(candidates []Candidate, threshold float64) Selection {
	best := Selection{Index: -1}
	bestScore := 0.0

	for i := range candidates {
		score := candidates[i].Confidence
		if best.Index < 0 {
			if !math.IsNaN(score) {
				best.Index = i
				bestScore = score
			}
			continue
		}
		if score > bestScore {
			best.Index = i
			bestScore = score
		}
	}

	if best.Index < 0 {
		return best
	}
	best.Candidate = candidates[best.Index]
	best.Accepted = bestScore >= threshold
	return best
}

// Selector applies a fixed confidence threshold.
type Selector struct {
	Threshold float64
}

// NewSelector returns a selector, substituting the default threshold for
// non-positive values.
func NewSelector(threshold float64) Selector {
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	return Selector{Threshold: threshold}
}

// Select picks the face for this frame.
func (s Selector) Select(candidates []Candidate) Selection {
	return Select(candidates, s.Threshold)
}
