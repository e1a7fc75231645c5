package qdrant

import "sort"

// DefaultRRFConstant dampens the influence of top ranks in Reciprocal Rank
// Fusion. 60 is the value from the original RRF paper.
const DefaultRRFConstant = 60.0

// FuseRRF merges ranked candidate lists into a single ranking. Each candidate
// contributes 1/(rank+k) per list it appears in, ranks starting at 1. The
// result is independent of the order the lists are supplied in; ties break on
// ascending id so the output is deterministic.
func FuseRRF(lists [][]Candidate, k float64, topK int) []Candidate {
	if k <= 0 {
		k = DefaultRRFConstant
	}

	scores := make(map[uint64]float64)
	byID := make(map[uint64]Candidate)
	for _, list := range lists {
		for rank, cand := range list {
			scores[cand.ID] += 1.0 / (float64(rank+1) + k)
			if _, seen := byID[cand.ID]; !seen {
				byID[cand.ID] = cand
			}
		}
	}

	fused := make([]Candidate, 0, len(scores))
	for id, score := range scores {
		cand := byID[id]
		cand.RetrievalScore = score
		fused = append(fused, cand)
	}
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].RetrievalScore != fused[j].RetrievalScore {
			return fused[i].RetrievalScore > fused[j].RetrievalScore
		}
		return fused[i].ID < fused[j].ID
	})

	if topK > 0 && len(fused) > topK {
		fused = fused[:topK]
	}
	return fused
}
