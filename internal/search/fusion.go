package search

import "sort"

// rrfK is the rank-smoothing constant for reciprocal rank fusion.
const rrfK = 60

// ScoredID pairs a document identifier with its fused score.
type ScoredID struct {
	ID    string
	Score float64
}

// Fuse combines two ranked candidate lists with weighted reciprocal rank
// fusion. A document at 0-indexed rank r in a list with weight w contributes
// w/(rrfK+r+1); contributions sum across lists. The result is ordered by
// descending score, with ties broken by ascending ID so output is
// deterministic.
func Fuse(lexical, vector []string, lexicalWeight, vectorWeight float64) []ScoredID {
	scores := make(map[string]float64, len(lexical)+len(vector))
	for rank, id := range lexical {
		scores[id] += lexicalWeight / float64(rrfK+rank+1)
	}
	for rank, id := range vector {
		scores[id] += vectorWeight / float64(rrfK+rank+1)
	}

	out := make([]ScoredID, 0, len(scores))
	for id, score := range scores {
		out = append(out, ScoredID{ID: id, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out
}
