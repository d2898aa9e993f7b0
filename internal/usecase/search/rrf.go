package search

import (
	"sort"

	"github.com/koralov/raggate/internal/domain/search/result"
)

// fusedHit is a candidate after Reciprocal Rank Fusion, before hydration.
type fusedHit struct {
	id        string
	score     float64
	lexScore  float64
	knnScore  float64
	highlight string
}

// fuseRRF merges the kNN and lexical channel rankings via Reciprocal
// Rank Fusion: score(d) = sum of 1/(rankConstant + rank_i(d)) over the
// rankings containing d, with ranks counted from 1. Only the first
// `window` entries of each channel participate. Ties break on ID so
// the ordering is deterministic.
func fuseRRF(knn, lexical []result.Hit, rankConstant, window int) []fusedHit {
	merged := make(map[string]*fusedHit)

	for rank, h := range knn {
		if rank >= window {
			break
		}
		merged[h.ID] = &fusedHit{
			id:       h.ID,
			score:    1.0 / float64(rankConstant+rank+1),
			knnScore: h.Score,
		}
	}

	for rank, h := range lexical {
		if rank >= window {
			break
		}
		s := 1.0 / float64(rankConstant+rank+1)
		if existing, ok := merged[h.ID]; ok {
			existing.score += s
			existing.lexScore = h.Score
			existing.highlight = h.Highlight
		} else {
			merged[h.ID] = &fusedHit{
				id:        h.ID,
				score:     s,
				lexScore:  h.Score,
				highlight: h.Highlight,
			}
		}
	}

	fused := make([]fusedHit, 0, len(merged))
	for _, h := range merged {
		fused = append(fused, *h)
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].score != fused[j].score {
			return fused[i].score > fused[j].score
		}
		return fused[i].id < fused[j].id
	})

	return fused
}
