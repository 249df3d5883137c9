package store

import (
	"math"

	"github.com/fedscope/fedscope/internal/pkg/textutil"
)

// maxMarginalRelevance selects k candidate indices balancing relevance to
// the query against similarity to already-selected candidates. Candidates
// must be ordered by descending store relevance; ties in the selection score
// break toward the earlier (more relevant) candidate, which keeps the result
// deterministic for fixed inputs.
func maxMarginalRelevance(query []float32, candidates [][]float32, k int, diversityWeight float64) []int {
	n := len(candidates)
	if n == 0 || k <= 0 {
		return nil
	}
	if k >= n {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}

	relevance := make([]float64, n)
	for i, vec := range candidates {
		relevance[i] = textutil.CosineSimilarity(query, vec)
	}

	selected := make([]int, 0, k)
	used := make([]bool, n)

	// First pick is pure relevance.
	first := 0
	for i := 1; i < n; i++ {
		if relevance[i] > relevance[first] {
			first = i
		}
	}
	selected = append(selected, first)
	used[first] = true

	for len(selected) < k {
		best := -1
		bestScore := math.Inf(-1)

		for i := 0; i < n; i++ {
			if used[i] {
				continue
			}

			maxSim := math.Inf(-1)
			for _, s := range selected {
				sim := textutil.CosineSimilarity(candidates[i], candidates[s])
				if sim > maxSim {
					maxSim = sim
				}
			}

			score := diversityWeight*relevance[i] - (1-diversityWeight)*maxSim
			if score > bestScore {
				bestScore = score
				best = i
			}
		}

		if best < 0 {
			break
		}
		selected = append(selected, best)
		used[best] = true
	}

	return selected
}
