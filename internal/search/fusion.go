package search

import (
	"sort"

	"github.com/hyperjump/wraith/internal/models"
)

// NormalizeMinMax returns copies of results with Score rescaled to [0,1] by
// (raw - min) / (max - min). When every raw score is equal each Score is 1.
// RawScore is preserved.
func NormalizeMinMax(results []*models.SearchResult) []*models.SearchResult {
	if len(results) == 0 {
		return nil
	}
	lo, hi := results[0].RawScore, results[0].RawScore
	for _, r := range results[1:] {
		if r.RawScore < lo {
			lo = r.RawScore
		}
		if r.RawScore > hi {
			hi = r.RawScore
		}
	}
	out := make([]*models.SearchResult, len(results))
	for i, r := range results {
		c := *r
		if hi == lo {
			c.Score = 1
		} else {
			c.Score = (r.RawScore - lo) / (hi - lo)
		}
		out[i] = &c
	}
	return out
}

// MergeByThread keeps the best-scoring result per thread across both lists.
// Dense results are visited first and the first one seen wins a tie. The output
// is sorted by Score descending, ties broken by thread id.
func MergeByThread(dense, sparse []*models.SearchResult) []*models.SearchResult {
	best := make(map[string]*models.SearchResult)
	visit := func(results []*models.SearchResult) {
		for _, r := range results {
			if r == nil || r.Chunk == nil {
				continue
			}
			cur, ok := best[r.Chunk.ThreadID]
			if !ok || r.Score > cur.Score {
				best[r.Chunk.ThreadID] = r
			}
		}
	}
	visit(dense)
	visit(sparse)

	merged := make([]*models.SearchResult, 0, len(best))
	for _, r := range best {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].Chunk.ThreadID < merged[j].Chunk.ThreadID
	})
	return merged
}
