package playlist

import "sort"

// sortRanked orders the playlist for display. Unvoted songs always sort
// ahead of voted ones so fresh additions are guaranteed visibility, newest
// first within that group. Voted songs rank by score, with older songs
// winning ties to reward early momentum.
func sortRanked(ranked []Ranked) {
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		aUnvoted, bUnvoted := a.Score == 0, b.Score == 0
		if aUnvoted != bUnvoted {
			return aUnvoted
		}
		if aUnvoted {
			return a.CreatedAt.After(b.CreatedAt)
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}
