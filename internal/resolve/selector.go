package resolve

import (
	"strings"

	"playtime/internal/hltb"
	"playtime/internal/textutil"
)

// minDistanceThreshold is the floor of the accept window. Short titles get
// at least this much slack; longer titles get 20% of their rune length.
const minDistanceThreshold = 5

type matchCandidate struct {
	record   hltb.GameRecord
	distance int
}

type selection struct {
	best       matchCandidate
	contenders []matchCandidate
	exact      bool
	ok         bool
}

func distanceThreshold(query, title string) int {
	longer := len([]rune(query))
	if n := len([]rune(title)); n > longer {
		longer = n
	}
	if limit := longer / 5; limit > minDistanceThreshold {
		return limit
	}
	return minDistanceThreshold
}

// selectBestMatch picks the catalog candidate for a search query. A
// case-insensitive exact title wins outright. Otherwise every candidate
// within its pairwise distance threshold becomes a contender and the one
// with the minimum distance is chosen; ties keep the earliest contender,
// preserving the catalog's own relevance ordering.
func selectBestMatch(query string, results []hltb.SearchResult) selection {
	trimmed := strings.TrimSpace(query)
	for _, result := range results {
		if strings.EqualFold(strings.TrimSpace(result.Record.Title), trimmed) {
			return selection{
				best:  matchCandidate{record: result.Record},
				exact: true,
				ok:    true,
			}
		}
	}
	var sel selection
	for _, result := range results {
		distance := textutil.Distance(query, result.Record.Title)
		if distance > distanceThreshold(query, result.Record.Title) {
			continue
		}
		candidate := matchCandidate{record: result.Record, distance: distance}
		sel.contenders = append(sel.contenders, candidate)
		if !sel.ok || candidate.distance < sel.best.distance {
			sel.best = candidate
			sel.ok = true
		}
	}
	return sel
}
