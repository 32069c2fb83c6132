package tui

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/proofsheet/tablo/internal/domain"
)

// JumpTarget returns the index of the photo whose filename best matches
// query. Matches are ranked by edit distance; on a tie an exact prefix
// wins, then the earlier photo.
func JumpTarget(query string, photos []domain.Photo) (int, bool) {
	query = strings.TrimSpace(query)
	if query == "" || len(photos) == 0 {
		return 0, false
	}

	names := make([]string, len(photos))
	for i, p := range photos {
		names[i] = p.Filename
	}

	matches := fuzzy.RankFindFold(query, names)
	if len(matches) == 0 {
		return closestByDistance(query, names)
	}

	lower := strings.ToLower(query)
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		ap := strings.HasPrefix(strings.ToLower(a.Target), lower)
		bp := strings.HasPrefix(strings.ToLower(b.Target), lower)
		if ap != bp {
			return ap
		}
		return a.OriginalIndex < b.OriginalIndex
	})
	return matches[0].OriginalIndex, true
}

// closestByDistance falls back to edit distance against filename
// prefixes of the query's length when the query is not a subsequence of
// any filename. Only reasonably close names qualify.
func closestByDistance(query string, names []string) (int, bool) {
	lower := strings.ToLower(query)
	n := len([]rune(lower))
	best, bestDist := -1, 0
	for i, name := range names {
		prefix := []rune(strings.ToLower(name))
		if len(prefix) > n {
			prefix = prefix[:n]
		}
		d := fuzzy.LevenshteinDistance(lower, string(prefix))
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 || bestDist > n/3 {
		return 0, false
	}
	return best, true
}
