package discovery

import (
	"cmp"
	"slices"
	"strings"

	"github.com/anonto42/brand-radar/backend/pkg/reddit"
)

// NormalizeKeywords trims keywords and drops blanks and case-insensitive
// duplicates. The first spelling of a keyword wins.
func NormalizeKeywords(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		key := strings.ToLower(kw)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, kw)
	}
	return out
}

// Relevant keeps open posts whose title or body mentions any keyword.
// lowered must already be lower-cased.
func Relevant(p reddit.Post, lowered []string) bool {
	if p.Locked || p.Archived {
		return false
	}
	content := strings.ToLower(p.Title + " " + p.SelfText)
	for _, kw := range lowered {
		if strings.Contains(content, kw) {
			return true
		}
	}
	return false
}

// Rank merges per-keyword batches in order, filters them, collapses duplicate
// ids and returns at most limit posts by descending engagement.
//
// A duplicate keeps the position of its first sighting and the data of its
// last one. Ties keep merge order, so identical input ranks identically.
func Rank(batches [][]reddit.Post, keywords []string, limit int) []reddit.Post {
	lowered := make([]string, len(keywords))
	for i, kw := range keywords {
		lowered[i] = strings.ToLower(kw)
	}

	index := make(map[string]int)
	merged := make([]reddit.Post, 0)
	for _, batch := range batches {
		for _, p := range batch {
			if !Relevant(p, lowered) {
				continue
			}
			if i, ok := index[p.ID]; ok {
				merged[i] = p
				continue
			}
			index[p.ID] = len(merged)
			merged = append(merged, p)
		}
	}

	slices.SortStableFunc(merged, func(a, b reddit.Post) int {
		return cmp.Compare(b.Engagement(), a.Engagement())
	})

	if limit >= 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
