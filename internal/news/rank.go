package news

import (
	"sort"

	"github.com/deusflow/citynews/internal/rss"
)

// Rank orders entries newest first. Equal timestamps keep their input order,
// so identical inputs always rank identically. Undated entries sink to the
// end. The input slice is not modified.
func Rank(entries []rss.Entry) []rss.Entry {
	ranked := make([]rss.Entry, len(entries))
	copy(ranked, entries)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].PublishedAt, ranked[j].PublishedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.After(*b)
	})
	return ranked
}
