// Package news holds the recency filter and the ranker applied to fetched
// entries before deduplication.
package news

import (
	"time"

	"github.com/deusflow/citynews/internal/rss"
)

// DefaultWindow is the rolling eligibility window.
const DefaultWindow = 24 * time.Hour

// IsRecent reports whether e was published within window of now, measured
// in loc. Entries without a timestamp are never recent. The bound is
// inclusive: an entry published exactly window ago passes.
func IsRecent(e rss.Entry, now time.Time, loc *time.Location, window time.Duration) bool {
	if e.PublishedAt == nil {
		return false
	}
	if loc == nil {
		loc = time.UTC
	}
	age := now.In(loc).Sub(e.PublishedAt.In(loc))
	return age <= window
}

// Stats counts why entries were filtered out.
type Stats struct {
	Kept    int
	Stale   int
	Undated int
}

// FilterRecent keeps recent entries in their original order.
func FilterRecent(entries []rss.Entry, now time.Time, loc *time.Location, window time.Duration) ([]rss.Entry, Stats) {
	var stats Stats
	kept := make([]rss.Entry, 0, len(entries))
	for _, e := range entries {
		switch {
		case e.PublishedAt == nil:
			stats.Undated++
		case IsRecent(e, now, loc, window):
			kept = append(kept, e)
		default:
			stats.Stale++
		}
	}
	stats.Kept = len(kept)
	return kept, stats
}
