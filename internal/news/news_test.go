package news

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/citynews/internal/rss"
)

func at(t time.Time) *time.Time { return &t }

func TestIsRecent_Boundary(t *testing.T) {
	now := time.Date(2025, 10, 6, 12, 0, 0, 0, time.UTC)
	loc, err := time.LoadLocation("Europe/Chisinau")
	require.NoError(t, err)

	exact := rss.Entry{PublishedAt: at(now.Add(-DefaultWindow))}
	older := rss.Entry{PublishedAt: at(now.Add(-DefaultWindow - time.Nanosecond))}
	fresh := rss.Entry{PublishedAt: at(now.Add(-time.Hour))}
	undated := rss.Entry{}

	assert.True(t, IsRecent(exact, now, loc, DefaultWindow))
	assert.False(t, IsRecent(older, now, loc, DefaultWindow))
	assert.True(t, IsRecent(fresh, now, loc, DefaultWindow))
	assert.False(t, IsRecent(undated, now, loc, DefaultWindow))
}

func TestIsRecent_RollingAcrossMidnight(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	lateEvening := time.Date(2025, 10, 6, 23, 55, 0, 0, loc)
	justAfterMidnight := time.Date(2025, 10, 7, 0, 5, 0, 0, loc)
	published := rss.Entry{PublishedAt: at(time.Date(2025, 10, 6, 9, 0, 0, 0, loc))}

	assert.True(t, IsRecent(published, lateEvening, loc, DefaultWindow))
	assert.True(t, IsRecent(published, justAfterMidnight, loc, DefaultWindow), "window is rolling, not per calendar day")
}

func TestFilterRecent(t *testing.T) {
	now := time.Date(2025, 10, 6, 12, 0, 0, 0, time.UTC)
	entries := []rss.Entry{
		{Title: "a", PublishedAt: at(now.Add(-2 * time.Hour))},
		{Title: "b"},
		{Title: "c", PublishedAt: at(now.Add(-48 * time.Hour))},
		{Title: "d", PublishedAt: at(now.Add(-time.Hour))},
	}

	kept, stats := FilterRecent(entries, now, time.UTC, DefaultWindow)
	require.Len(t, kept, 2)
	assert.Equal(t, "a", kept[0].Title)
	assert.Equal(t, "d", kept[1].Title)
	assert.Equal(t, Stats{Kept: 2, Stale: 1, Undated: 1}, stats)
}

func TestRank_NewestFirstStable(t *testing.T) {
	base := time.Date(2025, 10, 6, 12, 0, 0, 0, time.UTC)
	entries := []rss.Entry{
		{Title: "old", PublishedAt: at(base.Add(-5 * time.Hour))},
		{Title: "tie-1", PublishedAt: at(base.Add(-time.Hour))},
		{Title: "undated"},
		{Title: "newest", PublishedAt: at(base)},
		{Title: "tie-2", PublishedAt: at(base.Add(-time.Hour))},
	}

	ranked := Rank(entries)

	titles := make([]string, len(ranked))
	for i, e := range ranked {
		titles[i] = e.Title
	}
	assert.Equal(t, []string{"newest", "tie-1", "tie-2", "old", "undated"}, titles)
	assert.Equal(t, "old", entries[0].Title, "input must not be reordered")
}

func TestRank_DeterministicAcrossArrivalOrders(t *testing.T) {
	base := time.Date(2025, 10, 6, 12, 0, 0, 0, time.UTC)
	a := rss.Entry{Title: "a", PublishedAt: at(base.Add(-3 * time.Hour))}
	b := rss.Entry{Title: "b", PublishedAt: at(base.Add(-time.Hour))}
	c := rss.Entry{Title: "c", PublishedAt: at(base.Add(-2 * time.Hour))}

	first := Rank([]rss.Entry{a, b, c})
	second := Rank([]rss.Entry{c, a, b})
	assert.Equal(t, first, second)
}
