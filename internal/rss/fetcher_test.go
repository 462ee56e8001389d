package rss

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/citynews/internal/logger"
)

const testUA = "CityBot-Test/1.0"

const rssDoc = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>t</title>
<item>
  <title>Bridge closes for repairs</title>
  <link>https://news.example/bridge</link>
  <guid>bridge-1</guid>
  <description>&lt;p&gt;The &lt;b&gt;old&lt;/b&gt; bridge   closes.&lt;/p&gt;</description>
  <pubDate>Mon, 06 Oct 2025 10:00:00 +0000</pubDate>
</item>
<item>
  <title>Undated story</title>
  <link>https://news.example/undated</link>
</item>
<item>
  <description>no title, no link</description>
</item>
</channel></rss>`

const atomDoc = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom"><title>a</title>
<entry>
  <title>Market reopens</title>
  <link href="https://atom.example/market"/>
  <updated>2025-10-06T09:00:00Z</updated>
  <summary>Stalls are back.</summary>
</entry>
</feed>`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/rss", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != testUA {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(rssDoc))
	})
	mux.HandleFunc("/atom", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(atomDoc))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/garbage", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("this is not a feed"))
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch_RSS(t *testing.T) {
	srv := newServer(t)
	f := NewFetcher(time.Second, testUA, logger.Discard())

	entries, dropped, err := f.Fetch(context.Background(), srv.URL+"/rss")
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)
	require.Len(t, entries, 2)

	first := entries[0]
	assert.Equal(t, "bridge-1", first.Identity)
	assert.Equal(t, "Bridge closes for repairs", first.Title)
	assert.Equal(t, "The old bridge closes.", first.Summary)
	assert.Equal(t, srv.URL+"/rss", first.Source)
	require.NotNil(t, first.PublishedAt)
	assert.True(t, first.PublishedAt.Equal(time.Date(2025, 10, 6, 10, 0, 0, 0, time.UTC)))

	undated := entries[1]
	assert.Equal(t, "https://news.example/undated", undated.Identity, "identity falls back to link")
	assert.Nil(t, undated.PublishedAt)
}

func TestFetch_AtomUsesUpdated(t *testing.T) {
	srv := newServer(t)
	f := NewFetcher(time.Second, testUA, logger.Discard())

	entries, _, err := f.Fetch(context.Background(), srv.URL+"/atom")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].PublishedAt)
	assert.Equal(t, "Stalls are back.", entries[0].Summary)
}

func TestFetch_Failures(t *testing.T) {
	srv := newServer(t)
	f := NewFetcher(200*time.Millisecond, testUA, logger.Discard())

	_, _, err := f.Fetch(context.Background(), srv.URL+"/missing")
	assert.True(t, errors.Is(err, ErrStatus))

	_, _, err = f.Fetch(context.Background(), srv.URL+"/garbage")
	assert.Error(t, err)

	_, _, err = f.Fetch(context.Background(), srv.URL+"/slow")
	assert.Error(t, err)
}

func TestFetch_RejectsDefaultClientIdentity(t *testing.T) {
	srv := newServer(t)
	f := NewFetcher(time.Second, "Go-http-client/1.1", logger.Discard())

	_, _, err := f.Fetch(context.Background(), srv.URL+"/rss")
	assert.ErrorIs(t, err, ErrStatus)
}

func TestFetchAll_PartialFailure(t *testing.T) {
	srv := newServer(t)
	f := NewFetcher(200*time.Millisecond, testUA, logger.Discard())

	urls := []string{srv.URL + "/slow", srv.URL + "/rss", srv.URL + "/atom"}
	start := time.Now()
	entries, results := f.FetchAll(context.Background(), urls)

	assert.Less(t, time.Since(start), 2*time.Second, "slow source must not stall the run")
	require.Len(t, results, 3)
	assert.Error(t, results[0].Err)
	assert.NoError(t, results[1].Err)
	assert.NoError(t, results[2].Err)
	assert.Equal(t, 1, results[1].Dropped)

	require.Len(t, entries, 3)
	assert.Equal(t, "Bridge closes for repairs", entries[0].Title)
	assert.Equal(t, "Undated story", entries[1].Title)
	assert.Equal(t, "Market reopens", entries[2].Title)
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "", plainText("   "))
	assert.Equal(t, "plain words", plainText(" plain \n words "))
	assert.Equal(t, "Fish & chips", plainText("<i>Fish</i> &amp; chips"))
}
