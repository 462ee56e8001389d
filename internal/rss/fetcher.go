// Package rss retrieves syndication feeds and turns them into entries.
package rss

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"
)

var ErrStatus = errors.New("rss: unexpected status")

// SourceResult is the outcome of fetching one source in a run.
type SourceResult struct {
	URL      string
	Entries  int
	Dropped  int
	Err      error
	Duration time.Duration
}

// Fetcher downloads and parses feeds. Each source gets its own timeout.
type Fetcher struct {
	parser  *gofeed.Parser
	timeout time.Duration
	logger  *slog.Logger
}

// NewFetcher creates a fetcher that identifies itself with userAgent.
func NewFetcher(timeout time.Duration, userAgent string, log *slog.Logger) *Fetcher {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	parser.Client = &http.Client{Timeout: timeout}

	if log == nil {
		log = slog.Default()
	}

	return &Fetcher{
		parser:  parser,
		timeout: timeout,
		logger:  log,
	}
}

// Fetch retrieves and parses a single feed. Items without title and link are
// dropped; the second return value counts them.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]Entry, int, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	feed, err := f.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		var httpErr gofeed.HTTPError
		if errors.As(err, &httpErr) {
			return nil, 0, fmt.Errorf("%w %d from %s", ErrStatus, httpErr.StatusCode, url)
		}
		return nil, 0, fmt.Errorf("rss: parse %s: %w", url, err)
	}

	entries := make([]Entry, 0, len(feed.Items))
	dropped := 0
	for _, item := range feed.Items {
		e, ok := fromItem(item, url)
		if !ok {
			dropped++
			continue
		}
		entries = append(entries, e)
	}

	return entries, dropped, nil
}

// FetchAll fetches every source concurrently and waits for all of them to
// settle. Failed sources contribute nothing. Entries are returned in source
// order, then feed order, regardless of completion order.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) ([]Entry, []SourceResult) {
	perSource := make([][]Entry, len(urls))
	results := make([]SourceResult, len(urls))

	var g errgroup.Group
	for i, url := range urls {
		i, url := i, url
		g.Go(func() error {
			start := time.Now()
			entries, dropped, err := f.Fetch(ctx, url)
			results[i] = SourceResult{
				URL:      url,
				Entries:  len(entries),
				Dropped:  dropped,
				Err:      err,
				Duration: time.Since(start),
			}
			if err != nil {
				f.logger.Warn("rss: source failed", "source", url, "err", err)
				return nil
			}
			perSource[i] = entries
			f.logger.Debug("rss: source loaded", "source", url, "entries", len(entries), "dropped", dropped)
			return nil
		})
	}
	_ = g.Wait()

	var all []Entry
	ok := 0
	for i := range urls {
		if results[i].Err == nil {
			ok++
		}
		all = append(all, perSource[i]...)
	}

	f.logger.Info("rss: processed feeds", "ok", ok, "total", len(urls), "entries", len(all))
	return all, results
}
