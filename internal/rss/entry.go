package rss

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// Entry is one syndication item. Identity is the feed GUID, else the link,
// else empty. PublishedAt is nil when the feed carried no usable timestamp.
type Entry struct {
	Identity    string
	Title       string
	Summary     string
	Link        string
	PublishedAt *time.Time
	Source      string
}

// HasIdentity reports whether the entry carries a stable identity key.
func (e Entry) HasIdentity() bool {
	return e.Identity != ""
}

// fromItem converts a parsed feed item. ok is false for items that have
// neither title nor link.
func fromItem(item *gofeed.Item, source string) (Entry, bool) {
	if item == nil {
		return Entry{}, false
	}

	e := Entry{
		Title:   strings.TrimSpace(item.Title),
		Link:    strings.TrimSpace(item.Link),
		Summary: plainText(item.Description),
		Source:  source,
	}
	if e.Title == "" && e.Link == "" {
		return Entry{}, false
	}

	e.Identity = strings.TrimSpace(item.GUID)
	if e.Identity == "" {
		e.Identity = e.Link
	}

	switch {
	case item.PublishedParsed != nil:
		t := *item.PublishedParsed
		e.PublishedAt = &t
	case item.UpdatedParsed != nil:
		t := *item.UpdatedParsed
		e.PublishedAt = &t
	}

	return e, true
}

// plainText strips markup from feed descriptions and collapses whitespace.
func plainText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.ContainsAny(s, "<&") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}
	return strings.Join(strings.Fields(s), " ")
}
