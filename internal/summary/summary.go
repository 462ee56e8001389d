// Package summary turns an admitted entry into the single line that goes
// into a tenant's message.
package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/deusflow/citynews/internal/rss"
)

const arrow = " → "

type Summarizer interface {
	Summarize(ctx context.Context, e rss.Entry, lang string) (string, error)
}

// Writer produces a short headline for title in lang.
type Writer interface {
	Headline(ctx context.Context, title, lang string) (string, error)
}

// Shortener never fails; it returns the input link when it cannot shorten.
type Shortener interface {
	Shorten(ctx context.Context, link string) string
}

// Headline asks a Writer for a one-line summary and appends the shortened
// article link.
type Headline struct {
	writer    Writer
	shortener Shortener
}

func NewHeadline(writer Writer, shortener Shortener) *Headline {
	return &Headline{writer: writer, shortener: shortener}
}

func (h *Headline) Summarize(ctx context.Context, e rss.Entry, lang string) (string, error) {
	title := strings.TrimSpace(e.Title)
	if title == "" {
		return "", errors.New("summary: entry has no title")
	}

	line, err := h.writer.Headline(ctx, title, lang)
	if err != nil {
		return "", fmt.Errorf("summary: %w", err)
	}

	return join(line, h.link(ctx, e.Link)), nil
}

func (h *Headline) link(ctx context.Context, link string) string {
	if link == "" || h.shortener == nil {
		return link
	}
	return h.shortener.Shorten(ctx, link)
}

// Plain formats the feed title as is. It is used when no writer is
// configured.
type Plain struct{}

func (Plain) Summarize(_ context.Context, e rss.Entry, _ string) (string, error) {
	title := strings.TrimSpace(e.Title)
	if title == "" {
		title = e.Link
	}
	return join("📰 "+title, e.Link), nil
}

func join(text, link string) string {
	text = strings.TrimSpace(text)
	if link == "" {
		return text
	}
	return text + arrow + link
}
