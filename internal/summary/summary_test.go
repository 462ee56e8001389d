package summary

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/citynews/internal/rss"
)

type fakeWriter struct {
	out      string
	err      error
	gotTitle string
	gotLang  string
}

func (f *fakeWriter) Headline(ctx context.Context, title, lang string) (string, error) {
	f.gotTitle, f.gotLang = title, lang
	return f.out, f.err
}

type prefixShortener struct{}

func (prefixShortener) Shorten(ctx context.Context, link string) string {
	return "https://tinyurl.com/x"
}

func TestHeadline_Summarize(t *testing.T) {
	w := &fakeWriter{out: "🌳 Council backs new riverside park\n"}
	s := NewHeadline(w, prefixShortener{})

	got, err := s.Summarize(context.Background(), rss.Entry{
		Title: " Council approves riverside park plan ",
		Link:  "https://news.example.com/2024/05/10/park",
	}, "ro")
	require.NoError(t, err)
	assert.Equal(t, "🌳 Council backs new riverside park → https://tinyurl.com/x", got)
	assert.Equal(t, "Council approves riverside park plan", w.gotTitle)
	assert.Equal(t, "ro", w.gotLang)
}

func TestHeadline_WriterError(t *testing.T) {
	s := NewHeadline(&fakeWriter{err: errors.New("quota")}, prefixShortener{})
	_, err := s.Summarize(context.Background(), rss.Entry{Title: "t", Link: "l"}, "en")
	assert.Error(t, err)
}

func TestHeadline_NoTitle(t *testing.T) {
	w := &fakeWriter{out: "x"}
	_, err := NewHeadline(w, nil).Summarize(context.Background(), rss.Entry{Link: "https://a"}, "en")
	assert.Error(t, err)
	assert.Empty(t, w.gotTitle)
}

func TestHeadline_NoShortener(t *testing.T) {
	got, err := NewHeadline(&fakeWriter{out: "🚒 Fire out"}, nil).Summarize(context.Background(), rss.Entry{Title: "Fire", Link: "https://a.example/fire"}, "en")
	require.NoError(t, err)
	assert.Equal(t, "🚒 Fire out → https://a.example/fire", got)
}

func TestPlain(t *testing.T) {
	got, err := Plain{}.Summarize(context.Background(), rss.Entry{Title: "Bridge reopens", Link: "https://a.example/b"}, "en")
	require.NoError(t, err)
	assert.Equal(t, "📰 Bridge reopens → https://a.example/b", got)

	got, err = Plain{}.Summarize(context.Background(), rss.Entry{Title: "No link"}, "en")
	require.NoError(t, err)
	assert.Equal(t, "📰 No link", got)
}
