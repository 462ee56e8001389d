package fingerprint

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/citynews/internal/logger"
	"github.com/deusflow/citynews/internal/rss"
)

func TestLexicalKey(t *testing.T) {
	tests := []struct {
		title string
		words int
		want  string
	}{
		{"Mayor: \"New Park\" Opens, Today!", 8, "mayor new park opens today"},
		{"One two three four five six seven eight nine ten", 8, "one two three four five six seven eight"},
		{"U.S. envoy visits Chișinău", 8, "us envoy visits chișinău"},
		{"  ", 8, ""},
		{"a b c", 2, "a b"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LexicalKey(tt.title, tt.words), tt.title)
	}
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2, 3}, []float32{2, 4, 6}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 1}, []float32{-1, -1}), 1e-9)
	assert.Equal(t, 0.0, Cosine([]float32{1, 2}, []float32{1, 2, 3}))
	assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 2}))
	assert.Equal(t, 0.0, Cosine(nil, nil))
}

type fakeEmbedder struct {
	calls atomic.Int32
	vec   []float32
	err   error
	seen  string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls.Add(1)
	f.seen = text
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

func TestGenerator_Semantic(t *testing.T) {
	emb := &fakeEmbedder{vec: []float32{0.1, 0.2}}
	g := NewGenerator(emb, Options{}, logger.Discard())

	fp := g.Generate(context.Background(), rss.Entry{Title: "Title", Summary: "Body"})
	require.True(t, fp.IsSemantic())
	assert.Equal(t, []float32{0.1, 0.2}, fp.Vector)
	assert.Equal(t, "Title\nBody", emb.seen)
}

func TestGenerator_FallbackOnError(t *testing.T) {
	emb := &fakeEmbedder{err: errors.New("quota exceeded")}
	g := NewGenerator(emb, Options{KeyWords: 3}, logger.Discard())

	fp := g.Generate(context.Background(), rss.Entry{Title: "Big Fire Downtown, Again"})
	require.True(t, fp.IsLexical())
	assert.Equal(t, "big fire downtown", fp.Key)
}

func TestGenerator_FallbackOnEmptyVector(t *testing.T) {
	g := NewGenerator(&fakeEmbedder{}, Options{}, logger.Discard())
	fp := g.Generate(context.Background(), rss.Entry{Title: "x"})
	assert.True(t, fp.IsLexical())
}

func TestGenerator_NoEmbedder(t *testing.T) {
	g := NewGenerator(nil, Options{}, logger.Discard())
	fp := g.Generate(context.Background(), rss.Entry{Title: "Hello, World"})
	assert.Equal(t, Fingerprint{Kind: KindLexical, Key: "hello world"}, fp)
	assert.Nil(t, g.Memo())
}

func TestGenerator_MemoizesEmbeddings(t *testing.T) {
	emb := &fakeEmbedder{vec: []float32{1}}
	g := NewGenerator(emb, Options{CacheTTL: time.Hour}, logger.Discard())

	e := rss.Entry{Title: "Same", Summary: "story"}
	g.Generate(context.Background(), e)
	fp := g.Generate(context.Background(), e)

	assert.True(t, fp.IsSemantic())
	assert.Equal(t, int32(1), emb.calls.Load())
	assert.Equal(t, 1, g.Memo().Len())
}

func TestEmbeddingInput_Truncates(t *testing.T) {
	e := rss.Entry{Title: "Ț", Summary: strings.Repeat("ș", 2000)}
	in := EmbeddingInput(e, 1000)
	assert.Equal(t, 1000, len([]rune(in)))
	assert.True(t, strings.HasPrefix(in, "Ț\n"))
}
