package fingerprint

import (
	"context"
	"log/slog"
	"time"

	"github.com/deusflow/citynews/internal/cache"
	"github.com/deusflow/citynews/internal/metrics"
	"github.com/deusflow/citynews/internal/rss"
)

// Embedder turns text into a fixed-length vector. Failure is an expected
// outcome.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Options struct {
	MaxInputChars int
	KeyWords      int
	Timeout       time.Duration
	// CacheTTL bounds how long an embedding is reused for identical text.
	// Zero disables the memo.
	CacheTTL time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxInputChars <= 0 {
		o.MaxInputChars = 1000
	}
	if o.KeyWords <= 0 {
		o.KeyWords = 8
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	return o
}

// Generator computes fingerprints. It never fails: when the embedder is nil
// or errors, it falls back to the lexical key.
type Generator struct {
	embedder Embedder
	opts     Options
	memo     *cache.Cache[[]float32]
	logger   *slog.Logger
}

func NewGenerator(embedder Embedder, opts Options, log *slog.Logger) *Generator {
	if log == nil {
		log = slog.Default()
	}
	g := &Generator{
		embedder: embedder,
		opts:     opts.withDefaults(),
		logger:   log,
	}
	if g.opts.CacheTTL > 0 {
		g.memo = cache.New[[]float32]()
	}
	return g
}

// Memo exposes the embedding cache so the caller can run its janitor.
// Nil when caching is disabled.
func (g *Generator) Memo() *cache.Cache[[]float32] {
	return g.memo
}

func (g *Generator) Generate(ctx context.Context, e rss.Entry) Fingerprint {
	if g.embedder == nil {
		return Lexical(e.Title, g.opts.KeyWords)
	}

	text := EmbeddingInput(e, g.opts.MaxInputChars)
	key := cache.GenerateKey(text)
	if g.memo != nil {
		if vec, ok := g.memo.Get(key); ok {
			return Semantic(vec)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	vec, err := g.embedder.Embed(ctx, text)
	if err != nil || len(vec) == 0 {
		metrics.Global.IncrementEmbeddingFallbacks()
		g.logger.Debug("fingerprint: embedding failed, using lexical key", "title", e.Title, "err", err)
		return Lexical(e.Title, g.opts.KeyWords)
	}

	if g.memo != nil {
		g.memo.Set(key, vec, g.opts.CacheTTL)
	}
	return Semantic(vec)
}

// EmbeddingInput is title and summary joined by a newline, cut to max runes.
func EmbeddingInput(e rss.Entry, max int) string {
	text := e.Title + "\n" + e.Summary
	runes := []rune(text)
	if max > 0 && len(runes) > max {
		return string(runes[:max])
	}
	return text
}
