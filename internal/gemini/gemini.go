// Package gemini wraps the Gemini API for the two calls the pipeline needs:
// text embeddings for topic fingerprints and one-line headline summaries.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/deusflow/citynews/internal/ratelimit"
)

var (
	ErrBudgetExhausted = errors.New("gemini: request budget exhausted")
	ErrEmptyEmbedding  = errors.New("gemini: empty embedding")
	ErrEmptyResponse   = errors.New("gemini: no response text")
)

type Options struct {
	EmbedModel   string
	SummaryModel string
	Budget       *ratelimit.Budget // nil means unlimited
	Logger       *slog.Logger
}

type Client struct {
	client *genai.Client
	embed  *genai.EmbeddingModel
	writer *genai.GenerativeModel
	budget *ratelimit.Budget
	logger *slog.Logger
}

func NewClient(ctx context.Context, apiKey string, opts Options) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	if opts.EmbedModel == "" {
		opts.EmbedModel = "text-embedding-004"
	}
	if opts.SummaryModel == "" {
		opts.SummaryModel = "gemini-1.5-flash"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	writer := client.GenerativeModel(opts.SummaryModel)
	writer.SetTemperature(0.3)

	return &Client{
		client: client,
		embed:  client.EmbeddingModel(opts.EmbedModel),
		writer: writer,
		budget: opts.Budget,
		logger: opts.Logger,
	}, nil
}

func (c *Client) Close() {
	if c.client != nil {
		if err := c.client.Close(); err != nil {
			c.logger.Warn("gemini: close client", "err", err)
		}
	}
}

// Embed returns the embedding vector of text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := c.use(ratelimit.ProviderEmbed); err != nil {
		return nil, err
	}

	res, err := c.embed.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini: embed: %w", err)
	}
	return embeddingValues(res)
}

// Headline summarises title in at most fifteen words in lang, prefixed with
// one emoji.
func (c *Client) Headline(ctx context.Context, title, lang string) (string, error) {
	if err := c.use(ratelimit.ProviderGenerate); err != nil {
		return "", err
	}

	resp, err := c.writer.GenerateContent(ctx, genai.Text(headlinePrompt(title, lang)))
	if err != nil {
		return "", fmt.Errorf("gemini: generate: %w", err)
	}
	return responseText(resp)
}

func (c *Client) use(provider string) error {
	if c.budget == nil {
		return nil
	}
	if err := c.budget.Use(provider); err != nil {
		return fmt.Errorf("%w: %v", ErrBudgetExhausted, err)
	}
	return nil
}

func headlinePrompt(title, lang string) string {
	return fmt.Sprintf("Summarise the headline '%s' in ≤15 words, keep language %s, add one emoji prefix.", title, lang)
}

func embeddingValues(res *genai.EmbedContentResponse) ([]float32, error) {
	if res == nil || res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return res.Embedding.Values, nil
}

// responseText joins the text parts of the first candidate and keeps the
// first non-empty line, without wrapping quotes.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}

	for _, line := range strings.Split(b.String(), "\n") {
		line = strings.Trim(strings.TrimSpace(line), `"'`)
		if line != "" {
			return line, nil
		}
	}
	return "", ErrEmptyResponse
}
