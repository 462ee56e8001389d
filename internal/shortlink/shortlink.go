// Package shortlink shortens article links through the TinyURL create API.
package shortlink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/deusflow/citynews/internal/retry"
)

const DefaultEndpoint = "https://tinyurl.com/api-create.php"

var errBadReply = errors.New("shortlink: reply is not a URL")

type Options struct {
	Endpoint  string
	MinLength int // links shorter than this are returned as is
	Attempts  int
	Timeout   time.Duration // per attempt
	Delay     time.Duration
	Client    *http.Client
	Logger    *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Endpoint == "" {
		o.Endpoint = DefaultEndpoint
	}
	if o.MinLength <= 0 {
		o.MinLength = 30
	}
	if o.Attempts <= 0 {
		o.Attempts = 3
	}
	if o.Timeout <= 0 {
		o.Timeout = 2 * time.Second
	}
	if o.Delay <= 0 {
		o.Delay = 200 * time.Millisecond
	}
	if o.Client == nil {
		o.Client = &http.Client{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

type Shortener struct {
	opts Options
}

func New(opts Options) *Shortener {
	return &Shortener{opts: opts.withDefaults()}
}

// Shorten returns the short form of link, or link itself when it is already
// short or the service cannot be reached.
func (s *Shortener) Shorten(ctx context.Context, link string) string {
	if len(link) < s.opts.MinLength {
		return link
	}

	var short string
	err := retry.Do(ctx, retry.Config{MaxAttempts: s.opts.Attempts, Delay: s.opts.Delay}, func(ctx context.Context) error {
		var err error
		short, err = s.once(ctx, link)
		return err
	})
	if err != nil {
		s.opts.Logger.Debug("shortlink: falling back to original link", "url", link, "err", err)
		return link
	}
	return short
}

func (s *Shortener) once(ctx context.Context, link string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	endpoint := s.opts.Endpoint + "?url=" + url.QueryEscape(link)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("shortlink: build request: %w", err))
	}

	resp, err := s.opts.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("shortlink: request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			s.opts.Logger.Warn("shortlink: failed to close response body", "err", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("shortlink: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return "", fmt.Errorf("shortlink: read body: %w", err)
	}

	short := strings.TrimSpace(string(body))
	if !strings.HasPrefix(short, "http") {
		return "", errBadReply
	}
	return short, nil
}
