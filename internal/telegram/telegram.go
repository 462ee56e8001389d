// Package telegram delivers composed messages through the Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/deusflow/citynews/internal/retry"
)

const DefaultBaseURL = "https://api.telegram.org"

type Options struct {
	BaseURL string
	Client  *http.Client
	Retry   retry.Config
	Logger  *slog.Logger
}

type Client struct {
	token   string
	baseURL string
	http    *http.Client
	retry   retry.Config
	logger  *slog.Logger
}

func NewClient(token string, opts Options) (*Client, error) {
	if token == "" {
		return nil, errors.New("telegram: token is required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.Config{MaxAttempts: 3, Delay: 2 * time.Second, Backoff: true}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		token:   token,
		baseURL: opts.BaseURL,
		http:    opts.Client,
		retry:   opts.Retry,
		logger:  opts.Logger,
	}, nil
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendMessage posts text to chatID as Markdown with link previews enabled.
// Server errors and rate limiting are retried; other client errors are not.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "Markdown",
	})
	if err != nil {
		return fmt.Errorf("telegram: encode request: %w", err)
	}

	attempt := 0
	err = retry.Do(ctx, c.retry, func(ctx context.Context) error {
		attempt++
		err := c.post(ctx, "sendMessage", body)
		if err != nil {
			c.logger.Warn("telegram: send failed", "chat_id", chatID, "attempt", attempt, "err", err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("telegram: send message: %w", err)
	}

	c.logger.Info("telegram: message sent", "chat_id", chatID, "attempt", attempt)
	return nil
}

func (c *Client) post(ctx context.Context, method string, body []byte) error {
	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Warn("telegram: failed to close response body", "err", err)
		}
	}(resp.Body)

	var out apiResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&out)

	if resp.StatusCode == http.StatusOK && out.OK {
		return nil
	}

	apiErr := fmt.Errorf("api error: status %d: %s", resp.StatusCode, out.Description)
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return retry.Permanent(apiErr)
	}
	return apiErr
}
