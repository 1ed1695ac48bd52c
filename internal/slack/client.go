package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/whatchicken/slack-dm-scraper/internal"
)

const (
	// DefaultBaseURL is the Slack Web API root
	DefaultBaseURL = "https://slack.com/api"

	historyMethod = "conversations.history"
)

// Client is an internal.HistoryAPI over conversations.history
type Client struct {
	baseURL string
	token   string
	channel string
	limit   int
	cookies map[string]string
	http    *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at another API root, e.g. a test server
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithLimit sets the page size
func WithLimit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithCookies attaches browser session cookies. Tokens issued to the web
// client (xoxc-) are only accepted together with the "d" cookie.
func WithCookies(cookies map[string]string) Option {
	return func(c *Client) { c.cookies = cookies }
}

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// NewClient creates a Client for one conversation
func NewClient(token, channel string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, errors.New("slack token is required")
	}
	if channel == "" {
		return nil, errors.New("slack channel is required")
	}
	c := &Client{
		baseURL: DefaultBaseURL,
		token:   token,
		channel: channel,
		limit:   200,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Channel returns the conversation ID this client reads
func (c *Client) Channel() string {
	return c.channel
}

// FetchPage implements internal.HistoryAPI. before maps to the API's
// "latest" bound.
func (c *Client) FetchPage(ctx context.Context, before, cursor string) (*internal.HistoryPage, error) {
	form := url.Values{}
	form.Set("channel", c.channel)
	form.Set("limit", strconv.Itoa(c.limit))
	if cursor != "" {
		form.Set("cursor", cursor)
	}
	if before != "" {
		form.Set("latest", before)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+historyMethod, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")
	req.Header.Set("Authorization", "Bearer "+c.token)
	for name, value := range c.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	if res.StatusCode == http.StatusTooManyRequests {
		return nil, &internal.APIError{Method: historyMethod, Code: internal.RateLimitedCode, Status: res.StatusCode}
	}
	if res.StatusCode >= 300 {
		return nil, &internal.APIError{Method: historyMethod, Code: "http_error", Status: res.StatusCode}
	}

	var payload struct {
		OK               bool                  `json:"ok"`
		Error            string                `json:"error"`
		Messages         []internal.RawMessage `json:"messages"`
		HasMore          bool                  `json:"has_more"`
		ResponseMetadata struct {
			NextCursor string `json:"next_cursor"`
		} `json:"response_metadata"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	if !payload.OK {
		code := payload.Error
		if code == "" {
			code = "unknown_error"
		}
		return nil, &internal.APIError{Method: historyMethod, Code: code, Status: res.StatusCode}
	}

	internal.LogDebug("%s: %d messages, has_more=%t", historyMethod, len(payload.Messages), payload.HasMore)
	return &internal.HistoryPage{
		Messages:   payload.Messages,
		NextCursor: payload.ResponseMetadata.NextCursor,
	}, nil
}
