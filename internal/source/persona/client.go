// Package persona fetches individual inquiries and business cases from the
// verification provider's paginated API.
package persona

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"kyclens/internal/source"
)

// Item is one raw record from the provider: an opaque id plus the attribute
// map the normalizers pick fields out of.
type Item struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	Attributes    map[string]any `json:"attributes"`
	Relationships map[string]any `json:"relationships,omitempty"`
}

type page struct {
	Data  []Item `json:"data"`
	Links struct {
		Next string `json:"next"`
	} `json:"links"`
}

// PageMode selects how the continuation in links.next is applied to the next
// request. Both endpoints paginate through links.next, but they encode the
// continuation differently; this is the single configurable strategy covering
// both.
type PageMode int

const (
	// PageModeInline adopts every query parameter found on the next link.
	// The inquiries endpoint inlines its full parameter set.
	PageModeInline PageMode = iota
	// PageModeAfterCursor keeps the configured page size and extracts only
	// the after-cursor token from the next link's URL-encoded query. The
	// cases endpoint paginates this way.
	PageModeAfterCursor
)

const afterParam = "page[after]"

// Client talks to the provider with a bearer token.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	pageSize    int
	pageTimeout time.Duration
	maxRetries  int
	logger      *slog.Logger
}

type Option func(*Client)

func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

func WithPageTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pageTimeout = d
		}
	}
}

func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New constructs a provider client.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{},
		baseURL:     baseURL,
		apiKey:      apiKey,
		pageSize:    100,
		pageTimeout: 15 * time.Second,
		maxRetries:  2,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Inquiries fetches every individual inquiry. Rows still in the provider's
// initial "created" state carry no reviewable data and are dropped at the
// source, matching the legacy tool.
func (c *Client) Inquiries(ctx context.Context) ([]Item, error) {
	return c.fetchAll(ctx, source.Inquiries, "inquiries", PageModeInline, "created")
}

// Cases fetches every business case, dropping rows still in the provider's
// "open" intake state.
func (c *Client) Cases(ctx context.Context) ([]Item, error) {
	return c.fetchAll(ctx, source.Cases, "cases", PageModeAfterCursor, "open")
}

// fetchAll walks links.next until exhaustion. Any transport or non-success
// failure aborts the whole fetch: partial data is never returned.
func (c *Client) fetchAll(ctx context.Context, src, endpoint string, mode PageMode, dropStatus string) ([]Item, error) {
	params := url.Values{}
	params.Set("page[limit]", strconv.Itoa(c.pageSize))

	var items []Item
	for pageNum := 1; ; pageNum++ {
		pageURL := c.baseURL + "/" + endpoint + "?" + params.Encode()

		p, err := c.getPage(ctx, pageURL)
		if err != nil {
			return nil, source.NewFetchError(src, endpoint, err)
		}

		for _, item := range p.Data {
			if dropStatus != "" && rawStatus(item) == dropStatus {
				continue
			}
			items = append(items, item)
		}

		if p.Links.Next == "" {
			break
		}
		next, err := nextParams(p.Links.Next, mode, params)
		if err != nil {
			return nil, source.NewFetchError(src, endpoint, err)
		}
		if next == nil {
			break
		}
		params = next

		if c.logger != nil {
			c.logger.DebugContext(ctx, "following next page",
				"source", src,
				"page", pageNum+1,
			)
		}
	}
	return items, nil
}

// nextParams derives the next request's query from links.next. Returns nil
// when the link carries no usable continuation.
func nextParams(next string, mode PageMode, prev url.Values) (url.Values, error) {
	u, err := url.Parse(next)
	if err != nil {
		return nil, fmt.Errorf("parse next link: %w", err)
	}
	q := u.Query()

	switch mode {
	case PageModeAfterCursor:
		after := q.Get(afterParam)
		if after == "" {
			return nil, nil
		}
		params := url.Values{}
		params.Set("page[limit]", prev.Get("page[limit]"))
		params.Set(afterParam, after)
		return params, nil
	default:
		if len(q) == 0 {
			return nil, nil
		}
		if q.Get("page[limit]") == "" {
			q.Set("page[limit]", prev.Get("page[limit]"))
		}
		return q, nil
	}
}

func (c *Client) getPage(ctx context.Context, pageURL string) (*page, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		p, retryable, err := c.doPage(ctx, pageURL)
		if err == nil {
			return p, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return nil, lastErr
}

func (c *Client) doPage(ctx context.Context, pageURL string) (_ *page, retryable bool, _ error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.pageTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport errors are the transient class worth retrying.
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, false, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var p page
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, false, fmt.Errorf("decode page: %w", err)
	}
	return &p, false, nil
}

func rawStatus(item Item) string {
	s, _ := item.Attributes["status"].(string)
	return s
}
