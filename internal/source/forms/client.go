// Package forms fetches the dynamic form-submission export: one request, no
// pagination, bearer token.
package forms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"kyclens/internal/source"
)

// Answer is one typed question/answer pair from a submission.
type Answer struct {
	Field  string  `json:"field"`
	Type   string  `json:"type"`
	Text   string  `json:"text,omitempty"`
	Email  string  `json:"email,omitempty"`
	Number float64 `json:"number,omitempty"`
}

// Submission is one exported form submission: pre-filled hidden fields plus
// the answer list.
type Submission struct {
	ID          string            `json:"id"`
	SubmittedAt time.Time         `json:"submitted_at"`
	Hidden      map[string]string `json:"hidden"`
	Answers     []Answer          `json:"answers"`
}

// AnswerByField returns the first answer for the given field ref.
func (s Submission) AnswerByField(field string) (Answer, bool) {
	for _, a := range s.Answers {
		if a.Field == field {
			return a, true
		}
	}
	return Answer{}, false
}

type export struct {
	Items []Submission `json:"items"`
}

// Client fetches the export endpoint.
type Client struct {
	httpClient *http.Client
	url        string
	token      string
}

// New constructs a forms client.
func New(url, token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		url:        url,
		token:      token,
	}
}

// WithHTTPClient swaps the underlying HTTP client, mainly for tests.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.httpClient = h
	return c
}

// Submissions fetches every exported submission.
func (c *Client) Submissions(ctx context.Context) ([]Submission, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, source.NewFetchError(source.Forms, c.url, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, source.NewFetchError(source.Forms, c.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, source.NewFetchError(source.Forms, c.url, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var body export
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, source.NewFetchError(source.Forms, c.url, fmt.Errorf("decode export: %w", err))
	}
	return body.Items, nil
}
