// Package client provides an HTTP client for the threadline JSON API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/evcraddock/threadline/internal/comment"
	"github.com/evcraddock/threadline/internal/mention"
	"github.com/evcraddock/threadline/internal/safety"
)

// Client is an HTTP client for the threadline API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Analysis is the response from POST /api/analyze.
type Analysis struct {
	Report   safety.Report   `json:"report"`
	Reason   string          `json:"reason,omitempty"`
	Filtered string          `json:"filtered_content"`
	Mentions []mention.Token `json:"mentions"`
}

// VoteResult is the response from POST /api/comments/{id}/vote.
type VoteResult struct {
	Comment *comment.Comment   `json:"comment"`
	Action  comment.VoteAction `json:"action"`
	Score   int64              `json:"score"`
}

// ListOptions filters ListComments. An empty Status lists approved comments.
type ListOptions struct {
	Status     string
	ParentOnly bool
	OrderBy    comment.OrderBy
	Ascending  bool
	Limit      int
	Offset     int
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "/health", nil)
}

// CreateComment posts a comment.
func (c *Client) CreateComment(ctx context.Context, in comment.CreateInput) (*comment.Comment, error) {
	var out comment.Comment
	if err := c.send(ctx, http.MethodPost, "/api/comments", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetComment returns a comment.
func (c *Client) GetComment(ctx context.Context, id int64) (*comment.Comment, error) {
	var out comment.Comment
	if err := c.get(ctx, fmt.Sprintf("/api/comments/%d", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListComments returns a target's comments.
func (c *Client) ListComments(ctx context.Context, targetType, targetID string, opts ListOptions) ([]*comment.Comment, error) {
	q := url.Values{}
	q.Set("target_type", targetType)
	q.Set("target_id", targetID)
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}
	if opts.ParentOnly {
		q.Set("parent_only", "true")
	}
	if opts.OrderBy != "" {
		q.Set("order_by", string(opts.OrderBy))
	}
	if opts.Ascending {
		q.Set("order", "asc")
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}

	var out []*comment.Comment
	if err := c.get(ctx, "/api/comments?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Moderate applies approve, reject, pin or unpin to a comment.
func (c *Client) Moderate(ctx context.Context, id int64, action string) (*comment.Comment, error) {
	var out comment.Comment
	if err := c.send(ctx, http.MethodPost, fmt.Sprintf("/api/comments/%d/%s", id, action), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Vote toggles a vote. The server identifies voters without an ID by their
// address.
func (c *Client) Vote(ctx context.Context, id int64, t comment.VoteType, voterID string) (*VoteResult, error) {
	body := map[string]string{"vote_type": string(t), "voter_id": voterID}
	var out VoteResult
	if err := c.send(ctx, http.MethodPost, fmt.Sprintf("/api/comments/%d/vote", id), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Analyze runs the server's safety checks over text.
func (c *Client) Analyze(ctx context.Context, text string) (*Analysis, error) {
	var out Analysis
	if err := c.send(ctx, http.MethodPost, "/api/analyze", map[string]string{"content": text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// get performs a GET request and decodes the response.
func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, result)
}

// send performs a request with an optional JSON body and decodes the response.
func (c *Client) send(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, result)
}

// do executes an HTTP request and handles errors.
func (c *Client) do(req *http.Request, result interface{}) (err error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing response body: %w", cerr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &Error{Status: resp.StatusCode, Message: errResp.Error}
		}
		return &Error{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}

// Error is a non-2xx API response.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}
