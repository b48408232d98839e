// Package client talks to the evidenca HTTP API. Adjustment requests are
// checked against the item's current buckets before they are sent, so an
// obviously impossible request never reaches the server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/erazemk/evidenca/internal/ledger"
	"github.com/erazemk/evidenca/internal/model"
)

// DefaultTimeout bounds a single API call when Options.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// RequestInput is an adjustment request as submitted by a user.
type RequestInput = model.RecordInput

// Options configure a Client. The zero value is usable.
type Options struct {
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client is an API client bound to one server and, after Login, one user.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// APIError is returned for every failed call. Status is 0 when the server
// could not be reached.
type APIError struct {
	Status  int
	Message string
	// Insufficient is set when the server refused an adjustment for lack
	// of quantity in a bucket.
	Insufficient *ledger.InsufficientError

	err error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return "request failed: " + e.Message
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.Insufficient != nil {
		return e.Insufficient
	}
	return e.err
}

// New creates a client for the server at baseURL. token may be empty and
// set later through Login.
func New(baseURL, token string, opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: hc,
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
	}
}

// Token returns the bearer token in use.
func (c *Client) Token() string {
	return c.token
}

// errorBody covers both plain errors and refused adjustments.
type errorBody struct {
	Error     string        `json:"error"`
	Kind      ledger.Kind   `json:"kind"`
	Bucket    ledger.Bucket `json:"bucket"`
	Available int           `json:"available"`
	Requested int           `json:"requested"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Message: err.Error(), err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var eb errorBody
		if err := json.NewDecoder(resp.Body).Decode(&eb); err != nil || eb.Error == "" {
			eb.Error = http.StatusText(resp.StatusCode)
		}
		apiErr := &APIError{Status: resp.StatusCode, Message: eb.Error}
		if eb.Bucket != "" {
			apiErr.Insufficient = &ledger.InsufficientError{
				Kind:      eb.Kind,
				Bucket:    eb.Bucket,
				Available: eb.Available,
				Requested: eb.Requested,
			}
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Login exchanges credentials for a token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, username, password string) (*model.User, error) {
	var resp struct {
		Token string      `json:"token"`
		User  *model.User `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	c.token = resp.Token
	return resp.User, nil
}

// ListItems returns the live items of block.
func (c *Client) ListItems(ctx context.Context, block string) ([]model.Item, error) {
	var items []model.Item
	if err := c.do(ctx, http.MethodGet, "/api/"+url.PathEscape(block)+"/items", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetItem returns the current snapshot of one item.
func (c *Client) GetItem(ctx context.Context, block string, id int64) (*model.Item, error) {
	var item model.Item
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/%s/items/%d", url.PathEscape(block), id), nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// ListRecords returns the records of block. status is "pending",
// "approved", "declined" or empty for all.
func (c *Client) ListRecords(ctx context.Context, block, status string) ([]model.Record, error) {
	path := "/api/" + url.PathEscape(block) + "/records"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}

	var records []model.Record
	if err := c.do(ctx, http.MethodGet, path, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// SubmitRequest files an adjustment request. The item is fetched first and
// the request checked against its buckets; a request that cannot fit is
// returned as a *ledger.InsufficientError without contacting the records
// endpoint. The server checks again on submission and on approval.
func (c *Client) SubmitRequest(ctx context.Context, block string, in RequestInput) (*model.Record, error) {
	kind, err := ledger.ParseKind(in.Kind)
	if err != nil {
		return nil, err
	}
	if in.Amount <= 0 {
		return nil, ledger.ErrInvalidQuantity
	}

	item, err := c.GetItem(ctx, block, in.ItemID)
	if err != nil {
		return nil, err
	}
	if err := ledger.Validate(item.Quantity, kind, in.Amount); err != nil {
		return nil, err
	}

	var rec model.Record
	if err := c.do(ctx, http.MethodPost, "/api/"+url.PathEscape(block)+"/records", in, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Approve applies a pending record to its item.
func (c *Client) Approve(ctx context.Context, block string, id int64) (*model.Record, error) {
	var rec model.Record
	path := fmt.Sprintf("/api/%s/records/%d/approve", url.PathEscape(block), id)
	if err := c.do(ctx, http.MethodPatch, path, nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Decline rejects a pending record.
func (c *Client) Decline(ctx context.Context, block string, id int64) (*model.Record, error) {
	var rec model.Record
	path := fmt.Sprintf("/api/%s/records/%d", url.PathEscape(block), id)
	if err := c.do(ctx, http.MethodDelete, path, nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
