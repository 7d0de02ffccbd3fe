// Package gnocchi is an HTTP client for a Gnocchi-style metric/resource
// store, implementing the search interfaces consumed by the collector.
package gnocchi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/stackmeter/stackmeter/internal/filter"
	"github.com/stackmeter/stackmeter/internal/store"
)

const defaultTimeout = 30 * time.Second

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithAuthToken sets the X-Auth-Token header sent with every request.
func WithAuthToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// Client talks to the store's v1 REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var (
	_ store.ResourceSearcher = (*Client)(nil)
	_ store.MeasureFetcher   = (*Client)(nil)
)

// NewClient creates a store client for the given endpoint.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StoreError is a non-2xx response from the store. Transport and store
// failures propagate unmodified through the collector pipeline.
type StoreError struct {
	StatusCode int
	Message    string
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error (status %d): %s", e.StatusCode, e.Message)
}

// SearchResources posts a filter expression to the resource search
// endpoint for the given kind.
func (c *Client) SearchResources(ctx context.Context, kind string, q filter.Node, opts store.SearchOptions) ([]store.ResourceRecord, error) {
	body, err := filter.Encode(q)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	if opts.History {
		params.Set("history", "true")
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	for _, sort := range opts.Sorts {
		params.Add("sort", sort)
	}

	endpoint := fmt.Sprintf("%s/v1/search/resource/%s", c.baseURL, url.PathEscape(kind))
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var records []store.ResourceRecord
	if err := c.do(req, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// GetMeasures retrieves the aggregated measures of a metric over
// [start, stop]. A nil stop leaves the range open.
func (c *Client) GetMeasures(ctx context.Context, metricID string, start time.Time, stop *time.Time, aggregation string) ([]store.Measure, error) {
	params := url.Values{}
	params.Set("aggregation", aggregation)
	params.Set("start", start.UTC().Format(time.RFC3339))
	if stop != nil {
		params.Set("stop", stop.UTC().Format(time.RFC3339))
	}

	endpoint := fmt.Sprintf("%s/v1/metric/%s/measures?%s", c.baseURL, url.PathEscape(metricID), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create measures request: %w", err)
	}

	var measures []store.Measure
	if err := c.do(req, &measures); err != nil {
		return nil, err
	}
	return measures, nil
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("X-Auth-Token", c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StoreError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
