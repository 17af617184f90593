// Package jina provides a client for the Jina AI reader and search API.
package jina

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the Jina AI operations: web search and page reading.
type Client interface {
	// Read fetches a URL via Jina Reader and returns its markdown content.
	Read(ctx context.Context, targetURL string) (*ReadResponse, error)
	// Search runs a web search and returns ranked results.
	Search(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error)
}

// ReadResponse is the parsed reader response.
type ReadResponse struct {
	Code int      `json:"code"`
	Data ReadData `json:"data"`
}

// ReadData holds page content.
type ReadData struct {
	Title   string    `json:"title"`
	URL     string    `json:"url"`
	Content string    `json:"content"`
	Usage   ReadUsage `json:"usage"`
}

// ReadUsage tracks token consumption.
type ReadUsage struct {
	Tokens int `json:"tokens"`
}

// SearchResponse is the parsed search response.
type SearchResponse struct {
	Code int            `json:"code"`
	Data []SearchResult `json:"data"`
}

// SearchResult is a single ranked search hit.
type SearchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Content     string `json:"content"`
	Description string `json:"description"`
}

// APIError is a non-200 response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("jina: unexpected status %d: %s", e.StatusCode, e.Body)
}

// HTTPStatus returns the response status code.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// SearchOption configures a search request.
type SearchOption func(*searchOpts)

type searchOpts struct {
	siteFilter string
	count      int
}

// WithSiteFilter restricts results to one domain.
func WithSiteFilter(domain string) SearchOption {
	return func(o *searchOpts) { o.siteFilter = domain }
}

// WithCount limits the number of results returned.
func WithCount(n int) SearchOption {
	return func(o *searchOpts) { o.count = n }
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets the reader base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithSearchBaseURL sets the search base URL.
func WithSearchBaseURL(u string) Option {
	return func(c *httpClient) { c.searchBaseURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

type httpClient struct {
	apiKey        string
	baseURL       string
	searchBaseURL string
	http          *http.Client
}

// NewClient creates a Jina client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:        apiKey,
		baseURL:       "https://r.jina.ai",
		searchBaseURL: "https://s.jina.ai",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) get(ctx context.Context, reqURL string, headers map[string]string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, eris.Wrap(err, "jina: create request")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, eris.Wrap(err, "jina: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, eris.Wrap(err, "jina: read response body")
	}
	return body, resp.StatusCode, nil
}

func (c *httpClient) Read(ctx context.Context, targetURL string) (*ReadResponse, error) {
	body, status, err := c.get(ctx, c.baseURL+"/"+targetURL, map[string]string{"X-Return-Format": "markdown"})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &APIError{StatusCode: status, Body: string(body)}
	}

	var result ReadResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "jina: unmarshal response")
	}
	return &result, nil
}

func (c *httpClient) Search(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error) {
	so := &searchOpts{}
	for _, opt := range opts {
		opt(so)
	}

	reqURL := c.searchBaseURL + "/" + url.PathEscape(query)
	params := url.Values{}
	if so.siteFilter != "" {
		params.Set("site", so.siteFilter)
	}
	if so.count > 0 {
		params.Set("count", strconv.Itoa(so.count))
	}
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	body, status, err := c.get(ctx, reqURL, nil)
	if err != nil {
		return nil, err
	}

	// 422 means no results for the query.
	if status == http.StatusUnprocessableEntity {
		return &SearchResponse{Code: status}, nil
	}
	if status != http.StatusOK {
		return nil, &APIError{StatusCode: status, Body: string(body)}
	}

	var result SearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "jina: unmarshal search response")
	}
	if so.count > 0 && len(result.Data) > so.count {
		result.Data = result.Data[:so.count]
	}
	return &result, nil
}
