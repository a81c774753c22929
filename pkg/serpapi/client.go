// Package serpapi provides a client for the SerpApi Google search API.
package serpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
)

const defaultBaseURL = "https://serpapi.com"

// noResults is the message SerpApi reports (with HTTP 200) when Google has
// nothing more for the query. It marks the end of pagination, not a failure.
const noResults = "hasn't returned any results"

// Client runs Google searches through SerpApi.
type Client interface {
	// Search returns the raw JSON document for one page of results.
	Search(ctx context.Context, req SearchRequest) ([]byte, error)
}

// SearchRequest describes one page of a Google query.
type SearchRequest struct {
	Query  string
	APIKey string
	Num    int
	Start  int
}

// APIError is returned when SerpApi answers with a non-200 status or an
// error document.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("serpapi: unexpected status %d: %s", e.StatusCode, e.Message)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a SerpApi client. The API key travels with each request
// so one client serves any key.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, req SearchRequest) ([]byte, error) {
	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", req.Query)
	params.Set("api_key", req.APIKey)
	params.Set("num", strconv.Itoa(req.Num))
	params.Set("start", strconv.Itoa(req.Start))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search.json?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: create request")
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: read response")
	}

	msg := gjson.GetBytes(body, "error").String()
	if resp.StatusCode != http.StatusOK {
		if msg == "" {
			msg = string(body)
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if msg != "" && !strings.Contains(msg, noResults) {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	return body, nil
}
