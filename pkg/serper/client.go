// Package serper provides a client for the Serper.dev Google search API.
package serper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
)

const defaultBaseURL = "https://google.serper.dev"

// Client runs Google searches through Serper.
type Client interface {
	// Search returns the raw JSON document for one page of results.
	Search(ctx context.Context, req SearchRequest) ([]byte, error)
}

// SearchRequest describes one page of a Google query.
type SearchRequest struct {
	Query    string
	APIKey   string
	Num      int
	Start    int
	Country  string
	Language string
}

type requestBody struct {
	Q     string `json:"q"`
	GL    string `json:"gl,omitempty"`
	HL    string `json:"hl,omitempty"`
	Num   int    `json:"num"`
	Start int    `json:"start"`
	Page  int    `json:"page"`
}

// APIError is returned for any non-200 response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("serper: unexpected status %d: %s", e.StatusCode, e.Message)
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

// NewClient creates a Serper client.
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
	num := req.Num
	if num <= 0 {
		num = 10
	}
	// Serper paginates by 1-based page; start is sent as well for
	// deployments that honour it.
	payload := requestBody{
		Q:     req.Query,
		GL:    req.Country,
		HL:    req.Language,
		Num:   num,
		Start: req.Start,
		Page:  req.Start/num + 1,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "serper: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "serper: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-KEY", req.APIKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "serper: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "serper: read response")
	}

	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(respBody, "message").String()
		if msg == "" {
			msg = string(respBody)
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	return respBody, nil
}
