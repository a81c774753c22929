package scrape

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/sells-group/lead-cli/internal/config"
)

// LocalFetcher fetches HTML directly via net/http with a browser-like
// User-Agent. Free, no API calls.
type LocalFetcher struct {
	client    *http.Client
	userAgent string
	maxBody   int64
}

// NewLocalFetcher creates a LocalFetcher from the fetch settings.
func NewLocalFetcher(cfg config.FetchConfig) *LocalFetcher {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxBody := int64(cfg.MaxBodyKB) * 1024
	if maxBody <= 0 {
		maxBody = 2 * 1024 * 1024
	}
	return &LocalFetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout: timeout,
				}).DialContext,
				TLSHandshakeTimeout: timeout,
			},
		},
		userAgent: cfg.UserAgent,
		maxBody:   maxBody,
	}
}

// WithHTTPClient replaces the underlying HTTP client (for testing).
func (l *LocalFetcher) WithHTTPClient(hc *http.Client) *LocalFetcher {
	l.client = hc
	return l
}

func (l *LocalFetcher) Name() string { return "local_http" }

// Fetch GETs the URL and returns its markup decoded to UTF-8. Non-2xx/3xx
// statuses and anti-bot pages are reported as *FetchError.
func (l *LocalFetcher) Fetch(ctx context.Context, targetURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return "", &FetchError{URL: targetURL, Fetcher: l.Name(), Err: eris.Wrap(err, "local_http: create request")}
	}
	if l.userAgent != "" {
		req.Header.Set("User-Agent", l.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "it-IT,it;q=0.9,en;q=0.5")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", &FetchError{URL: targetURL, Fetcher: l.Name(), Err: eris.Wrap(err, "local_http: fetch")}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBody))
	if err != nil {
		return "", &FetchError{URL: targetURL, Fetcher: l.Name(), Err: eris.Wrap(err, "local_http: read body")}
	}

	if blocked, blockType := DetectBlock(resp, body); blocked {
		return "", &FetchError{URL: targetURL, Fetcher: l.Name(), StatusCode: resp.StatusCode, Block: blockType}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return "", &FetchError{URL: targetURL, Fetcher: l.Name(), StatusCode: resp.StatusCode}
	}

	return decodeBody(body, resp.Header.Get("Content-Type")), nil
}

var metaCharsetRe = regexp.MustCompile(`(?i)<meta[^>]+charset=["']?([a-z0-9_\-:]+)`)

// decodeBody converts body to UTF-8 using the Content-Type charset, falling
// back to a <meta charset> declaration. Unknown or UTF-8 charsets pass
// through unchanged.
func decodeBody(body []byte, contentType string) string {
	label := ""
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		label = params["charset"]
	}
	if label == "" {
		head := body
		if len(head) > 2048 {
			head = head[:2048]
		}
		if m := metaCharsetRe.FindSubmatch(head); len(m) > 1 {
			label = string(m[1])
		}
	}

	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" || label == "utf-8" || label == "utf8" {
		return string(body)
	}

	enc, err := htmlindex.Get(label)
	if err != nil {
		return string(body)
	}
	decoded, _, err := transform.Bytes(enc.NewDecoder(), body)
	if err != nil {
		return string(body)
	}
	return string(bytes.ToValidUTF8(decoded, []byte("�")))
}
