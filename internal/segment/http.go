package segment

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.Code, e.URL)
}

// HTTPFetcher fetches segments over HTTP(S).
type HTTPFetcher struct {
	Client    *http.Client
	UserAgent string
	Headers   map[string]string
}

// HTTPOptions configures NewHTTPClient.
type HTTPOptions struct {
	Timeout time.Duration
	Proxy   string
	// MaxIdlePerHost should match the worker count so connections are reused.
	MaxIdlePerHost int
}

// NewHTTPClient builds a client with optional proxy and request timeout.
func NewHTTPClient(opts HTTPOptions) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.MaxIdlePerHost > 0 {
		transport.MaxIdleConnsPerHost = opts.MaxIdlePerHost
	}
	if proxy := strings.TrimSpace(opts.Proxy); proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	return &http.Client{Transport: transport, Timeout: opts.Timeout}, nil
}

// Fetch issues a GET for the segment URL and returns the body.
func (f *HTTPFetcher) Fetch(ctx context.Context, seg Segment) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, seg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	for key, value := range f.Headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Code: resp.StatusCode, URL: seg.URL}
	}

	var buf bytes.Buffer
	if seg.LengthHint > 0 {
		buf.Grow(int(seg.LengthHint))
	}
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return buf.Bytes(), nil
}
