package fetcher

import (
	"context"
	"io"
	"net/http"
	"time"
)

const maxPageSize = 5 * 1024 * 1024

// PageFetcher retrieves the raw text of a document by URL.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string, header http.Header) (string, error)
}

// HTTPPage fetches pages over plain HTTP GET.
type HTTPPage struct {
	client *http.Client
}

// NewHTTPPage constructs a page fetcher with the given request timeout.
func NewHTTPPage(timeout time.Duration) *HTTPPage {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPPage{client: &http.Client{Timeout: timeout}}
}

// FetchPage issues one GET and returns the body. Network failures and
// non-2xx responses are reported as *TransportError.
func (p *HTTPPage) FetchPage(ctx context.Context, url string, header http.Header) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &TransportError{URL: url, Err: err}
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", &TransportError{URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &TransportError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return "", &TransportError{URL: url, Err: err}
	}
	return string(body), nil
}

var _ PageFetcher = (*HTTPPage)(nil)
