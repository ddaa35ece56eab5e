package feed

import (
	"context"
	"io"
	"net/http"
	"time"
)

type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
}

func NewFetcher(httpClient *http.Client, userAgent string, timeout time.Duration) *Fetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Fetcher{
		httpClient: httpClient,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

// Fetch downloads the raw feed document at url
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	return data, nil
}
