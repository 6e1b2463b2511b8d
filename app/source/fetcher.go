package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bgnews/newsrelay/app/retry"
)

const maxBodySize = 10 << 20

type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	policy     retry.Policy
}

func NewFetcher(httpClient *http.Client, userAgent string, policy retry.Policy) *Fetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Fetcher{
		httpClient: httpClient,
		userAgent:  userAgent,
		policy:     policy,
	}
}

// Fetch downloads url. Transport errors, 429 and 5xx responses are retried;
// other non-2xx responses fail immediately.
func (f *Fetcher) Fetch(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	var data []byte

	err := retry.Do(ctx, f.policy, func(ctx context.Context) error {
		body, err := f.fetchOnce(ctx, url, timeout)
		if err != nil {
			return err
		}
		data = body
		return nil
	})
	if err != nil {
		return nil, err
	}

	return data, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := fmt.Errorf("HTTP error: %s", resp.Status)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, statusErr
		}
		return nil, retry.Permanent(statusErr)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
