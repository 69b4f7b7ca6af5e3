package feedsim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const maxAttempts = 5

// client posts JSON to the live map API.
type client struct {
	base    string
	http    *http.Client
	onRetry func()
}

func newClient(base string, timeout time.Duration, onRetry func()) *client {
	return &client{base: base, http: &http.Client{Timeout: timeout}, onRetry: onRetry}
}

// post sends body to path. 429 responses are retried with backoff; any
// other non-2xx status is returned as an error.
func (c *client) post(ctx context.Context, path string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}
	op := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNotReachable, err)
		}
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, fmt.Errorf("%w: %s %d", ErrUnexpected, path, resp.StatusCode)
		case resp.StatusCode >= 300:
			return nil, backoff.Permanent(fmt.Errorf("%w: %s %d: %s", ErrUnexpected, path, resp.StatusCode, bytes.TrimSpace(data)))
		}
		return data, nil
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(maxAttempts),
		backoff.WithNotify(func(error, time.Duration) { c.onRetry() }),
	)
}

// get fetches path and decodes the JSON body into v.
func (c *client) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotReachable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s %d", ErrUnexpected, path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
