// Package rest fetches entity snapshots from the monitoring backend's
// people list endpoint.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-playground/validator/v10"
	"github.com/okian/livemap/internal/domain/model"
	"github.com/okian/livemap/pkg/logger"
)

const (
	defaultTimeout    = 5 * time.Second
	defaultMaxRetries = 3
	defaultMaxPages   = 50
	maxBodyBytes      = 8 << 20
	peoplePath        = "people/"
)

// Client reads the people list. It is safe for concurrent use.
type Client struct {
	base       *url.URL
	token      string
	httpClient *http.Client
	validate   *validator.Validate
	log        logger.Logger

	timeout      time.Duration
	maxRetries   uint
	maxPages     int
	initialDelay time.Duration
	now          func() time.Time
}

// New creates a client for the backend rooted at baseURL, authenticating
// with the backend's token scheme when token is non-empty.
func New(baseURL, token string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, ErrNoBaseURL
	}
	base, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	c := &Client{
		base:         base,
		token:        token,
		httpClient:   &http.Client{},
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		log:          logger.GetOrNoop().Named("source.rest"),
		timeout:      defaultTimeout,
		maxRetries:   defaultMaxRetries,
		maxPages:     defaultMaxPages,
		initialDelay: 200 * time.Millisecond,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name identifies the source in logs and metrics.
func (c *Client) Name() string { return "rest" }

// Fetch returns the full ordered snapshot, following pagination. Rows that
// fail validation are dropped with a warning.
func (c *Client) Fetch(ctx context.Context) ([]model.Entity, error) {
	next := c.base.ResolveReference(&url.URL{Path: peoplePath}).String()
	var out []model.Entity
	for page := 0; next != "" && page < c.maxPages; page++ {
		body, err := c.get(ctx, next)
		if err != nil {
			return nil, err
		}
		rows, link, err := decodePage(body)
		if err != nil {
			return nil, err
		}
		now := c.now()
		for _, raw := range rows {
			e, ok := c.decodePerson(ctx, raw, now)
			if ok {
				out = append(out, e)
			}
		}
		next, err = c.resolve(link)
		if err != nil {
			return nil, err
		}
	}
	if next != "" {
		c.log.Warn(ctx, "page limit reached; snapshot truncated", logger.Int("max_pages", c.maxPages))
	}
	return out, nil
}

func (c *Client) decodePerson(ctx context.Context, raw json.RawMessage, now time.Time) (model.Entity, bool) {
	var p personDTO
	if err := json.Unmarshal(raw, &p); err != nil {
		c.log.Warn(ctx, "dropping malformed person record", logger.Error(err))
		return model.Entity{}, false
	}
	if err := c.validate.Struct(p); err != nil {
		c.log.Warn(ctx, "dropping invalid person record",
			logger.String("id", p.ID),
			logger.Error(err),
		)
		return model.Entity{}, false
	}
	return p.toEntity(now), true
}

// decodePage accepts a bare array or the paginated envelope.
func decodePage(body []byte) ([]json.RawMessage, string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var rows []json.RawMessage
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, "", fmt.Errorf("%w: %w", ErrBadResponse, err)
		}
		return rows, "", nil
	}
	var page pageDTO
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	next := ""
	if page.Next != nil {
		next = *page.Next
	}
	return page.Results, next, nil
}

// resolve turns a next link into an absolute URL on the backend host.
func (c *Client) resolve(link string) (string, error) {
	if link == "" {
		return "", nil
	}
	u, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("%w: next link %q: %w", ErrBadResponse, link, err)
	}
	abs := c.base.ResolveReference(u)
	// the token header goes with every page
	if abs.Scheme != c.base.Scheme || abs.Host != c.base.Host {
		return "", fmt.Errorf("%w: %s", ErrForeignLink, abs.Redacted())
	}
	return abs.String(), nil
}

// get performs one GET with retries. Server errors, throttling and
// transport failures are retried with exponential backoff; other client
// errors are not.
func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialDelay

	attempt := 0
	body, err := backoff.Retry(ctx, func() ([]byte, error) {
		attempt++
		return c.once(ctx, target)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(c.maxRetries+1),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.log.Warn(ctx, "snapshot fetch failed; retrying",
				logger.Int("attempt", attempt),
				logger.Duration("wait", wait),
				logger.Error(err),
			)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	return body, nil
}

func (c *Client) once(ctx context.Context, target string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, backoff.Permanent(fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrBadResponse, resp.StatusCode)
	default:
		return nil, backoff.Permanent(fmt.Errorf("%w: status %d", ErrBadResponse, resp.StatusCode))
	}
}
