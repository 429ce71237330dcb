// Package fetch performs outbound HTTP GETs with retries, exponential backoff
// and a circuit breaker per upstream.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

const maxBodyBytes = 16 << 20

var (
	ErrRateLimited = errors.New("rate limited")
	ErrServer      = errors.New("server error")
	ErrNotFound    = errors.New("not found")
	ErrStatus      = errors.New("unexpected status code")
	ErrCircuitOpen = errors.New("circuit breaker open")
)

// Backoff controls the delay between retries.
type Backoff struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Config describes one upstream.
type Config struct {
	// Name identifies the upstream's circuit breaker.
	Name    string
	Timeout time.Duration
	Backoff Backoff
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// DefaultBackoff retries twice, starting at half a second.
var DefaultBackoff = Backoff{
	MaxRetries:      2,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     4 * time.Second,
}

// Client is safe for concurrent use.
type Client struct {
	http    *http.Client
	backoff Backoff
	breaker *gobreaker.CircuitBreaker
}

func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	if cfg.Backoff.InitialInterval <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	return &Client{
		http:    hc,
		backoff: cfg.Backoff,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:         cfg.Name,
			MaxRequests:  1,
			Interval:     time.Minute,
			Timeout:      30 * time.Second,
			IsSuccessful: healthy,
		}),
	}
}

// permanent marks an error that retrying cannot fix.
type permanent struct{ err error }

func (p permanent) Error() string { return p.err.Error() }
func (p permanent) Unwrap() error { return p.err }

// healthy reports whether err leaves the upstream looking healthy. Missing
// resources and requests the caller gave up on say nothing about it.
func healthy(err error) bool {
	var p permanent
	return err == nil || errors.As(err, &p) || errors.Is(err, context.Canceled)
}

// Get fetches url and returns the response body. Network errors, 429s and 5xx
// responses are retried until the backoff is exhausted or ctx is done.
func (c *Client) Get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	var attempt int
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := c.breaker.Execute(func() (interface{}, error) {
			return c.do(ctx, url, header)
		})
		if err == nil {
			return result.([]byte), nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		var p permanent
		if errors.As(err, &p) {
			return nil, p.err
		}
		if attempt >= c.backoff.MaxRetries {
			return nil, err
		}

		delay := c.backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if c.backoff.MaxInterval > 0 && delay > c.backoff.MaxInterval {
			delay = c.backoff.MaxInterval
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		attempt++
	}
}

// GetJSON fetches url and decodes its JSON body into v.
func (c *Client) GetJSON(ctx context.Context, url string, v interface{}) error {
	header := make(http.Header)
	header.Set("Accept", "application/json")
	body, err := c.Get(ctx, url, header)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decoding response from %s: %w", url, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, url string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, permanent{err}
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", "surfdash")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: %d", ErrServer, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return nil, permanent{fmt.Errorf("%w: %s", ErrNotFound, url)}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, permanent{fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", url, err)
	}
	return body, nil
}
