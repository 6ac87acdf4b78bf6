package gateways

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/ochairo/threatfeed/internal/domain/entities"
)

const (
	// Default request timeout per attempt
	defaultTimeout = 20 * time.Second
	// Initial backoff duration
	initialBackoff = 1 * time.Second
	// Max backoff duration
	maxBackoff = 32 * time.Second
	// Upper bound on error bodies kept for diagnostics
	maxErrorBody = 512

	defaultUserAgent = "threatfeed/1.0"
)

// HTTPOptions configures the shared HTTP client of the feed gateways
type HTTPOptions struct {
	Timeout   time.Duration
	Retries   int
	UserAgent string
}

// feedClient performs JSON GET requests on behalf of a single feed
type feedClient struct {
	feed      string
	client    *http.Client
	retries   int
	userAgent string
	backoff   func(attempt int) time.Duration
}

func newFeedClient(feed string, opts HTTPOptions) *feedClient {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	return &feedClient{
		feed:      feed,
		client:    &http.Client{Timeout: opts.Timeout},
		retries:   max(opts.Retries, 0),
		userAgent: opts.UserAgent,
		backoff:   calculateBackoff,
	}
}

// isRetryableError checks if an HTTP status code is retryable
func isRetryableError(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests, // 429
		http.StatusInternalServerError, // 500
		http.StatusBadGateway,          // 502
		http.StatusServiceUnavailable,  // 503
		http.StatusGatewayTimeout:      // 504
		return true
	default:
		return false
	}
}

// calculateBackoff returns the backoff duration for a retry attempt
func calculateBackoff(attempt int) time.Duration {
	backoff := float64(initialBackoff) * math.Pow(2, float64(attempt))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}
	return time.Duration(backoff)
}

// doWithRetry executes an HTTP request with exponential backoff retry.
// With zero retries this is a single attempt.
func (c *feedClient) doWithRetry(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(c.backoff(attempt - 1)):
			}
		}

		resp, err = c.client.Do(req)
		if err != nil {
			if attempt < c.retries && req.Context().Err() == nil {
				continue
			}
			return nil, err
		}

		if !isRetryableError(resp.StatusCode) || attempt == c.retries {
			return resp, nil
		}

		//nolint:errcheck,gosec // G104: Best effort close before retry
		resp.Body.Close()
	}

	return resp, err
}

// getJSON fetches url and decodes the body into out. Failures are returned
// as *entities.FeedError classified as transport, status or payload.
func (c *feedClient) getJSON(ctx context.Context, url string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return c.fail(entities.FeedErrorTransport, 0, errors.Wrap(err, "failed to create request"))
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.doWithRetry(req)
	if err != nil {
		return c.fail(entities.FeedErrorTransport, 0, err)
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var cause error
		if len(body) > 0 {
			cause = errors.Newf("%s", body)
		}
		return c.fail(entities.FeedErrorStatus, resp.StatusCode, cause)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return c.fail(entities.FeedErrorPayload, 0, errors.Wrap(err, "failed to parse response"))
	}
	return nil
}

func (c *feedClient) fail(kind entities.FeedErrorKind, status int, cause error) error {
	return &entities.FeedError{Feed: c.feed, Kind: kind, StatusCode: status, Cause: cause}
}
