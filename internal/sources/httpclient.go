package sources

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/caddvault/vault-updater/internal/domain"
	"github.com/caddvault/vault-updater/internal/retry"
)

// HTTPClientConfig configures the shared HTTP client.
type HTTPClientConfig struct {
	// Source names the upstream API in errors and log lines.
	Source string

	// Timeout is the request timeout for HTTP operations.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// APIKey is an optional credential for authentication.
	APIKey string

	// APIKeyHeader is the header name carrying the credential
	// (e.g., "X-API-Key", "Authorization").
	APIKeyHeader string

	// Retry is the policy applied to each request. A zero policy falls
	// back to retry.Default().
	Retry retry.Policy
}

// HTTPClient wraps http.Client with rate limiting and retries.
// It is safe for concurrent use.
type HTTPClient struct {
	client      *http.Client
	rateLimiter *RateLimiter
	config      HTTPClientConfig
	logger      zerolog.Logger
}

// NewHTTPClient creates a new HTTP client with rate limiting.
// The client waits for the rate limiter before every attempt and retries on
// 429 (Too Many Requests), quota-exhausted 403, 5xx server errors, and
// transport errors according to the configured policy.
func NewHTTPClient(cfg HTTPClientConfig, logger zerolog.Logger) *HTTPClient {
	// Apply defaults
	if cfg.Source == "" {
		cfg.Source = "external"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 1
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = 1
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.Default()
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: NewRateLimiter(cfg.RateLimit, cfg.BurstSize),
		config:      cfg,
		logger:      logger.With().Str("source", cfg.Source).Logger(),
	}
}

// Do executes an HTTP request with rate limiting and retries.
// Terminal responses are returned as-is, success or not; callers interpret
// status codes below 500 themselves. Retryable statuses are converted to
// domain errors so the policy can schedule another attempt, honoring the
// Retry-After header on 429 responses.
//
// The request body is re-materialized via GetBody on retry; callers sending
// bodies must build requests with http.NewRequestWithContext so GetBody is
// populated.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	// Set default headers
	if req.Header.Get("User-Agent") == "" && c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	// Set API key if configured
	if c.config.APIKey != "" && c.config.APIKeyHeader != "" {
		req.Header.Set(c.config.APIKeyHeader, c.config.APIKey)
	}

	var resp *http.Response
	first := true
	err := c.config.Retry.Do(req.Context(), func() error {
		if !first {
			if err := resetRequestBody(req); err != nil {
				return fmt.Errorf("cannot retry request: %w", err)
			}
		}
		first = false

		// Wait for rate limiter
		if err := c.rateLimiter.Wait(req.Context()); err != nil {
			return fmt.Errorf("rate limiter wait: %w", err)
		}

		r, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("executing request: %w", err)
		}

		if retryErr := c.checkRetryableStatus(r); retryErr != nil {
			drainBody(r)
			return retryErr
		}

		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// checkRetryableStatus converts retry-worthy status codes into domain errors.
// A nil return means the response is terminal and belongs to the caller.
func (c *HTTPClient) checkRetryableStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.NewRateLimitError(c.config.Source, retryAfterDelay(resp.Header))

	case resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0":
		// GitHub signals an exhausted quota as 403 rather than 429.
		evt := c.logger.Warn()
		if reset := resp.Header.Get("X-RateLimit-Reset"); reset != "" {
			if sec, err := strconv.ParseInt(reset, 10, 64); err == nil {
				evt = evt.Time("reset_at", time.Unix(sec, 0).UTC())
			}
		}
		evt.Msg("rate limit quota exhausted")
		return domain.NewRateLimitError(c.config.Source, 0)

	case resp.StatusCode >= 500:
		return domain.NewExternalAPIError(c.config.Source, resp.StatusCode, http.StatusText(resp.StatusCode), nil)
	}
	return nil
}

// retryAfterDelay parses the Retry-After header as either delta-seconds or an
// HTTP date. Zero means the header was absent or unusable.
func retryAfterDelay(h http.Header) time.Duration {
	retryAfter := h.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}

	// Try to parse as seconds
	if seconds, err := strconv.ParseInt(retryAfter, 10, 64); err == nil {
		if seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
		return 0
	}

	// Try to parse as HTTP date
	if t, err := http.ParseTime(retryAfter); err == nil {
		if delay := time.Until(t); delay > 0 {
			return delay
		}
	}

	return 0
}

// drainBody discards and closes the response body so the underlying
// connection can be reused before the next attempt.
func drainBody(resp *http.Response) {
	if resp.Body != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
}

// resetRequestBody resets the request body for retry if possible.
func resetRequestBody(req *http.Request) error {
	if req.Body == nil || req.GetBody == nil {
		return nil
	}

	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("failed to get request body for retry: %w", err)
	}
	req.Body = body
	return nil
}
