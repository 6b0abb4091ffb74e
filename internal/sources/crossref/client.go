// Package crossref queries the Crossref works API for publication metadata:
// citation counts, container titles, and title-based lookups.
package crossref

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/caddvault/vault-updater/internal/domain"
	"github.com/caddvault/vault-updater/internal/retry"
	"github.com/caddvault/vault-updater/internal/sources"
)

const (
	// DefaultBaseURL is the default Crossref API base URL.
	DefaultBaseURL = "https://api.crossref.org"

	// DefaultRateLimit is the default rate limit (2 requests per second).
	DefaultRateLimit = 2.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 2

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRows is the default number of rows returned by Search.
	DefaultRows = 20

	// sourceName is the name used in errors and logs for this source.
	sourceName = "crossref"
)

// Config holds configuration for the Crossref client.
type Config struct {
	// BaseURL is the Crossref API base URL.
	BaseURL string

	// Contact is the operator contact address embedded in the User-Agent,
	// which admits requests to the Crossref polite pool.
	Contact string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// Retry overrides the default retry policy when set.
	Retry retry.Policy
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
}

// Client queries the Crossref works API.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

// New creates a new Crossref client with the given configuration.
func New(cfg Config, logger zerolog.Logger) *Client {
	cfg.applyDefaults()

	httpClient := sources.NewHTTPClient(sources.HTTPClientConfig{
		Source:    sourceName,
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		UserAgent: sources.UserAgent(cfg.Contact),
		Retry:     cfg.Retry,
	}, logger)

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new Crossref client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *sources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Work retrieves a single work by DOI.
func (c *Client) Work(ctx context.Context, doi string) (*Work, error) {
	doi = strings.TrimSpace(doi)
	if doi == "" {
		return nil, fmt.Errorf("%w: empty DOI", domain.ErrInvalidInput)
	}

	endpoint := strings.TrimRight(c.config.BaseURL, "/") + "/works/" + url.PathEscape(doi)

	var resp WorkResponse
	if err := c.getJSON(ctx, endpoint, doi, &resp); err != nil {
		return nil, err
	}
	return &resp.Message, nil
}

// Search queries works matching the given bibliographic query, returning at
// most rows results. Quote the query to bias Crossref toward exact phrase
// matches.
func (c *Client) Search(ctx context.Context, query string, rows int) ([]Work, error) {
	if rows <= 0 {
		rows = DefaultRows
	}

	endpoint, err := url.Parse(strings.TrimRight(c.config.BaseURL, "/") + "/works")
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	q := url.Values{}
	q.Set("query", query)
	q.Set("rows", strconv.Itoa(rows))
	endpoint.RawQuery = q.Encode()

	var resp SearchResponse
	if err := c.getJSON(ctx, endpoint.String(), query, &resp); err != nil {
		return nil, err
	}
	return resp.Message.Items, nil
}

// getJSON performs a GET request and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, rawURL, id string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.NewNotFoundError("work", id)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
