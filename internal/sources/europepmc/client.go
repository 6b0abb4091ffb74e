// Package europepmc queries the Europe PMC REST API, used to discover the
// published counterpart of a preprint by accession number or DOI.
package europepmc

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
	// DefaultBaseURL is the default Europe PMC REST API base URL.
	DefaultBaseURL = "https://www.ebi.ac.uk/europepmc/webservices/rest"

	// DefaultRateLimit is the default rate limit (2 requests per second).
	DefaultRateLimit = 2.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 2

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultPageSize is the default number of results per search.
	DefaultPageSize = 25

	// sourceName is the name used in errors and logs for this source.
	sourceName = "europepmc"
)

// Config holds configuration for the Europe PMC client.
type Config struct {
	// BaseURL is the Europe PMC REST API base URL.
	BaseURL string

	// Contact is the operator contact address embedded in the User-Agent.
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

// Client queries the Europe PMC search endpoint.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

// New creates a new Europe PMC client with the given configuration.
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

// NewWithHTTPClient creates a new Europe PMC client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *sources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search runs a raw Europe PMC query expression (e.g. `ACCESSION:2301.01234`
// or `DOI:"10.26434/chemrxiv-2023-abc12"`) and returns the matching records.
func (c *Client) Search(ctx context.Context, query string, pageSize int) ([]Article, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	endpoint, err := url.Parse(strings.TrimRight(c.config.BaseURL, "/") + "/search")
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	q := url.Values{}
	q.Set("query", query)
	q.Set("resultType", "lite")
	q.Set("format", "json")
	q.Set("pageSize", strconv.Itoa(pageSize))
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	var searchResp SearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return searchResp.ResultList.Result, nil
}
