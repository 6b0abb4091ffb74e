// Package biorxiv queries the bioRxiv/medRxiv publication API, which maps a
// preprint DOI to the DOI of its published journal version.
package biorxiv

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/caddvault/vault-updater/internal/domain"
	"github.com/caddvault/vault-updater/internal/retry"
	"github.com/caddvault/vault-updater/internal/sources"
)

const (
	// DefaultBaseURL is the default bioRxiv API base URL.
	DefaultBaseURL = "https://api.biorxiv.org"

	// DefaultRateLimit is the default rate limit (1 request per second).
	DefaultRateLimit = 1.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 1

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// ServerBioRxiv and ServerMedRxiv are the server path segments the
	// publication endpoint accepts. bioRxiv preprints occasionally move to
	// medRxiv, so callers check both.
	ServerBioRxiv = "biorxiv"
	ServerMedRxiv = "medrxiv"

	// sourceName is the name used in errors and logs for this source.
	sourceName = "biorxiv"
)

// Config holds configuration for the bioRxiv client.
type Config struct {
	// BaseURL is the bioRxiv API base URL.
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

// Client queries the bioRxiv publication endpoint.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

// New creates a new bioRxiv client with the given configuration.
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

// NewWithHTTPClient creates a new bioRxiv client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *sources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Published returns the published DOI recorded for the given preprint DOI on
// the given server (ServerBioRxiv or ServerMedRxiv). The field stays unset
// when the preprint has no published counterpart there.
func (c *Client) Published(ctx context.Context, server, doi string) (domain.Field[string], error) {
	var none domain.Field[string]

	doi = strings.TrimSpace(doi)
	if doi == "" {
		return none, fmt.Errorf("%w: empty DOI", domain.ErrInvalidInput)
	}

	endpoint := fmt.Sprintf("%s/pubs/%s/%s", strings.TrimRight(c.config.BaseURL, "/"), server, doi)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return none, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return none, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// The API answers 404 for DOIs it has never indexed.
		return none, nil
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return none, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	var pubs PubsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&pubs); err != nil {
		return none, fmt.Errorf("decoding response: %w", err)
	}

	if len(pubs.Collection) == 0 {
		return none, nil
	}

	published := strings.TrimSpace(pubs.Collection[0].PublishedDOI)
	if published == "" || strings.EqualFold(published, "NA") {
		return none, nil
	}
	return domain.Set(published), nil
}
