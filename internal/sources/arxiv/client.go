// Package arxiv fetches entry metadata from the arXiv export API, used to
// read the DOI and title recorded for a preprint.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/caddvault/vault-updater/internal/domain"
	"github.com/caddvault/vault-updater/internal/retry"
	"github.com/caddvault/vault-updater/internal/sources"
)

const (
	// DefaultBaseURL is the default arXiv export API base URL.
	DefaultBaseURL = "https://export.arxiv.org/api"

	// DefaultRateLimit is the default rate limit (one request every two
	// seconds, per the arXiv API terms of use).
	DefaultRateLimit = 0.5

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 1

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// sourceName is the name used in errors and logs for this source.
	sourceName = "arxiv"
)

// Config holds configuration for the arXiv client.
type Config struct {
	// BaseURL is the arXiv export API base URL.
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

// Client fetches single-entry metadata from the arXiv export API.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

// New creates a new arXiv client with the given configuration.
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

// NewWithHTTPClient creates a new arXiv client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *sources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Metadata holds the fields of an arXiv entry the updater uses. DOI is the
// journal DOI recorded by the authors, not the arXiv-assigned one, and is
// empty when the authors never linked a published version.
type Metadata struct {
	ID    string
	DOI   string
	Title string
}

// Metadata retrieves the Atom entry for the given arXiv identifier
// (e.g. "2301.01234").
func (c *Client) Metadata(ctx context.Context, id string) (*Metadata, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: empty arXiv identifier", domain.ErrInvalidInput)
	}

	endpoint, err := url.Parse(strings.TrimRight(c.config.BaseURL, "/") + "/query")
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	q := url.Values{}
	q.Set("id_list", id)
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

	var feed Feed
	if err := xml.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(feed.Entries) == 0 {
		return nil, domain.NewNotFoundError("preprint", id)
	}

	entry := feed.Entries[0]
	return &Metadata{
		ID:    id,
		DOI:   strings.TrimSpace(entry.DOI),
		Title: normalizeWhitespace(entry.Title),
	}, nil
}

// normalizeWhitespace trims and collapses multiple whitespace characters.
// arXiv titles carry hard line breaks and leading indentation.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
