// Package github fetches repository metadata from the GitHub REST API.
package github

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
	// DefaultBaseURL is the default GitHub REST API base URL.
	DefaultBaseURL = "https://api.github.com"

	// DefaultRateLimit is the default rate limit (1 request per second).
	DefaultRateLimit = 1.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 1

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// sourceName is the name used in errors and logs for this source.
	sourceName = "github"
)

// Config holds configuration for the GitHub client.
type Config struct {
	// BaseURL is the GitHub REST API base URL.
	BaseURL string

	// Token is a personal access token for authenticated requests.
	// Unauthenticated requests work but are subject to much lower quotas.
	Token string

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

// Client fetches repository metadata and commit activity for packages that
// link a GitHub repository.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

// New creates a new GitHub client with the given configuration.
func New(cfg Config, logger zerolog.Logger) *Client {
	cfg.applyDefaults()

	httpCfg := sources.HTTPClientConfig{
		Source:    sourceName,
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		UserAgent: sources.UserAgent(cfg.Contact),
		Retry:     cfg.Retry,
	}
	if cfg.Token != "" {
		httpCfg.APIKey = "Bearer " + cfg.Token
		httpCfg.APIKeyHeader = "Authorization"
	}

	return &Client{
		config:     cfg,
		httpClient: sources.NewHTTPClient(httpCfg, logger),
	}
}

// NewWithHTTPClient creates a new GitHub client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *sources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// RepositoryData resolves a package's repository URL into hosting metadata.
// URLs that do not point at a GitHub repository return an unset field
// without a network call; fetch failures return (unset, err) so the caller
// can record the error without treating it as fatal.
func (c *Client) RepositoryData(ctx context.Context, rawURL string) (domain.Field[domain.Repository], error) {
	owner, repo, ok := ParseRepoPath(rawURL)
	if !ok {
		return domain.Field[domain.Repository]{}, nil
	}

	fetched, err := c.Fetch(ctx, owner, repo)
	if err != nil {
		return domain.Field[domain.Repository]{}, err
	}
	return domain.Set(*fetched), nil
}

// Fetch retrieves the repository resource and its latest commit. The
// last-commit fields stay unset when the repository has no commits.
func (c *Client) Fetch(ctx context.Context, owner, repo string) (*domain.Repository, error) {
	repoPath := owner + "/" + repo
	repoURL := strings.TrimRight(c.config.BaseURL, "/") + "/repos/" + repoPath

	var repoResp Repository
	if err := c.getJSON(ctx, repoURL, repoPath, &repoResp); err != nil {
		return nil, err
	}

	result := &domain.Repository{
		URL:   "https://github.com/" + repoPath,
		Owner: owner,
		Name:  repo,
		Stars: repoResp.StargazersCount,
	}
	if repoResp.License != nil && repoResp.License.SPDXID != "" {
		result.License = domain.Set(repoResp.License.SPDXID)
	}
	if repoResp.Language != "" {
		result.Language = domain.Set(repoResp.Language)
	}

	var commits []Commit
	if err := c.getJSON(ctx, repoURL+"/commits?per_page=1", repoPath, &commits); err != nil {
		return nil, err
	}
	if len(commits) > 0 && commits[0].Commit.Committer.Date != "" {
		if t, err := time.Parse(time.RFC3339, commits[0].Commit.Committer.Date); err == nil {
			t = t.UTC()
			result.LastCommit = domain.Set(t)
			result.LastCommitAgo = domain.Set(TimeAgo(t, time.Now().UTC()))
		}
	}

	return result, nil
}

// getJSON performs a GET request and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, rawURL, repoPath string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.NewNotFoundError("repository", repoPath)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
