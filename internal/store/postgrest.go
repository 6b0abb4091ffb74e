package store

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

	"github.com/rs/zerolog"

	"github.com/caddvault/vault-updater/internal/domain"
)

// PostgRESTConfig holds settings for the PostgREST backend.
type PostgRESTConfig struct {
	// BaseURL is the PostgREST endpoint root, e.g.
	// "https://example.supabase.co/rest/v1".
	BaseURL string

	// APIKey is sent as both the apikey header and a bearer token.
	APIKey string

	// Table is the catalog table name. Defaults to DefaultTable.
	Table string

	// Timeout bounds one request. Defaults to DefaultTimeout.
	Timeout time.Duration
}

func (c *PostgRESTConfig) applyDefaults() {
	if c.Table == "" {
		c.Table = DefaultTable
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
}

// PostgRESTStore reads and writes the catalog through a PostgREST endpoint.
type PostgRESTStore struct {
	baseURL string
	apiKey  string
	table   string
	client  *http.Client
	logger  zerolog.Logger
}

var _ Store = (*PostgRESTStore)(nil)

// NewPostgREST creates a PostgREST-backed store.
func NewPostgREST(cfg PostgRESTConfig, logger zerolog.Logger) (*PostgRESTStore, error) {
	cfg.applyDefaults()
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: postgrest store requires a base URL", domain.ErrInvalidInput)
	}

	return &PostgRESTStore{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		table:   cfg.Table,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger.With().Str("store", BackendPostgREST).Logger(),
	}, nil
}

// Name implements Store.
func (s *PostgRESTStore) Name() string {
	return BackendPostgREST
}

// List implements Store. Filters map to PostgREST query operators and the
// window to a Range header in items.
func (s *PostgRESTStore) List(ctx context.Context, sel Selection, offset, limit int) ([]domain.PackageRecord, error) {
	params := url.Values{}
	params.Set("select", "*")
	params.Set("order", "id.asc")
	if len(sel.IDs) > 0 {
		params.Set("id", "in.("+strings.Join(sel.IDs, ",")+")")
	}
	if !sel.UpdatedBefore.IsZero() {
		params.Set("last_updated", "lt."+sel.UpdatedBefore.UTC().Format(time.RFC3339))
	}
	if sel.RepoHostOnly {
		params.Add("repo_link", "not.is.null")
		params.Add("repo_link", "like.*github.com*")
	}
	if sel.WithPublication {
		params.Set("publication", "not.is.null")
	}

	endpoint := s.baseURL + "/" + s.table + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating list request: %w", err)
	}
	s.setHeaders(req)
	if limit > 0 {
		req.Header.Set("Range-Unit", "items")
		req.Header.Set("Range", fmt.Sprintf("%d-%d", offset, offset+limit-1))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, domain.NewStoreError("list", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, s.statusError("list", "", resp)
	}

	var raw []rawRecord
	if err := json.NewDecoder(io.LimitReader(resp.Body, 100<<20)).Decode(&raw); err != nil {
		return nil, domain.NewStoreError("list", "", fmt.Errorf("decoding response: %w", err))
	}

	records := make([]domain.PackageRecord, len(raw))
	for i, r := range raw {
		records[i] = r.toDomain()
	}
	return records, nil
}

// Update implements Store. The PATCH asks PostgREST to return the affected
// rows; an empty representation means no record matched.
func (s *PostgRESTStore) Update(ctx context.Context, id string, set domain.FieldUpdateSet) error {
	if id == "" {
		return fmt.Errorf("%w: empty record id", domain.ErrInvalidInput)
	}

	payload := updatePayload(set, time.Now())
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.NewStoreError("update", id, fmt.Errorf("encoding payload: %w", err))
	}

	params := url.Values{}
	params.Set("id", "eq."+id)
	endpoint := s.baseURL + "/" + s.table + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating update request: %w", err)
	}
	s.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	resp, err := s.client.Do(req)
	if err != nil {
		return domain.NewStoreError("update", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return s.statusError("update", id, resp)
	}

	var affected []json.RawMessage
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&affected); err != nil {
		return domain.NewStoreError("update", id, fmt.Errorf("decoding response: %w", err))
	}
	if len(affected) == 0 {
		return domain.NewNotFoundError("package", id)
	}

	s.logger.Debug().Str("id", id).Int("fields", set.Len()).Msg("record updated")
	return nil
}

func (s *PostgRESTStore) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("apikey", s.apiKey)
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
}

func (s *PostgRESTStore) statusError(op, id string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	apiErr := domain.NewExternalAPIError(BackendPostgREST, resp.StatusCode, strings.TrimSpace(string(body)), nil)
	return domain.NewStoreError(op, id, apiErr)
}
