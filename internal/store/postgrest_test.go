package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caddvault/vault-updater/internal/domain"
)

func newPostgRESTStore(t *testing.T, serverURL string) *PostgRESTStore {
	t.Helper()
	s, err := NewPostgREST(PostgRESTConfig{
		BaseURL: serverURL,
		APIKey:  "secret-key",
	}, zerolog.Nop())
	require.NoError(t, err)
	return s
}

func TestNewPostgREST(t *testing.T) {
	t.Run("requires a base url", func(t *testing.T) {
		_, err := NewPostgREST(PostgRESTConfig{}, zerolog.Nop())
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("applies defaults", func(t *testing.T) {
		s, err := NewPostgREST(PostgRESTConfig{BaseURL: "https://example.supabase.co/rest/v1/"}, zerolog.Nop())
		require.NoError(t, err)
		assert.Equal(t, "https://example.supabase.co/rest/v1", s.baseURL)
		assert.Equal(t, DefaultTable, s.table)
		assert.Equal(t, DefaultTimeout, s.client.Timeout)
		assert.Equal(t, BackendPostgREST, s.Name())
	})
}

func TestPostgRESTStoreList(t *testing.T) {
	t.Run("filters and pagination", func(t *testing.T) {
		cutoff := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/packages", r.URL.Path)

			query := r.URL.Query()
			assert.Equal(t, "*", query.Get("select"))
			assert.Equal(t, "id.asc", query.Get("order"))
			assert.Equal(t, "lt.2024-06-01T00:00:00Z", query.Get("last_updated"))
			assert.Equal(t, []string{"not.is.null", "like.*github.com*"}, query["repo_link"])
			assert.Equal(t, "not.is.null", query.Get("publication"))

			assert.Equal(t, "items", r.Header.Get("Range-Unit"))
			assert.Equal(t, "0-999", r.Header.Get("Range"))
			assert.Equal(t, "secret-key", r.Header.Get("apikey"))
			assert.Equal(t, "Bearer secret-key", r.Header.Get("Authorization"))

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusPartialContent)
			w.Write([]byte(`[
				{"id": "pkg-1", "package_name": "GNINA", "github_stars": 812},
				{"id": "pkg-2", "package_name": "Smina", "license": null}
			]`))
		}))
		defer server.Close()

		records, err := newPostgRESTStore(t, server.URL).List(context.Background(), Selection{
			UpdatedBefore:   cutoff,
			RepoHostOnly:    true,
			WithPublication: true,
		}, 0, 1000)

		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "pkg-1", records[0].ID)
		assert.Equal(t, int64(812), records[0].Stars.OrZero())
		assert.Equal(t, "pkg-2", records[1].ID)
		assert.True(t, records[1].License.IsNull())
		assert.True(t, records[1].Stars.IsUnset())
	})

	t.Run("explicit id selection", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "in.(pkg-1,pkg-2)", r.URL.Query().Get("id"))
			assert.Empty(t, r.Header.Get("Range"), "unbounded listing must not send a Range header")
			w.Write([]byte(`[{"id": "pkg-1"}, {"id": "pkg-2"}]`))
		}))
		defer server.Close()

		records, err := newPostgRESTStore(t, server.URL).List(context.Background(), Selection{
			IDs: []string{"pkg-1", "pkg-2"},
		}, 0, 0)

		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("window advances with offset", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "1000-1999", r.Header.Get("Range"))
			w.Write([]byte(`[]`))
		}))
		defer server.Close()

		records, err := newPostgRESTStore(t, server.URL).List(context.Background(), Selection{}, 1000, 1000)

		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("server failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "permission denied", http.StatusUnauthorized)
		}))
		defer server.Close()

		_, err := newPostgRESTStore(t, server.URL).List(context.Background(), Selection{}, 0, 10)

		var storeErr *domain.StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "list", storeErr.Op)

		var apiErr *domain.ExternalAPIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	})
}

func TestPostgRESTStoreUpdate(t *testing.T) {
	t.Run("patches matched record", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPatch, r.Method)
			assert.Equal(t, "/packages", r.URL.Path)
			assert.Equal(t, "eq.pkg-1", r.URL.Query().Get("id"))
			assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Equal(t, "secret-key", r.Header.Get("apikey"))

			var payload map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, float64(812), payload["github_stars"])
			assert.Equal(t, "https://doi.org/10.1093/x", payload["publication"])

			stamp, ok := payload["last_updated"].(string)
			require.True(t, ok)
			stamped, err := time.Parse(time.RFC3339, stamp)
			require.NoError(t, err)
			assert.WithinDuration(t, time.Now().UTC(), stamped, time.Minute)

			w.Write([]byte(`[{"id": "pkg-1"}]`))
		}))
		defer server.Close()

		var set domain.FieldUpdateSet
		set.Set(domain.FieldStars, int64(812), domain.SourceRepository)
		set.Set(domain.FieldPublication, "https://doi.org/10.1093/x", domain.SourcePublication)

		err := newPostgRESTStore(t, server.URL).Update(context.Background(), "pkg-1", set)
		require.NoError(t, err)
	})

	t.Run("no matched record", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[]`))
		}))
		defer server.Close()

		var set domain.FieldUpdateSet
		set.Set(domain.FieldStars, int64(1), domain.SourceRepository)

		err := newPostgRESTStore(t, server.URL).Update(context.Background(), "missing", set)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("server failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "conflict", http.StatusConflict)
		}))
		defer server.Close()

		var set domain.FieldUpdateSet
		set.Set(domain.FieldStars, int64(1), domain.SourceRepository)

		err := newPostgRESTStore(t, server.URL).Update(context.Background(), "pkg-1", set)

		var storeErr *domain.StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "update", storeErr.Op)
		assert.Equal(t, "pkg-1", storeErr.ID)
	})

	t.Run("empty id", func(t *testing.T) {
		err := newPostgRESTStore(t, "http://localhost:0").Update(context.Background(), "", domain.FieldUpdateSet{})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
