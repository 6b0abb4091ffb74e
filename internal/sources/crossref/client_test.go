package crossref

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
	"github.com/caddvault/vault-updater/internal/retry"
)

func newTestClient(serverURL string) *Client {
	return New(Config{
		BaseURL:   serverURL,
		Contact:   "test@example.com",
		Timeout:   5 * time.Second,
		RateLimit: 100,
		BurstSize: 100,
		Retry:     retry.Policy{MaxAttempts: 1},
	}, zerolog.Nop())
}

func sampleWork() Work {
	return Work{
		DOI:                 "10.1021/acs.jcim.3c01234",
		Title:               []string{"Deep Docking on a Budget"},
		ContainerTitle:      []string{"Journal of Chemical Information and Modeling"},
		ISSN:                []string{"1549-9596", "1549-960X"},
		IsReferencedByCount: 87,
	}
}

func TestNewClient(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		client := New(Config{}, zerolog.Nop())

		require.NotNil(t, client)
		assert.Equal(t, DefaultBaseURL, client.config.BaseURL)
		assert.Equal(t, DefaultTimeout, client.config.Timeout)
		assert.Equal(t, DefaultRateLimit, client.config.RateLimit)
		assert.Equal(t, DefaultBurstSize, client.config.BurstSize)
	})
}

func TestClient_Work(t *testing.T) {
	t.Run("fetches a work by DOI", func(t *testing.T) {
		var userAgent string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userAgent = r.Header.Get("User-Agent")
			assert.Equal(t, "/works/10.1021%2Facs.jcim.3c01234", r.URL.EscapedPath())

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(WorkResponse{Status: "ok", Message: sampleWork()})
		}))
		defer server.Close()

		client := newTestClient(server.URL)

		work, err := client.Work(context.Background(), "10.1021/acs.jcim.3c01234")
		require.NoError(t, err)
		require.NotNil(t, work)

		assert.Equal(t, "10.1021/acs.jcim.3c01234", work.DOI)
		assert.Equal(t, "Deep Docking on a Budget", work.PrimaryTitle())
		assert.Equal(t, int64(87), work.IsReferencedByCount)
		assert.Equal(t, "Journal of Chemical Information and Modeling", work.ContainerTitle[0])
		assert.Contains(t, userAgent, "mailto:test@example.com")
	})

	t.Run("unknown DOI returns not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("Resource not found."))
		}))
		defer server.Close()

		client := newTestClient(server.URL)

		work, err := client.Work(context.Background(), "10.9999/nope")
		require.Error(t, err)
		assert.Nil(t, work)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("empty DOI is invalid input", func(t *testing.T) {
		client := newTestClient("https://api.crossref.org")

		work, err := client.Work(context.Background(), "  ")
		require.Error(t, err)
		assert.Nil(t, work)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("server error surfaces as API error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := newTestClient(server.URL)

		work, err := client.Work(context.Background(), "10.1/x")
		require.Error(t, err)
		assert.Nil(t, work)

		var apiErr *domain.ExternalAPIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "crossref", apiErr.Source)
	})
}

func TestClient_Search(t *testing.T) {
	t.Run("searches works by query", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/works", r.URL.Path)
			assert.Equal(t, "Deep Docking on a Budget", r.URL.Query().Get("query"))
			assert.Equal(t, "20", r.URL.Query().Get("rows"))

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(SearchResponse{
				Status: "ok",
				Message: SearchMessage{
					TotalResults: 1,
					Items:        []Work{sampleWork()},
				},
			})
		}))
		defer server.Close()

		client := newTestClient(server.URL)

		works, err := client.Search(context.Background(), "Deep Docking on a Budget", 20)
		require.NoError(t, err)
		require.Len(t, works, 1)
		assert.Equal(t, "10.1021/acs.jcim.3c01234", works[0].DOI)
	})

	t.Run("defaults rows when unset", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "20", r.URL.Query().Get("rows"))
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(SearchResponse{})
		}))
		defer server.Close()

		client := newTestClient(server.URL)

		works, err := client.Search(context.Background(), "anything", 0)
		require.NoError(t, err)
		assert.Empty(t, works)
	})

	t.Run("malformed JSON returns decode error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{invalid`))
		}))
		defer server.Close()

		client := newTestClient(server.URL)

		works, err := client.Search(context.Background(), "anything", 5)
		require.Error(t, err)
		assert.Nil(t, works)
		assert.Contains(t, err.Error(), "decoding")
	})
}

func TestWork_PrimaryTitle(t *testing.T) {
	t.Run("returns first title", func(t *testing.T) {
		w := sampleWork()
		assert.Equal(t, "Deep Docking on a Budget", w.PrimaryTitle())
	})

	t.Run("empty titles", func(t *testing.T) {
		w := Work{}
		assert.Equal(t, "", w.PrimaryTitle())
	})
}
