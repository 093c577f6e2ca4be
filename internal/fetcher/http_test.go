package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StoreScraper/pkg/config"
)

func TestHTTPFetcherSendsConfiguredHeaders(t *testing.T) {
	var gotUA, gotSite string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotSite = r.Header.Get("X-Site")
		w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	f := NewHTTPFetcher(config.FetcherOptions{
		UserAgent: "StoreScraper/1.0",
		Headers:   map[string]string{"X-Site": "grilld"},
	})
	resp, err := f.Fetch(context.Background(), server.URL, config.FetcherOptions{})
	require.NoError(t, err)

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "StoreScraper/1.0", gotUA, "configured user_agent must reach the wire")
	assert.Equal(t, "grilld", gotSite)
}

func TestHTTPFetcherErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer server.Close()

	_, err := NewHTTPFetcher(config.FetcherOptions{}).
		Fetch(context.Background(), server.URL, config.FetcherOptions{})
	assert.Error(t, err)
}

func TestMergeOptionsUserAgentOverride(t *testing.T) {
	defaults := config.FetcherOptions{UserAgent: "default-agent"}

	merged := mergeOptions(defaults, config.FetcherOptions{})
	assert.Equal(t, "default-agent", merged.UserAgent)

	merged = mergeOptions(defaults, config.FetcherOptions{UserAgent: "per-fetch-agent"})
	assert.Equal(t, "per-fetch-agent", merged.UserAgent)
}
