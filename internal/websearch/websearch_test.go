package websearch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goutgle/internal/config"
)

func testConfig() config.Config {
	cfg := config.Config{SerpAPIKey: "test-key"}
	cfg.FromEnv()
	return cfg
}

func newTestAdapter(t *testing.T, handler http.HandlerFunc) (*Adapter, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	a := New(testConfig(), nil, nil)
	a.BaseURL = server.URL
	return a, server
}

func organicBody(n int) string {
	body := `{"organic_results": [`
	for i := 0; i < n; i++ {
		if i > 0 {
			body += ","
		}
		body += fmt.Sprintf(`{"snippet": "snippet %d", "link": "https://example.com/%d"}`, i, i)
	}
	return body + `]}`
}

func TestWineQueryIssuesOnlyScopedSubQueries(t *testing.T) {
	var queries []string
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query().Get("q"))
		fmt.Fprint(w, organicBody(4))
	})

	results, err := a.Search(context.Background(), "meilleur vin pour une raclette")
	require.NoError(t, err)

	require.Len(t, queries, 2)
	assert.Contains(t, queries[0], "site:vivino.com")
	assert.Contains(t, queries[1], "site:hachette-vins.com")
	for _, q := range queries {
		assert.Contains(t, q, "meilleur vin pour une raclette")
	}

	// 4 hits per sub-query, capped at 3 each, 6 overall
	assert.Len(t, results, 6)
}

func TestGeneralQueryIssuesOneUnscopedQuery(t *testing.T) {
	var queries []string
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query().Get("q"))
		fmt.Fprint(w, organicBody(2))
	})

	results, err := a.Search(context.Background(), "recette de quiche lorraine")
	require.NoError(t, err)

	require.Len(t, queries, 1)
	assert.Equal(t, "recette de quiche lorraine", queries[0])
	assert.Len(t, results, 2)
}

func TestSearchCarriesProviderParams(t *testing.T) {
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "fr", r.URL.Query().Get("hl"))
		assert.Equal(t, "3", r.URL.Query().Get("num"))
		fmt.Fprint(w, organicBody(1))
	})

	_, err := a.Search(context.Background(), "fromage")
	require.NoError(t, err)
}

func TestProviderFailureReturnsErrProvider(t *testing.T) {
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})

	results, err := a.Search(context.Background(), "fromage")
	assert.Empty(t, results)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProvider)
}

func TestProviderErrorFieldReturnsErrProvider(t *testing.T) {
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error": "invalid api key"}`)
	})

	_, err := a.Search(context.Background(), "fromage")
	assert.ErrorIs(t, err, ErrProvider)
}

func TestResultsMissingFieldsAreSkipped(t *testing.T) {
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"organic_results": [
			{"snippet": "ok", "link": "https://example.com/a"},
			{"snippet": "no link"},
			{"link": "https://example.com/no-snippet"}
		]}`)
	})

	results, err := a.Search(context.Background(), "fromage")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ok", results[0].Snippet)
}

func TestWineQueryDetection(t *testing.T) {
	a := New(testConfig(), nil, nil)

	assert.True(t, a.WineQuery("Quel VIN avec une raclette ?"))
	assert.True(t, a.WineQuery("une belle appellation"))
	assert.True(t, a.WineQuery("château margaux millésime 2015"))
	assert.False(t, a.WineQuery("recette de quiche lorraine"))
}
