// Package websearch wraps the external snippet-retrieval provider. Queries
// that look wine-specific are restricted to a small allow-list of trusted
// reference domains instead of the open web.
package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"goutgle/internal/config"
)

// ErrProvider marks search provider failures (network, auth, quota,
// malformed response). The caller proceeds with whatever other evidence is
// available and surfaces a warning.
var ErrProvider = errors.New("search provider error")

// Result is a single search hit.
type Result struct {
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

// providerResponse mirrors the provider's JSON envelope. Entries missing a
// snippet or link are valid and simply skipped.
type providerResponse struct {
	OrganicResults []struct {
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	} `json:"organic_results"`
	Error string `json:"error"`
}

// Adapter issues provider queries with domain biasing.
type Adapter struct {
	apiKey       string
	locale       string
	wineKeywords []string
	trustedSites []string
	perSubCap    int
	totalCap     int
	logger       *slog.Logger
	tracer       trace.Tracer
	httpClient   *http.Client

	// BaseURL is the provider endpoint, settable in tests.
	BaseURL string
}

func New(cfg config.Config, logger *slog.Logger, tracer trace.Tracer) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = otel.Tracer("goutgle")
	}
	return &Adapter{
		apiKey:       cfg.SerpAPIKey,
		locale:       cfg.SearchLocale,
		wineKeywords: cfg.WineKeywords,
		trustedSites: cfg.TrustedSites,
		perSubCap:    cfg.ResultsPerSub,
		totalCap:     cfg.ResultsTotal,
		logger:       logger,
		tracer:       tracer,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		BaseURL:      "https://serpapi.com/search",
	}
}

// WineQuery reports whether query contains any configured wine keyword.
func (a *Adapter) WineQuery(query string) bool {
	q := strings.ToLower(query)
	for _, kw := range a.wineKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// Search runs the query against the provider. Wine-flagged queries fan out
// to one site-scoped sub-query per trusted domain and never an unscoped
// one; everything else issues exactly one unscoped query. Results keep
// sub-query order, each sub-query capped individually, the total truncated
// to the overall bound. Partial results plus an ErrProvider-wrapped error
// are returned when a sub-query fails.
func (a *Adapter) Search(ctx context.Context, query string) ([]Result, error) {
	ctx, span := a.tracer.Start(ctx, "web_search")
	defer span.End()

	subQueries := []string{query}
	if a.WineQuery(query) {
		subQueries = subQueries[:0]
		for _, site := range a.trustedSites {
			subQueries = append(subQueries, fmt.Sprintf("site:%s %s", site, query))
		}
	}

	var results []Result
	var firstErr error
	for _, sq := range subQueries {
		hits, err := a.query(ctx, sq)
		if err != nil {
			a.logger.Warn("web search sub-query failed", "query", sq, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if len(hits) > a.perSubCap {
			hits = hits[:a.perSubCap]
		}
		results = append(results, hits...)
	}

	if len(results) > a.totalCap {
		results = results[:a.totalCap]
	}

	a.logger.Info("web search done", "query", query,
		"sub_queries", len(subQueries), "results", len(results))
	return results, firstErr
}

func (a *Adapter) query(ctx context.Context, query string) ([]Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("api_key", a.apiKey)
	params.Set("hl", a.locale)
	params.Set("num", strconv.Itoa(a.perSubCap))

	req, err := http.NewRequestWithContext(ctx, "GET", a.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to send request: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrProvider, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: API error: %s - %s", ErrProvider, resp.Status, string(body))
	}

	var pr providerResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal response: %v", ErrProvider, err)
	}
	if pr.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrProvider, pr.Error)
	}

	var results []Result
	for _, r := range pr.OrganicResults {
		if r.Snippet == "" || r.Link == "" {
			continue
		}
		results = append(results, Result{Snippet: r.Snippet, Link: r.Link})
	}
	return results, nil
}
